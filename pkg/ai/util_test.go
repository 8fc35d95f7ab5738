package ai

import (
	"reflect"
	"testing"
)

type sampleOut struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    sampleOut
		wantErr bool
	}{
		{
			name:  "standard json",
			input: `{"name": "DB1", "count": 4}`,
			want:  sampleOut{Name: "DB1", Count: 4},
		},
		{
			name:  "double encoded",
			input: `"{\"name\": \"DB1\", \"count\": 4}"`,
			want:  sampleOut{Name: "DB1", Count: 4},
		},
		{
			name:  "duplicate leading brace",
			input: `{{"name": "DB1", "count": 4}`,
			want:  sampleOut{Name: "DB1", Count: 4},
		},
		{
			name:  "unquoted keys repaired",
			input: `{name: "DB1", count: 4}`,
			want:  sampleOut{Name: "DB1", Count: 4},
		},
		{
			name:  "trailing comma repaired",
			input: `{"name": "DB1", "count": 4,}`,
			want:  sampleOut{Name: "DB1", Count: 4},
		},
		{
			name:  "surrounding whitespace",
			input: "\n  {\"name\": \"DB1\", \"count\": 4}  \n",
			want:  sampleOut{Name: "DB1", Count: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sampleOut
			err := UnmarshalFlexible(tt.input, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalFlexible() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("UnmarshalFlexible() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStripDuplicateLeadingBrace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no duplicate", input: `{"a": 1}`, want: `{"a": 1}`},
		{name: "duplicate", input: `{{"a": 1}`, want: `{"a": 1}`},
		{name: "duplicate with space", input: `{ {"a": 1}`, want: `{"a": 1}`},
		{name: "not an object", input: `[1, 2]`, want: `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripDuplicateLeadingBrace(tt.input); got != tt.want {
				t.Errorf("stripDuplicateLeadingBrace() = %q, want %q", got, tt.want)
			}
		})
	}
}
