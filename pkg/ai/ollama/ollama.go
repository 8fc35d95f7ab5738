package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/afriplan/takeoff/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// DrawingOllamaClient implements the ai.DrawingAIClient interface against a
// locally-hosted Ollama server. It supports text extraction and vision over
// rendered drawing pages.
type DrawingOllamaClient struct {
	classifyModel string
	extractModel  string
	escalateModel string
	visionModel   string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewDrawingOllamaClientParams contains configuration options for creating a
// new DrawingOllamaClient.
type NewDrawingOllamaClientParams struct {
	ClassifyModel string
	ExtractModel  string
	EscalateModel string
	VisionModel   string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewDrawingOllamaClient creates a new Ollama-based client with the
// specified configuration. It connects to the Ollama server at the given
// BaseURL (or the default if empty) and uses the configured models for the
// different pipeline stages.
func NewDrawingOllamaClient(
	params NewDrawingOllamaClientParams,
) (*DrawingOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := semaphore.NewWeighted(maxConcurrent)

	return &DrawingOllamaClient{
		classifyModel: params.ClassifyModel,
		extractModel:  params.ExtractModel,
		escalateModel: params.EscalateModel,
		visionModel:   params.VisionModel,

		reqLock: sem,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}

// ClassifyModel returns the configured classification model name.
func (c *DrawingOllamaClient) ClassifyModel() string { return c.classifyModel }

// ExtractModel returns the configured standard extraction model name.
func (c *DrawingOllamaClient) ExtractModel() string { return c.extractModel }

// EscalateModel returns the configured escalated extraction model name.
func (c *DrawingOllamaClient) EscalateModel() string { return c.escalateModel }
