package openai

import (
	"sync"

	"github.com/afriplan/takeoff/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DrawingOpenAIClient talks to OpenAI-compatible endpoints for the take-off
// pipeline. It manages separate clients for chat extraction and vision, and
// carries the model names for the normal and escalated extraction tiers.
//
// A DrawingOpenAIClient should be created using NewDrawingOpenAIClient.
type DrawingOpenAIClient struct {
	classifyModel string
	extractModel  string
	escalateModel string
	visionModel   string

	chatURL   string
	chatKey   string
	visionURL string
	visionKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient   *openai.Client
	VisionClient *openai.Client
}

// NewDrawingOpenAIClientParams defines the configuration for creating a new
// DrawingOpenAIClient.
//
// ClassifyModel handles mode/tier classification, ExtractModel the standard
// extraction tier and EscalateModel the stronger tier used for low-scoring
// units. VisionModel reads rendered page images during escalation.
type NewDrawingOpenAIClientParams struct {
	ClassifyModel string
	ExtractModel  string
	EscalateModel string
	VisionModel   string

	ChatURL   string
	ChatKey   string
	VisionURL string
	VisionKey string
}

// NewDrawingOpenAIClient creates and returns a new DrawingOpenAIClient
// configured with the provided parameters.
//
// Example:
//
//	params := openai.NewDrawingOpenAIClientParams{
//		ClassifyModel: "gpt-4o-mini",
//		ExtractModel:  "gpt-4o-mini",
//		EscalateModel: "gpt-4o",
//		VisionModel:   "gpt-4o",
//		ChatURL:       "https://api.openai.com/v1",
//		ChatKey:       os.Getenv("OPENAI_API_KEY"),
//	}
//	client := openai.NewDrawingOpenAIClient(params)
func NewDrawingOpenAIClient(
	params NewDrawingOpenAIClientParams,
) *DrawingOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	visionClient := newOpenaiClient(params.VisionURL, params.VisionKey)

	return &DrawingOpenAIClient{
		classifyModel: params.ClassifyModel,
		extractModel:  params.ExtractModel,
		escalateModel: params.EscalateModel,
		visionModel:   params.VisionModel,

		chatURL:   params.ChatURL,
		chatKey:   params.ChatKey,
		visionURL: params.VisionURL,
		visionKey: params.VisionKey,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient:   chatClient,
		VisionClient: visionClient,
	}
}

// ClassifyModel returns the configured classification model name.
func (c *DrawingOpenAIClient) ClassifyModel() string { return c.classifyModel }

// ExtractModel returns the configured standard extraction model name.
func (c *DrawingOpenAIClient) ExtractModel() string { return c.extractModel }

// EscalateModel returns the configured escalated extraction model name.
func (c *DrawingOpenAIClient) EscalateModel() string { return c.escalateModel }

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *DrawingOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{
		InputTokens:  0,
		OutputTokens: 0,
		TotalTokens:  0,
		DurationMs:   0,
	}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since
// the last reset.
func (c *DrawingOpenAIClient) GetMetrics() ai.ModelMetrics {
	return c.metrics
}

func (c *DrawingOpenAIClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs

	if c.metrics.DurationMs > 0 {
		tokensPerSecond := (float64(c.metrics.TotalTokens) * 1000.0) / float64(c.metrics.DurationMs)
		c.metrics.TokenPerSecond = float32(tokensPerSecond)
	}
}
