package llm

// #region imports
import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// #endregion

// #region options

// Options carries per-call generation parameters. The generator is an opaque
// capability: prompt and config in, raw text out.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions returns conservative generation parameters for structured
// output.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.1,
		MaxTokens:   1024,
	}
}

// #endregion options

// #region generator

// Generator is the text-generation boundary. Implementations may be slow,
// truncated, non-JSON, or refusing; callers must treat the result as raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// #endregion generator

// #region ollama-generator

// OllamaGenerator calls a local ollama server for text generation.
type OllamaGenerator struct {
	client *api.Client
	model  string
}

// NewOllamaGenerator creates a generator against the given ollama host URL.
func NewOllamaGenerator(host, model string) (*OllamaGenerator, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host URL: %w", err)
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	return &OllamaGenerator{
		client: api.NewClient(base, httpClient),
		model:  model,
	}, nil
}

// Generate runs a single non-streaming completion and returns the raw text.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	}

	var out strings.Builder
	err := g.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out.String(), nil
}

// #endregion ollama-generator
