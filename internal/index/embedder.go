package index

// #region imports
import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// #endregion

// #region embedder

// Embedder is the opaque embed(text) -> vector capability.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion embedder

// #region ollama-embedder

// maxEmbedChars truncates oversized inputs before embedding; very long chunks
// degrade embedding quality and can overrun the model context.
const maxEmbedChars = 2048

// OllamaEmbedder produces embeddings via a local ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder creates an embedder against the given ollama host URL.
func NewOllamaEmbedder(host, model string) (*OllamaEmbedder, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host URL: %w", err)
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &OllamaEmbedder{
		client: api.NewClient(base, httpClient),
		model:  model,
	}, nil
}

// Embed returns the embedding vector for text, truncating oversized input.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}

	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// #endregion ollama-embedder
