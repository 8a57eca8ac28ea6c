package embeddings

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"codedup/internal/config"
)

type Client struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewClient(cfg config.Config) *Client {
	if cfg.OpenAIAPIKey == "" {
		fmt.Fprintf(os.Stderr, "⚠ Warning: OPENAI_API_KEY is not set\n")
	}

	ocfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		ocfg.BaseURL = cfg.OpenAIBaseURL
		fmt.Fprintf(os.Stderr, "→ Using custom embeddings endpoint: %s\n", cfg.OpenAIBaseURL)
	}

	model := openai.SmallEmbedding3
	if cfg.EmbeddingModel != "" {
		model = openai.EmbeddingModel(cfg.EmbeddingModel)
		fmt.Fprintf(os.Stderr, "→ Using embedding model: %s\n", cfg.EmbeddingModel)
	}

	return &Client{
		client: openai.NewClientWithConfig(ocfg),
		model:  model,
	}
}

// WaitReady polls the models endpoint until the embedding service answers or
// the timeout elapses.
func (c *Client) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, lastErr = c.client.ListModels(ctx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("embedding service not ready after %s: %w", timeout, lastErr)
		}
		time.Sleep(time.Second)
	}
}

// EmbedBatch returns one vector per input text, in input order. The API tags
// responses with their request index, so results are re-slotted by index
// before returning.
func (c *Client) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(context.Background(), openai.EmbeddingRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	results := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(results) {
			return nil, fmt.Errorf("embedding response index %d out of range", data.Index)
		}
		results[data.Index] = data.Embedding
	}
	return results, nil
}
