package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the default Gemini embedding model.
const DefaultGeminiModel = "text-embedding-004"

// geminiBatchLimit is the maximum number of contents per EmbedContent call.
const geminiBatchLimit = 100

// GeminiEmbedder generates embeddings with the Gemini API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a Gemini embedder. dims of 0 keeps the model's
// native size (768 for text-embedding-004).
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dims int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini embedder requires an API key")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if dims <= 0 {
		dims = 768
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: dims}, nil
}

// Dimensions returns the embedding vector size.
func (g *GeminiEmbedder) Dimensions() int {
	return g.dimensions
}

// Embed sends texts in batches and returns one vector per text.
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	dims := int32(g.dimensions)
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := min(start+geminiBatchLimit, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini embed: %w", err)
		}
		if len(resp.Embeddings) != len(contents) {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(contents))
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}
