package vectorstore

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTokenize(t *testing.T) {
	got := tokenize("Hello, World! go-get v1.2 Ünïcode")
	want := []string{"hello", "world", "go", "get", "v1", "2", "ünïcode"}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != DefaultHashDimensions {
		t.Fatalf("expected default dimensions, got %d", e.Dimensions())
	}

	vecs, err := e.Embed(context.Background(), []string{
		"install the widget with go get",
		"how do I install widget",
		"zebra giraffe savannah",
		"!!!",
	})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}

	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related texts to score higher: %f <= %f", related, unrelated)
	}
	if cosine(vecs[0], vecs[3]) != 0 {
		t.Error("expected zero vector for token-less text")
	}
}

func TestHashEmbedderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).Embed(ctx, []string{"a"}); err == nil {
		t.Error("expected context error")
	}
}

// TestPropertyHashEmbedderUnitLength checks that every non-empty embedding is
// L2-normalized and that embedding is deterministic.
func TestPropertyHashEmbedderUnitLength(t *testing.T) {
	e := NewHashEmbedder(64)
	properties := gopter.NewProperties(nil)

	properties.Property("vectors have unit length", prop.ForAll(
		func(words []string) bool {
			text := ""
			for _, w := range words {
				text += w + " "
			}
			vecs, err := e.Embed(context.Background(), []string{text, text})
			if err != nil {
				return false
			}
			var sum float64
			for i, v := range vecs[0] {
				if v != vecs[1][i] || v < 0 {
					return false
				}
				sum += float64(v) * float64(v)
			}
			if len(tokenize(text)) == 0 {
				return sum == 0
			}
			return math.Abs(sum-1) < 1e-5
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: %f", got)
	}
	if got := cosine([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched dimensions: %f", got)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{float64(len(req.Prompt)), 1}})
	}))
	defer server.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL, Model: "test-model", Dimensions: 2})

	vecs, err := e.Embed(context.Background(), []string{"abc", "de"})
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 3 || vecs[1][0] != 2 {
		t.Errorf("unexpected vectors %v", vecs)
	}
	if e.Dimensions() != 2 {
		t.Errorf("unexpected dimensions %d", e.Dimensions())
	}
}

func TestOllamaEmbedderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	e := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL})
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("expected error for 404")
	}
}

func TestNewGeminiEmbedderRequiresKey(t *testing.T) {
	if _, err := NewGeminiEmbedder(context.Background(), "", "", 0); err == nil {
		t.Error("expected error without API key")
	}
}
