package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/errdefs"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashEmbedder_deterministicUnitVectors(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a1, _ := e.Embed(ctx, "the quick brown fox")
	a2, _ := e.Embed(ctx, "the quick brown fox")
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("embedding should be deterministic")
		}
	}
	if n := cosine(a1, a1); math.Abs(n-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", n)
	}
	if len(a1) != e.Dimensions() {
		t.Errorf("len=%d", len(a1))
	}
}

func TestHashEmbedder_sharedWordsAreCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "refund policy")
	near, _ := e.Embed(ctx, "Our refund policy lasts 30 days.")
	far, _ := e.Embed(ctx, "Shipping takes a week by sea freight.")
	if cosine(q, near) <= cosine(q, far) {
		t.Errorf("expected shared terms to score higher: near=%f far=%f", cosine(q, near), cosine(q, far))
	}
}

func TestHashEmbedder_emptyText(t *testing.T) {
	v, err := NewHashEmbedder(8).Embed(context.Background(), " ... ")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

type recordingEmbedder struct {
	*HashEmbedder
	mu      sync.Mutex
	batches int
	failOn  string
}

func (e *recordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	for _, t := range texts {
		if t == e.failOn {
			return nil, errors.New("provider down")
		}
	}
	return e.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestEmbedAll_preservesOrder(t *testing.T) {
	inner := &recordingEmbedder{HashEmbedder: NewHashEmbedder(32)}
	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	var mu sync.Mutex
	done := 0
	got, err := EmbedAll(context.Background(), inner, texts, BatchOptions{
		BatchSize:   2,
		Concurrency: 3,
		Progress: func(n int) {
			mu.Lock()
			done += n
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if inner.batches != 4 {
		t.Errorf("expected 4 batches, got %d", inner.batches)
	}
	if done != len(texts) {
		t.Errorf("progress reported %d of %d", done, len(texts))
	}
	for i, text := range texts {
		want, _ := inner.HashEmbedder.Embed(context.Background(), text)
		for j := range want {
			if got[i][j] != want[j] {
				t.Fatalf("vector %d does not belong to %q", i, text)
			}
		}
	}
}

func TestEmbedAll_wrapsProviderFailure(t *testing.T) {
	inner := &recordingEmbedder{HashEmbedder: NewHashEmbedder(8), failOn: "c"}
	_, err := EmbedAll(context.Background(), inner, []string{"a", "b", "c"}, BatchOptions{BatchSize: 1})
	var ee *errdefs.EmbeddingServiceError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingServiceError, got %v", err)
	}
}

func TestEmbedAll_empty(t *testing.T) {
	got, err := EmbedAll(context.Background(), NewHashEmbedder(8), nil, BatchOptions{})
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth=%q", r.Header.Get("Authorization"))
		}
		var req openAIEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req.Model != "text-embedding-3-small" || req.Dimensions != 2 || len(req.Input) != 2 {
			t.Errorf("request: %+v", req)
		}
		// Reply out of order; the client must reorder by index.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(srv.URL+"/v1/", "sk-test", "", 2, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	got, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0][0] != 1 || got[1][1] != 1 {
		t.Errorf("got %v", got)
	}
}

func TestOpenAIEmbedder_statusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()
	e, _ := NewOpenAIEmbedder(srv.URL, "k", "m", 0, time.Second)
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Error("expected error on 429")
	}
}

func TestNewOpenAIEmbedder_requiresKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder("http://x", "", "m", 0, 0); err == nil {
		t.Error("expected error without api key")
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default().Embedding
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if e.Dimensions() != cfg.Dimensions {
		t.Errorf("Dimensions=%d", e.Dimensions())
	}

	cfg.Provider = "openai"
	cfg.APIKeyEnv = "TANYA_TEST_UNSET_KEY"
	t.Setenv("TANYA_TEST_UNSET_KEY", "")
	var cerr *errdefs.ConfigurationError
	if _, err := New(cfg, nil); !errors.As(err, &cerr) {
		t.Errorf("expected ConfigurationError for missing key, got %v", err)
	}

	cfg.Provider = "word2vec"
	if _, err := New(cfg, nil); !errors.As(err, &cerr) {
		t.Errorf("expected ConfigurationError for unknown provider, got %v", err)
	}
}
