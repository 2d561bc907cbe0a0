package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tanya/internal/models"
)

func sampleChunks(batch string, texts ...string) []models.Chunk {
	out := make([]models.Chunk, len(texts))
	for i, t := range texts {
		out[i] = models.Chunk{ID: batch + "_" + string(rune('0'+i)), Position: i, Text: t}
	}
	return out
}

func TestSQLiteStorage_Batch(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "sub", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	batch := &models.Batch{ID: "b1", SessionID: "s1", Documents: 2, Fingerprint: "abc", CreatedAt: time.Now()}
	if err := store.CreateBatch(ctx, batch, sampleChunks("b1", "zero", "one", "two")); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetBatch(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "s1" || got.Documents != 2 || got.Fingerprint != "abc" {
		t.Errorf("got %+v", got)
	}

	chunks, err := store.ChunksByBatch(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 || chunks[0].Text != "zero" || chunks[2].Position != 2 {
		t.Errorf("chunks: %+v", chunks)
	}

	byID, err := store.GetChunks(ctx, []string{"b1_2", "b1_0", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byID) != 2 || byID["b1_2"].Text != "two" {
		t.Errorf("GetChunks: %+v", byID)
	}

	if n, _ := store.CountChunks(ctx); n != 3 {
		t.Errorf("CountChunks=%d", n)
	}
	if err := store.DeleteBatch(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("chunks left after delete: %d", n)
	}
	if n, _ := store.CountBatches(ctx); n != 0 {
		t.Errorf("batches left after delete: %d", n)
	}
	if _, err := store.GetBatch(ctx, "b1"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestSQLiteStorage_failedBatchLeavesNothing(t *testing.T) {
	store, err := NewSQLiteStorage(MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	// Duplicate chunk IDs violate the primary key halfway through the insert.
	chunks := []models.Chunk{{ID: "dup", Position: 0, Text: "a"}, {ID: "dup", Position: 1, Text: "b"}}
	if err := store.CreateBatch(ctx, &models.Batch{ID: "b", SessionID: "s"}, chunks); err == nil {
		t.Fatal("expected error for duplicate chunk IDs")
	}
	if n, _ := store.CountBatches(ctx); n != 0 {
		t.Errorf("batch row survived a failed insert")
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("chunk rows survived a failed insert")
	}
}

func TestSQLiteStorage_memorySharedAcrossCalls(t *testing.T) {
	store, err := NewSQLiteStorage(MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := store.CreateBatch(ctx, &models.Batch{ID: id, SessionID: "s", CreatedAt: time.Now()}, sampleChunks(id, "x")); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := store.CountBatches(ctx); n != 2 {
		t.Errorf("CountBatches=%d", n)
	}
}

func TestSQLiteStorage_GetChunksEmpty(t *testing.T) {
	store, _ := NewSQLiteStorage(MemoryDSN)
	defer store.Close()
	got, err := store.GetChunks(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestSQLiteStorage_GetChunksManyIDs(t *testing.T) {
	store, err := NewSQLiteStorage(MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	n := 2*maxLookupIDs + 7
	chunks := make([]models.Chunk, n)
	ids := make([]string, 0, n+1)
	for i := range chunks {
		chunks[i] = models.Chunk{ID: fmt.Sprintf("big_%d", i), Position: i, Text: fmt.Sprintf("chunk %d", i)}
		ids = append(ids, chunks[i].ID)
	}
	ids = append(ids, "missing")
	batch := &models.Batch{ID: "big", SessionID: "s1", Documents: 1, CreatedAt: time.Now()}
	if err := store.CreateBatch(ctx, batch, chunks); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetChunks(ctx, ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("got %d chunks, want %d", len(got), n)
	}
	if ch := got[fmt.Sprintf("big_%d", n-1)]; ch.Position != n-1 || ch.Text != fmt.Sprintf("chunk %d", n-1) {
		t.Errorf("last chunk = %+v", ch)
	}
}
