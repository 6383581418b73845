package memory_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"vocab-test-service/internal/domain"
	"vocab-test-service/internal/infra/memory"
)

type countingSource struct {
	lists int32
	finds int32
	words []domain.Word
}

func (s *countingSource) ListWords(_ context.Context, _ string) ([]domain.Word, error) {
	atomic.AddInt32(&s.lists, 1)
	return s.words, nil
}

func (s *countingSource) FindWords(_ context.Context, _ []string) ([]domain.Word, error) {
	atomic.AddInt32(&s.finds, 1)
	return s.words, nil
}

func TestWordCacheServesFromCache(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{words: []domain.Word{{ID: "w1", Word: "apple"}}}
	cache := memory.NewWordCache(source, time.Minute)

	for i := 0; i < 5; i++ {
		words, err := cache.ListWords(ctx, "list-1")
		if err != nil {
			t.Fatalf("list words: %v", err)
		}
		if len(words) != 1 || words[0].ID != "w1" {
			t.Fatalf("unexpected words %v", words)
		}
	}
	if n := atomic.LoadInt32(&source.lists); n != 1 {
		t.Fatalf("expected a single source load, got %d", n)
	}
}

func TestWordCacheKeysByList(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{words: []domain.Word{{ID: "w1"}}}
	cache := memory.NewWordCache(source, time.Minute)

	if _, err := cache.ListWords(ctx, "list-1"); err != nil {
		t.Fatalf("list words: %v", err)
	}
	if _, err := cache.ListWords(ctx, "list-2"); err != nil {
		t.Fatalf("list words: %v", err)
	}
	if n := atomic.LoadInt32(&source.lists); n != 2 {
		t.Fatalf("expected one load per list, got %d", n)
	}
}

func TestWordCacheReturnsPrivateCopies(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{words: []domain.Word{{ID: "w1"}, {ID: "w2"}, {ID: "w3"}}}
	cache := memory.NewWordCache(source, time.Minute)

	first, err := cache.ListWords(ctx, "list-1")
	if err != nil {
		t.Fatalf("list words: %v", err)
	}
	// callers reorder their result in place; the cache must not see that
	first[0], first[2] = first[2], first[0]

	second, err := cache.ListWords(ctx, "list-1")
	if err != nil {
		t.Fatalf("list words: %v", err)
	}
	if second[0].ID != "w1" || second[1].ID != "w2" || second[2].ID != "w3" {
		t.Fatalf("cached entry was mutated through a returned slice: %v", second)
	}
}

func TestWordCacheFindBypassesCache(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{words: []domain.Word{{ID: "w1"}}}
	cache := memory.NewWordCache(source, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.FindWords(ctx, []string{"w1"}); err != nil {
			t.Fatalf("find words: %v", err)
		}
	}
	if n := atomic.LoadInt32(&source.finds); n != 3 {
		t.Fatalf("expected id lookups to hit the source every time, got %d", n)
	}
}
