package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"vocab-test-service/internal/domain"
)

// WordRepository persists ingested words; reads go through the pgx WordLoader.
type WordRepository struct {
	db *bun.DB
}

func NewWordRepository(db *bun.DB) *WordRepository {
	return &WordRepository{db: db}
}

func (r *WordRepository) CreateWords(ctx context.Context, words []*domain.Word) error {
	if len(words) == 0 {
		return nil
	}
	rows := make([]wordRow, len(words))
	for i, word := range words {
		rows[i] = wordRow{
			ID:         word.ID,
			WordListID: word.WordListID,
			Word:       word.Word,
			Meaning:    word.Meaning,
			Position:   word.Position,
		}
	}
	if _, err := r.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("create words: %w", err)
	}
	return nil
}
