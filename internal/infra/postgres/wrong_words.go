package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"vocab-test-service/internal/app"
	"vocab-test-service/internal/domain"
)

// WrongWordRepository maintains the per-scope miss counters. The unique index
// on (user_id, word_id, coalesce(word_list_id, '')) lets the increment run as
// a single conditional write, so concurrent wrong answers cannot lose counts.
type WrongWordRepository struct {
	db *bun.DB
}

func NewWrongWordRepository(db *bun.DB) *WrongWordRepository {
	return &WrongWordRepository{db: db}
}

func (r *WrongWordRepository) IncrementWrong(ctx context.Context, userID, wordID string, listID *string, at time.Time) error {
	row := wrongWordRow{
		UserID:      userID,
		WordID:      wordID,
		WordListID:  listID,
		WrongCount:  1,
		LastWrongAt: at,
	}
	_, err := r.db.NewInsert().Model(&row).
		On("CONFLICT (user_id, word_id, coalesce(word_list_id, '')) DO UPDATE").
		Set("wrong_count = ww.wrong_count + 1").
		Set("last_wrong_at = EXCLUDED.last_wrong_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment wrong word: %w", err)
	}
	return nil
}

func (r *WrongWordRepository) ListWrongEntries(ctx context.Context, userID string, filter app.WrongWordFilter) ([]domain.WrongWordEntry, error) {
	var rows []wrongWordRow
	q := r.db.NewSelect().Model(&rows).
		ColumnExpr("ww.*").
		ColumnExpr("w.word AS word").
		ColumnExpr("w.meaning AS meaning").
		Join("JOIN words AS w ON w.id = ww.word_id").
		Where("ww.user_id = ?", userID)
	switch {
	case filter.ListID != nil:
		q = q.Where("ww.word_list_id = ?", *filter.ListID)
	case filter.GlobalOnly:
		q = q.Where("ww.word_list_id IS NULL")
	}
	if err := q.Order("ww.wrong_count DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list wrong words: %w", err)
	}
	entries := make([]domain.WrongWordEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toDomain()
	}
	return entries, nil
}

func (r *WrongWordRepository) ListWrongWords(ctx context.Context, userID string, listID *string) ([]domain.Word, error) {
	var rows []wordRow
	q := r.db.NewSelect().Model(&rows).
		Join("JOIN wrong_words AS ww ON ww.word_id = w.id").
		Where("ww.user_id = ?", userID)
	if listID != nil {
		q = q.Where("ww.word_list_id = ?", *listID)
	} else {
		q = q.Where("ww.word_list_id IS NULL")
	}
	if err := q.Order("w.position ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load wrong-word pool: %w", err)
	}
	words := make([]domain.Word, len(rows))
	for i, row := range rows {
		words[i] = row.toDomain()
	}
	return words, nil
}
