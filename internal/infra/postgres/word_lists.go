package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"vocab-test-service/internal/domain"
)

// WordListRepository stores word lists.
type WordListRepository struct {
	db *bun.DB
}

func NewWordListRepository(db *bun.DB) *WordListRepository {
	return &WordListRepository{db: db}
}

func (r *WordListRepository) CreateList(ctx context.Context, list *domain.WordList) error {
	row := wordListRow{
		ID:         list.ID,
		UserID:     list.UserID,
		Title:      list.Title,
		SourceType: string(list.SourceType),
		CreatedAt:  list.CreatedAt,
	}
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("create word list: %w", err)
	}
	return nil
}

func (r *WordListRepository) FindOwnedList(ctx context.Context, listID, userID string) (domain.WordList, error) {
	var row wordListRow
	err := r.db.NewSelect().Model(&row).
		Where("wl.id = ?", listID).
		Where("wl.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WordList{}, domain.ErrNotFound
		}
		return domain.WordList{}, fmt.Errorf("find word list: %w", err)
	}
	return row.toDomain(), nil
}

func (r *WordListRepository) ListsByUser(ctx context.Context, userID string) ([]domain.WordList, error) {
	var rows []wordListRow
	err := r.db.NewSelect().Model(&rows).
		Where("wl.user_id = ?", userID).
		Order("wl.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list word lists: %w", err)
	}
	lists := make([]domain.WordList, len(rows))
	for i, row := range rows {
		lists[i] = row.toDomain()
	}
	return lists, nil
}
