package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vocab-test-service/internal/domain"
)

// WordLoader serves the read-only word queries from a pgx pool. It sits
// behind the word cache, which absorbs repeated full-list reads.
type WordLoader struct {
	pool *pgxpool.Pool
}

func NewWordLoader(pool *pgxpool.Pool) *WordLoader {
	return &WordLoader{pool: pool}
}

func (l *WordLoader) ListWords(ctx context.Context, listID string) ([]domain.Word, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, word_list_id, word, meaning, position FROM words WHERE word_list_id = $1 ORDER BY position`,
		listID)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	defer rows.Close()
	return scanWords(rows)
}

func (l *WordLoader) FindWords(ctx context.Context, ids []string) ([]domain.Word, error) {
	if len(ids) == 0 {
		return []domain.Word{}, nil
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, word_list_id, word, meaning, position FROM words WHERE id = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("find words: %w", err)
	}
	defer rows.Close()
	return scanWords(rows)
}

func scanWords(rows pgx.Rows) ([]domain.Word, error) {
	var words []domain.Word
	for rows.Next() {
		var w domain.Word
		if err := rows.Scan(&w.ID, &w.WordListID, &w.Word, &w.Meaning, &w.Position); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate words: %w", err)
	}
	return words, nil
}
