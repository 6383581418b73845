package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"vocab-test-service/internal/domain"
)

// TestSessionRepository stores quiz sessions and the answer audit log.
type TestSessionRepository struct {
	db *bun.DB
}

func NewTestSessionRepository(db *bun.DB) *TestSessionRepository {
	return &TestSessionRepository{db: db}
}

func (r *TestSessionRepository) CreateSession(ctx context.Context, session *domain.TestSession) error {
	row := sessionToRow(session)
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *TestSessionRepository) FindOwnedSession(ctx context.Context, sessionID, userID string) (domain.TestSession, error) {
	var row testSessionRow
	err := r.db.NewSelect().Model(&row).
		Where("ts.id = ?", sessionID).
		Where("ts.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TestSession{}, domain.ErrNotFound
		}
		return domain.TestSession{}, fmt.Errorf("find session: %w", err)
	}
	return row.toDomain(), nil
}

func (r *TestSessionRepository) FindActiveSession(ctx context.Context, userID string) (*domain.TestSession, error) {
	var row testSessionRow
	err := r.db.NewSelect().Model(&row).
		Where("ts.user_id = ?", userID).
		Where("ts.status = ?", string(domain.StatusActive)).
		Order("ts.started_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	session := row.toDomain()
	return &session, nil
}

func (r *TestSessionRepository) ListActiveSessions(ctx context.Context, userID string) ([]domain.TestSession, error) {
	var rows []testSessionRow
	err := r.db.NewSelect().Model(&rows).
		Where("ts.user_id = ?", userID).
		Where("ts.status = ?", string(domain.StatusActive)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	sessions := make([]domain.TestSession, len(rows))
	for i, row := range rows {
		sessions[i] = row.toDomain()
	}
	return sessions, nil
}

func (r *TestSessionRepository) UpdateSessionProgress(ctx context.Context, sessionID string, currentIndex int, correctIDs, incorrectIDs []string) error {
	res, err := r.db.NewUpdate().Model((*testSessionRow)(nil)).
		Set("current_index = ?", currentIndex).
		Set("correct_ids = ?", pgdialect.Array(correctIDs)).
		Set("incorrect_ids = ?", pgdialect.Array(incorrectIDs)).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update session progress: %w", err)
	}
	return requireUpdated(res)
}

func (r *TestSessionRepository) MarkSessionFinished(ctx context.Context, sessionID string, finishedAt time.Time, accuracy *int) error {
	res, err := r.db.NewUpdate().Model((*testSessionRow)(nil)).
		Set("status = ?", string(domain.StatusFinished)).
		Set("finished_at = ?", finishedAt).
		Set("accuracy = ?", accuracy).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return requireUpdated(res)
}

func (r *TestSessionRepository) ListFinishedSessions(ctx context.Context, userID string, limit int) ([]domain.TestSession, error) {
	var rows []testSessionRow
	err := r.db.NewSelect().Model(&rows).
		Where("ts.user_id = ?", userID).
		Where("ts.status = ?", string(domain.StatusFinished)).
		Order("ts.finished_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list finished sessions: %w", err)
	}
	sessions := make([]domain.TestSession, len(rows))
	for i, row := range rows {
		sessions[i] = row.toDomain()
	}
	return sessions, nil
}

// TestAnswerRepository appends rows to the append-only audit log.
type TestAnswerRepository struct {
	db *bun.DB
}

func NewTestAnswerRepository(db *bun.DB) *TestAnswerRepository {
	return &TestAnswerRepository{db: db}
}

func (r *TestAnswerRepository) AppendAnswer(ctx context.Context, answer *domain.TestAnswer) error {
	row := testAnswerRow{
		ID:            answer.ID,
		TestSessionID: answer.TestSessionID,
		WordID:        answer.WordID,
		Correct:       answer.Correct,
		AnsweredAt:    answer.AnsweredAt,
	}
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("append answer: %w", err)
	}
	return nil
}

func sessionToRow(session *domain.TestSession) testSessionRow {
	return testSessionRow{
		ID:           session.ID,
		UserID:       session.UserID,
		WordListID:   session.WordListID,
		Mode:         string(session.Mode),
		Status:       string(session.Status),
		OrderIDs:     session.OrderIDs,
		CurrentIndex: session.CurrentIndex,
		CorrectIDs:   session.CorrectIDs,
		IncorrectIDs: session.IncorrectIDs,
		StartedAt:    session.StartedAt,
		FinishedAt:   session.FinishedAt,
		Accuracy:     session.Accuracy,
	}
}

func requireUpdated(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
