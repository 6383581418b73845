package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"vocab-test-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

type wordListRow struct {
	bun.BaseModel `bun:"table:word_lists,alias:wl"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	Title      string    `bun:"title,notnull"`
	SourceType string    `bun:"source_type,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (r wordListRow) toDomain() domain.WordList {
	return domain.WordList{
		ID:         r.ID,
		UserID:     r.UserID,
		Title:      r.Title,
		SourceType: domain.SourceType(r.SourceType),
		CreatedAt:  r.CreatedAt,
	}
}

type wordRow struct {
	bun.BaseModel `bun:"table:words,alias:w"`

	ID         string `bun:"id,pk"`
	WordListID string `bun:"word_list_id,notnull"`
	Word       string `bun:"word,notnull"`
	Meaning    string `bun:"meaning,notnull"`
	Position   int    `bun:"position,notnull"`
}

func (r wordRow) toDomain() domain.Word {
	return domain.Word{
		ID:         r.ID,
		WordListID: r.WordListID,
		Word:       r.Word,
		Meaning:    r.Meaning,
		Position:   r.Position,
	}
}

type testSessionRow struct {
	bun.BaseModel `bun:"table:test_sessions,alias:ts"`

	ID           string     `bun:"id,pk"`
	UserID       string     `bun:"user_id,notnull"`
	WordListID   *string    `bun:"word_list_id"`
	Mode         string     `bun:"mode,notnull"`
	Status       string     `bun:"status,notnull"`
	OrderIDs     []string   `bun:"order_ids,array"`
	CurrentIndex int        `bun:"current_index,notnull"`
	CorrectIDs   []string   `bun:"correct_ids,array"`
	IncorrectIDs []string   `bun:"incorrect_ids,array"`
	StartedAt    time.Time  `bun:"started_at,notnull"`
	FinishedAt   *time.Time `bun:"finished_at"`
	Accuracy     *int       `bun:"accuracy"`
}

func (r testSessionRow) toDomain() domain.TestSession {
	return domain.TestSession{
		ID:           r.ID,
		UserID:       r.UserID,
		WordListID:   r.WordListID,
		Mode:         domain.TestMode(r.Mode),
		Status:       domain.SessionStatus(r.Status),
		OrderIDs:     emptyIfNil(r.OrderIDs),
		CurrentIndex: r.CurrentIndex,
		CorrectIDs:   emptyIfNil(r.CorrectIDs),
		IncorrectIDs: emptyIfNil(r.IncorrectIDs),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Accuracy:     r.Accuracy,
	}
}

type testAnswerRow struct {
	bun.BaseModel `bun:"table:test_answers,alias:ta"`

	ID            string    `bun:"id,pk"`
	TestSessionID string    `bun:"test_session_id,notnull"`
	WordID        string    `bun:"word_id,notnull"`
	Correct       bool      `bun:"correct,notnull"`
	AnsweredAt    time.Time `bun:"answered_at,notnull"`
}

type wrongWordRow struct {
	bun.BaseModel `bun:"table:wrong_words,alias:ww"`

	UserID      string    `bun:"user_id,notnull"`
	WordID      string    `bun:"word_id,notnull"`
	WordListID  *string   `bun:"word_list_id"`
	WrongCount  int       `bun:"wrong_count,notnull"`
	LastWrongAt time.Time `bun:"last_wrong_at,notnull"`
	Word        string    `bun:"word,scanonly"`
	Meaning     string    `bun:"meaning,scanonly"`
}

func (r wrongWordRow) toDomain() domain.WrongWordEntry {
	return domain.WrongWordEntry{
		UserID:      r.UserID,
		WordID:      r.WordID,
		WordListID:  r.WordListID,
		WrongCount:  r.WrongCount,
		LastWrongAt: r.LastWrongAt,
		Word:        r.Word,
		Meaning:     r.Meaning,
	}
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
