package app

import (
	"context"
	"time"

	"vocab-test-service/internal/domain"
)

// UserRepository stores account records.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByName(ctx context.Context, username string) (domain.User, error)
	FindUserByID(ctx context.Context, id string) (domain.User, error)
}

// TokenStore maps hashed session tokens to user ids with a TTL (redis or in-memory).
type TokenStore interface {
	SaveToken(ctx context.Context, tokenHash, userID string, ttl time.Duration) error
	LookupToken(ctx context.Context, tokenHash string) (string, error)
	DeleteToken(ctx context.Context, tokenHash string) error
}

// WordListRepository stores word lists.
type WordListRepository interface {
	CreateList(ctx context.Context, list *domain.WordList) error
	// FindOwnedList returns domain.ErrNotFound when the list is absent or
	// belongs to a different user.
	FindOwnedList(ctx context.Context, listID, userID string) (domain.WordList, error)
	ListsByUser(ctx context.Context, userID string) ([]domain.WordList, error)
}

// WordWriter persists newly ingested words.
type WordWriter interface {
	CreateWords(ctx context.Context, words []*domain.Word) error
}

// WordReader reads word content. ListWords returns a list's words in storage
// (insertion) order; FindWords returns whichever of the given ids exist, in no
// particular order.
type WordReader interface {
	ListWords(ctx context.Context, listID string) ([]domain.Word, error)
	FindWords(ctx context.Context, ids []string) ([]domain.Word, error)
}

// TestSessionRepository stores quiz sessions.
type TestSessionRepository interface {
	CreateSession(ctx context.Context, session *domain.TestSession) error
	// FindOwnedSession returns domain.ErrNotFound when the session is absent
	// or belongs to a different user.
	FindOwnedSession(ctx context.Context, sessionID, userID string) (domain.TestSession, error)
	// FindActiveSession returns the most recently started active session, or
	// nil when the user has none.
	FindActiveSession(ctx context.Context, userID string) (*domain.TestSession, error)
	ListActiveSessions(ctx context.Context, userID string) ([]domain.TestSession, error)
	UpdateSessionProgress(ctx context.Context, sessionID string, currentIndex int, correctIDs, incorrectIDs []string) error
	MarkSessionFinished(ctx context.Context, sessionID string, finishedAt time.Time, accuracy *int) error
	// ListFinishedSessions returns finished sessions newest first, at most limit.
	ListFinishedSessions(ctx context.Context, userID string, limit int) ([]domain.TestSession, error)
}

// TestAnswerRepository appends to the answer audit log.
type TestAnswerRepository interface {
	AppendAnswer(ctx context.Context, answer *domain.TestAnswer) error
}

// WrongWordFilter narrows a wrong-word listing. A non-nil ListID selects one
// list's scope; GlobalOnly selects the null scope; neither returns all rows.
type WrongWordFilter struct {
	ListID     *string
	GlobalOnly bool
}

// WrongWordRepository maintains the per-scope miss counters.
type WrongWordRepository interface {
	// IncrementWrong bumps the counter for (userID, wordID, listID) by one,
	// creating the entry with count 1 if absent. The write is a single atomic
	// increment-or-insert.
	IncrementWrong(ctx context.Context, userID, wordID string, listID *string, at time.Time) error
	// ListWrongEntries returns entries matching the filter, joined with their
	// words, sorted by wrong count descending.
	ListWrongEntries(ctx context.Context, userID string, filter WrongWordFilter) ([]domain.WrongWordEntry, error)
	// ListWrongWords returns the word records referenced by the user's
	// wrong-word entries in the given scope (nil listID means the global pool).
	ListWrongWords(ctx context.Context, userID string, listID *string) ([]domain.Word, error)
}
