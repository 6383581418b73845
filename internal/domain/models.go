package domain

import "time"

// TestMode selects which side of a word pair is prompted.
type TestMode string

const (
	ModeEnglishToChinese TestMode = "english-to-chinese"
	ModeChineseToEnglish TestMode = "chinese-to-english"
)

// ValidMode reports whether m is one of the supported test modes.
func ValidMode(m TestMode) bool {
	return m == ModeEnglishToChinese || m == ModeChineseToEnglish
}

// SessionStatus is the lifecycle state of a test session.
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)

// SourceType records how a word list was imported.
type SourceType string

const (
	SourceImage SourceType = "image"
	SourceText  SourceType = "text"
)

// User is an account holder; every other entity is scoped to a user.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WordList is one import event's worth of word/meaning pairs.
// Lists are created by ingestion and never mutated afterwards.
type WordList struct {
	ID         string     `json:"id"`
	UserID     string     `json:"-"`
	Title      string     `json:"title"`
	SourceType SourceType `json:"sourceType"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Word belongs to exactly one list and is immutable after creation.
// Position preserves insertion order for unshuffled tests.
type Word struct {
	ID         string `json:"id"`
	WordListID string `json:"-"`
	Word       string `json:"word"`
	Meaning    string `json:"meaning"`
	Position   int    `json:"-"`
}

// WordEntry is the normalized output of ingestion before words are persisted.
type WordEntry struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
}

// TestSession is one quiz attempt over a frozen, ordered set of words.
// OrderIDs is fixed at creation; CurrentIndex, CorrectIDs and IncorrectIDs
// advance strictly in OrderIDs order, one word per accepted answer.
type TestSession struct {
	ID           string        `json:"id"`
	UserID       string        `json:"-"`
	WordListID   *string       `json:"wordListId"` // nil means the global wrong-word pool
	Mode         TestMode      `json:"mode"`
	Status       SessionStatus `json:"status"`
	OrderIDs     []string      `json:"orderIds"`
	CurrentIndex int           `json:"currentIndex"`
	CorrectIDs   []string      `json:"correctIds"`
	IncorrectIDs []string      `json:"incorrectIds"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   *time.Time    `json:"finishedAt"`
	Accuracy     *int          `json:"accuracy"`
}

// Answered reports whether the session already recorded an answer for wordID.
func (s *TestSession) Answered(wordID string) bool {
	for _, id := range s.CorrectIDs {
		if id == wordID {
			return true
		}
	}
	for _, id := range s.IncorrectIDs {
		if id == wordID {
			return true
		}
	}
	return false
}

// TestAnswer is an append-only audit record of a single answer submission.
type TestAnswer struct {
	ID            string    `json:"id"`
	TestSessionID string    `json:"testSessionId"`
	WordID        string    `json:"wordId"`
	Correct       bool      `json:"correct"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// WrongWordEntry counts how often a user missed a word within one scope.
// A nil WordListID is the user's global tally for that word across all lists.
type WrongWordEntry struct {
	UserID      string    `json:"-"`
	WordID      string    `json:"wordId"`
	WordListID  *string   `json:"wordListId"`
	WrongCount  int       `json:"wrongCount"`
	LastWrongAt time.Time `json:"lastWrongAt"`
	Word        string    `json:"word"`
	Meaning     string    `json:"meaning"`
}

// TestProgress is the snapshot pushed to progress subscribers after each
// session mutation.
type TestProgress struct {
	SessionID    string        `json:"sessionId"`
	Status       SessionStatus `json:"status"`
	CurrentIndex int           `json:"currentIndex"`
	Total        int           `json:"total"`
	CorrectIDs   []string      `json:"correctIds"`
	IncorrectIDs []string      `json:"incorrectIds"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
