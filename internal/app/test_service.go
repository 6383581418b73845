package app

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"vocab-test-service/internal/domain"
)

const historyLimit = 12

// TestService owns the test-session lifecycle: start, resume, answer, finish,
// plus the wrong-word and history read views.
type TestService struct {
	lists      WordListRepository
	words      WordReader
	sessions   TestSessionRepository
	answers    TestAnswerRepository
	wrongWords WrongWordRepository
	progress   *ProgressBroker
	now        func() time.Time
	rnd        *rand.Rand
}

func NewTestService(
	lists WordListRepository,
	words WordReader,
	sessions TestSessionRepository,
	answers TestAnswerRepository,
	wrongWords WrongWordRepository,
	progress *ProgressBroker,
) *TestService {
	return &TestService{
		lists:      lists,
		words:      words,
		sessions:   sessions,
		answers:    answers,
		wrongWords: wrongWords,
		progress:   progress,
		now:        time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *TestService) WithClock(now func() time.Time) *TestService {
	s.now = now
	return s
}

// WithRand is test-only for deterministic shuffles.
func (s *TestService) WithRand(rnd *rand.Rand) *TestService {
	s.rnd = rnd
	return s
}

// StartInput describes a session-start request.
type StartInput struct {
	ListID    *string
	Mode      domain.TestMode
	Shuffle   bool
	WrongOnly bool
}

// Start resolves the candidate word set, freezes its order, and creates a new
// active session. Any previously active session for the user is finished first
// with a null accuracy, so at most one session is ever active.
func (s *TestService) Start(ctx context.Context, user domain.User, in StartInput) (domain.TestSession, []domain.Word, error) {
	if !domain.ValidMode(in.Mode) {
		return domain.TestSession{}, nil, domain.ErrInvalidInput
	}

	words, listID, err := s.resolveWords(ctx, user, in)
	if err != nil {
		return domain.TestSession{}, nil, err
	}
	if len(words) == 0 {
		return domain.TestSession{}, nil, domain.ErrNoWords
	}

	now := s.now()
	stale, err := s.sessions.ListActiveSessions(ctx, user.ID)
	if err != nil {
		return domain.TestSession{}, nil, err
	}
	for _, old := range stale {
		if err := s.sessions.MarkSessionFinished(ctx, old.ID, now, nil); err != nil {
			return domain.TestSession{}, nil, err
		}
	}

	if in.Shuffle {
		s.rnd.Shuffle(len(words), func(i, j int) {
			words[i], words[j] = words[j], words[i]
		})
	}
	orderIDs := make([]string, len(words))
	for i, w := range words {
		orderIDs[i] = w.ID
	}

	session := domain.TestSession{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		WordListID:   listID,
		Mode:         in.Mode,
		Status:       domain.StatusActive,
		OrderIDs:     orderIDs,
		CurrentIndex: 0,
		CorrectIDs:   []string{},
		IncorrectIDs: []string{},
		StartedAt:    now,
	}
	if err := s.sessions.CreateSession(ctx, &session); err != nil {
		return domain.TestSession{}, nil, err
	}

	s.publish(user.ID, session)
	return session, words, nil
}

func (s *TestService) resolveWords(ctx context.Context, user domain.User, in StartInput) ([]domain.Word, *string, error) {
	switch {
	case in.WrongOnly && in.ListID != nil:
		if _, err := s.lists.FindOwnedList(ctx, *in.ListID, user.ID); err != nil {
			return nil, nil, err
		}
		words, err := s.wrongWords.ListWrongWords(ctx, user.ID, in.ListID)
		return words, in.ListID, err
	case in.WrongOnly:
		words, err := s.wrongWords.ListWrongWords(ctx, user.ID, nil)
		return words, nil, err
	case in.ListID != nil:
		if _, err := s.lists.FindOwnedList(ctx, *in.ListID, user.ID); err != nil {
			return nil, nil, err
		}
		words, err := s.words.ListWords(ctx, *in.ListID)
		return words, in.ListID, err
	default:
		return nil, nil, domain.ErrInvalidInput
	}
}

// Active returns the user's most recently started active session with its
// words rehydrated in quiz order, or a nil session when there is none.
func (s *TestService) Active(ctx context.Context, user domain.User) (*domain.TestSession, []domain.Word, error) {
	session, err := s.sessions.FindActiveSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, nil
	}

	words, err := s.words.FindWords(ctx, session.OrderIDs)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]domain.Word, len(words))
	for _, w := range words {
		byID[w.ID] = w
	}
	ordered := make([]domain.Word, 0, len(session.OrderIDs))
	for _, id := range session.OrderIDs {
		if w, ok := byID[id]; ok {
			ordered = append(ordered, w)
		}
	}
	return session, ordered, nil
}

// SubmitAnswer records one answer for the session's current word. The session
// record is authoritative: the submitted word must be the next unanswered word
// in quiz order, and the index and result sets are derived server-side.
// A wrong answer bumps the wrong-word counter in the session's list scope
// (when list-scoped) and always in the global scope.
func (s *TestService) SubmitAnswer(ctx context.Context, user domain.User, sessionID, wordID string, correct bool) (domain.TestSession, error) {
	session, err := s.sessions.FindOwnedSession(ctx, sessionID, user.ID)
	if err != nil {
		return domain.TestSession{}, err
	}
	if session.Status != domain.StatusActive {
		return domain.TestSession{}, domain.ErrInvalidState
	}
	if session.CurrentIndex >= len(session.OrderIDs) {
		return domain.TestSession{}, domain.ErrInvalidState
	}
	if session.OrderIDs[session.CurrentIndex] != wordID || session.Answered(wordID) {
		return domain.TestSession{}, domain.ErrInvalidInput
	}

	now := s.now()
	if err := s.answers.AppendAnswer(ctx, &domain.TestAnswer{
		ID:            uuid.NewString(),
		TestSessionID: session.ID,
		WordID:        wordID,
		Correct:       correct,
		AnsweredAt:    now,
	}); err != nil {
		return domain.TestSession{}, err
	}

	if !correct {
		if session.WordListID != nil {
			if err := s.wrongWords.IncrementWrong(ctx, user.ID, wordID, session.WordListID, now); err != nil {
				return domain.TestSession{}, err
			}
		}
		if err := s.wrongWords.IncrementWrong(ctx, user.ID, wordID, nil, now); err != nil {
			return domain.TestSession{}, err
		}
	}

	if correct {
		session.CorrectIDs = append(session.CorrectIDs, wordID)
	} else {
		session.IncorrectIDs = append(session.IncorrectIDs, wordID)
	}
	session.CurrentIndex++
	if err := s.sessions.UpdateSessionProgress(ctx, session.ID, session.CurrentIndex, session.CorrectIDs, session.IncorrectIDs); err != nil {
		return domain.TestSession{}, err
	}

	s.publish(user.ID, session)
	return session, nil
}

// Finish moves the session to its terminal state, recording the rounded
// accuracy (null when not finite). Finishing an already-finished session is a
// no-op that returns the stored terminal state unchanged.
func (s *TestService) Finish(ctx context.Context, user domain.User, sessionID string, accuracy float64) (domain.TestSession, error) {
	session, err := s.sessions.FindOwnedSession(ctx, sessionID, user.ID)
	if err != nil {
		return domain.TestSession{}, err
	}
	if session.Status == domain.StatusFinished {
		return session, nil
	}

	var acc *int
	if !math.IsNaN(accuracy) && !math.IsInf(accuracy, 0) {
		rounded := int(math.Round(accuracy))
		acc = &rounded
	}
	now := s.now()
	if err := s.sessions.MarkSessionFinished(ctx, session.ID, now, acc); err != nil {
		return domain.TestSession{}, err
	}
	session.Status = domain.StatusFinished
	session.FinishedAt = &now
	session.Accuracy = acc

	s.publish(user.ID, session)
	return session, nil
}

// WrongWords lists the user's miss counters, most-missed first.
func (s *TestService) WrongWords(ctx context.Context, user domain.User, filter WrongWordFilter) ([]domain.WrongWordEntry, error) {
	return s.wrongWords.ListWrongEntries(ctx, user.ID, filter)
}

// History returns the user's most recent finished sessions, newest first.
func (s *TestService) History(ctx context.Context, user domain.User) ([]domain.TestSession, error) {
	return s.sessions.ListFinishedSessions(ctx, user.ID, historyLimit)
}

func (s *TestService) publish(userID string, session domain.TestSession) {
	if s.progress == nil {
		return
	}
	s.progress.Publish(userID, domain.TestProgress{
		SessionID:    session.ID,
		Status:       session.Status,
		CurrentIndex: session.CurrentIndex,
		Total:        len(session.OrderIDs),
		CorrectIDs:   session.CorrectIDs,
		IncorrectIDs: session.IncorrectIDs,
		UpdatedAt:    s.now(),
	})
}
