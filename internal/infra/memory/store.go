package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vocab-test-service/internal/app"
	"vocab-test-service/internal/domain"
)

// Store is an in-memory implementation of every app repository. It backs unit
// tests and serves as the fallback when postgres is not configured.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	lists      map[string]domain.WordList
	words      map[string]domain.Word
	sessions   map[string]domain.TestSession
	answers    []domain.TestAnswer
	wrongWords map[wrongKey]domain.WrongWordEntry
	tokens     map[string]tokenEntry
	clock      func() time.Time
}

type wrongKey struct {
	userID string
	wordID string
	listID string // empty for the global scope
}

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		lists:      make(map[string]domain.WordList),
		words:      make(map[string]domain.Word),
		sessions:   make(map[string]domain.TestSession),
		wrongWords: make(map[wrongKey]domain.WrongWordEntry),
		tokens:     make(map[string]tokenEntry),
		clock:      time.Now,
	}
}

var (
	_ app.UserRepository        = (*Store)(nil)
	_ app.TokenStore            = (*Store)(nil)
	_ app.WordListRepository    = (*Store)(nil)
	_ app.WordWriter            = (*Store)(nil)
	_ app.WordReader            = (*Store)(nil)
	_ app.TestSessionRepository = (*Store)(nil)
	_ app.TestAnswerRepository  = (*Store)(nil)
	_ app.WrongWordRepository   = (*Store)(nil)
)

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) FindUserByName(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *Store) FindUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *Store) SaveToken(_ context.Context, tokenHash, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = tokenEntry{userID: userID, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *Store) LookupToken(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[tokenHash]
	if !ok {
		return "", domain.ErrNotFound
	}
	if !entry.expiresAt.After(s.clock()) {
		delete(s.tokens, tokenHash)
		return "", domain.ErrNotFound
	}
	return entry.userID, nil
}

func (s *Store) DeleteToken(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenHash)
	return nil
}

func (s *Store) CreateList(_ context.Context, list *domain.WordList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[list.ID] = *list
	return nil
}

func (s *Store) FindOwnedList(_ context.Context, listID, userID string) (domain.WordList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.lists[listID]
	if !ok || list.UserID != userID {
		return domain.WordList{}, domain.ErrNotFound
	}
	return list, nil
}

func (s *Store) ListsByUser(_ context.Context, userID string) ([]domain.WordList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var lists []domain.WordList
	for _, list := range s.lists {
		if list.UserID == userID {
			lists = append(lists, list)
		}
	}
	sort.Slice(lists, func(i, j int) bool {
		return lists[i].CreatedAt.After(lists[j].CreatedAt)
	})
	return lists, nil
}

func (s *Store) CreateWords(_ context.Context, words []*domain.Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, word := range words {
		s.words[word.ID] = *word
	}
	return nil
}

func (s *Store) ListWords(_ context.Context, listID string) ([]domain.Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var words []domain.Word
	for _, word := range s.words {
		if word.WordListID == listID {
			words = append(words, word)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		return words[i].Position < words[j].Position
	})
	return words, nil
}

func (s *Store) FindWords(_ context.Context, ids []string) ([]domain.Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	words := make([]domain.Word, 0, len(ids))
	for _, id := range ids {
		if word, ok := s.words[id]; ok {
			words = append(words, word)
		}
	}
	return words, nil
}

func (s *Store) CreateSession(_ context.Context, session *domain.TestSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(*session)
	return nil
}

func (s *Store) FindOwnedSession(_ context.Context, sessionID, userID string) (domain.TestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return domain.TestSession{}, domain.ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *Store) FindActiveSession(_ context.Context, userID string) (*domain.TestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *domain.TestSession
	for id := range s.sessions {
		session := s.sessions[id]
		if session.UserID != userID || session.Status != domain.StatusActive {
			continue
		}
		if newest == nil || session.StartedAt.After(newest.StartedAt) {
			copied := cloneSession(session)
			newest = &copied
		}
	}
	return newest, nil
}

func (s *Store) ListActiveSessions(_ context.Context, userID string) ([]domain.TestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []domain.TestSession
	for _, session := range s.sessions {
		if session.UserID == userID && session.Status == domain.StatusActive {
			sessions = append(sessions, cloneSession(session))
		}
	}
	return sessions, nil
}

func (s *Store) UpdateSessionProgress(_ context.Context, sessionID string, currentIndex int, correctIDs, incorrectIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	session.CurrentIndex = currentIndex
	session.CorrectIDs = cloneIDs(correctIDs)
	session.IncorrectIDs = cloneIDs(incorrectIDs)
	s.sessions[sessionID] = session
	return nil
}

func (s *Store) MarkSessionFinished(_ context.Context, sessionID string, finishedAt time.Time, accuracy *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	session.Status = domain.StatusFinished
	session.FinishedAt = &finishedAt
	session.Accuracy = accuracy
	s.sessions[sessionID] = session
	return nil
}

func (s *Store) ListFinishedSessions(_ context.Context, userID string, limit int) ([]domain.TestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []domain.TestSession
	for _, session := range s.sessions {
		if session.UserID == userID && session.Status == domain.StatusFinished {
			sessions = append(sessions, cloneSession(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		ti, tj := sessions[i].FinishedAt, sessions[j].FinishedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *Store) AppendAnswer(_ context.Context, answer *domain.TestAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, *answer)
	return nil
}

// Answers exposes the audit log for tests.
func (s *Store) Answers(sessionID string) []domain.TestAnswer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var answers []domain.TestAnswer
	for _, answer := range s.answers {
		if answer.TestSessionID == sessionID {
			answers = append(answers, answer)
		}
	}
	return answers
}

func (s *Store) IncrementWrong(_ context.Context, userID, wordID string, listID *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := wrongKey{userID: userID, wordID: wordID}
	if listID != nil {
		key.listID = *listID
	}
	entry, ok := s.wrongWords[key]
	if !ok {
		entry = domain.WrongWordEntry{UserID: userID, WordID: wordID, WordListID: listID}
	}
	entry.WrongCount++
	entry.LastWrongAt = at
	s.wrongWords[key] = entry
	return nil
}

func (s *Store) ListWrongEntries(_ context.Context, userID string, filter app.WrongWordFilter) ([]domain.WrongWordEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []domain.WrongWordEntry
	for key, entry := range s.wrongWords {
		if key.userID != userID {
			continue
		}
		if filter.ListID != nil && key.listID != *filter.ListID {
			continue
		}
		if filter.ListID == nil && filter.GlobalOnly && key.listID != "" {
			continue
		}
		if word, ok := s.words[entry.WordID]; ok {
			entry.Word = word.Word
			entry.Meaning = word.Meaning
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].WrongCount > entries[j].WrongCount
	})
	return entries, nil
}

func (s *Store) ListWrongWords(_ context.Context, userID string, listID *string) ([]domain.Word, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := ""
	if listID != nil {
		scope = *listID
	}
	var words []domain.Word
	for key, entry := range s.wrongWords {
		if key.userID != userID || key.listID != scope {
			continue
		}
		if word, ok := s.words[entry.WordID]; ok {
			words = append(words, word)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		return words[i].Position < words[j].Position
	})
	return words, nil
}

func cloneSession(session domain.TestSession) domain.TestSession {
	session.OrderIDs = cloneIDs(session.OrderIDs)
	session.CorrectIDs = cloneIDs(session.CorrectIDs)
	session.IncorrectIDs = cloneIDs(session.IncorrectIDs)
	return session
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
