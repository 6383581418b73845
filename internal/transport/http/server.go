package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"vocab-test-service/internal/app"
	"vocab-test-service/internal/domain"
)

const maxImageBytes = 10 << 20

// CookieConfig controls the session cookie the auth handlers issue.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Server wires the application services into HTTP handlers.
type Server struct {
	auth   *app.AuthService
	tests  *app.TestService
	ingest *app.IngestService
	broker *app.ProgressBroker
	cookie CookieConfig
}

func NewServer(auth *app.AuthService, tests *app.TestService, ingest *app.IngestService, broker *app.ProgressBroker, cookie CookieConfig) *Server {
	if cookie.Name == "" {
		cookie.Name = "vt_session"
	}
	return &Server{auth: auth, tests: tests, ingest: ingest, broker: broker, cookie: cookie}
}

// Routes builds the service mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/word-lists", s.withUser(s.handleWordLists))
	mux.HandleFunc("POST /api/words/image", s.withUser(s.handleImportImage))
	mux.HandleFunc("POST /api/words/text", s.withUser(s.handleImportText))

	mux.HandleFunc("POST /api/test/start", s.withUser(s.handleStartTest))
	mux.HandleFunc("GET /api/test/active", s.withUser(s.handleActiveTest))
	mux.HandleFunc("POST /api/test/answer", s.withUser(s.handleAnswer))
	mux.HandleFunc("POST /api/test/finish", s.withUser(s.handleFinish))

	mux.HandleFunc("GET /api/wrong-words", s.withUser(s.handleWrongWords))
	mux.HandleFunc("GET /api/history", s.withUser(s.handleHistory))

	mux.HandleFunc("GET /ws/progress", s.withUser(s.handleProgressWS))
	return mux
}

// withUser resolves the session cookie into a user before calling next.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, domain.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cookie.Name)
		if err != nil {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		user, err := s.auth.Resolve(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, user)
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	user, creds, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	s.setSessionCookie(w, creds)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	user, creds, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	s.setSessionCookie(w, creds)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cookie.Name); err == nil && cookie.Value != "" {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWordLists(w http.ResponseWriter, r *http.Request, user domain.User) {
	lists, err := s.ingest.Lists(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	if lists == nil {
		lists = []domain.WordList{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": lists})
}

func (s *Server) handleImportImage(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	list, words, err := s.ingest.ImportImage(r.Context(), user, data, contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list, "words": words})
}

func (s *Server) handleImportText(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	list, words, err := s.ingest.ImportText(r.Context(), user, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list, "words": words})
}

type startTestRequest struct {
	ListID    *string `json:"listId"`
	Mode      string  `json:"mode"`
	Shuffle   bool    `json:"shuffle"`
	WrongOnly bool    `json:"wrongOnly"`
}

func (s *Server) handleStartTest(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req startTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	session, words, err := s.tests.Start(r.Context(), user, app.StartInput{
		ListID:    req.ListID,
		Mode:      domain.TestMode(req.Mode),
		Shuffle:   req.Shuffle,
		WrongOnly: req.WrongOnly,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session, "words": words})
}

func (s *Server) handleActiveTest(w http.ResponseWriter, r *http.Request, user domain.User) {
	session, words, err := s.tests.Active(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]any{"session": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session, "words": words})
}

// answerRequest still carries the bookkeeping fields older clients send; the
// server derives index and result sets itself, so they are ignored.
type answerRequest struct {
	SessionID    string   `json:"sessionId"`
	WordID       string   `json:"wordId"`
	Correct      bool     `json:"correct"`
	CurrentIndex int      `json:"currentIndex"`
	CorrectIDs   []string `json:"correctIds"`
	IncorrectIDs []string `json:"incorrectIds"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if req.SessionID == "" || req.WordID == "" {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	session, err := s.tests.SubmitAnswer(r.Context(), user, req.SessionID, req.WordID, req.Correct)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session": session})
}

// Accuracy is a pointer because clients send null when no answers were
// scored (JSON has no NaN); null must be stored as null, not zero.
type finishRequest struct {
	SessionID string   `json:"sessionId"`
	Accuracy  *float64 `json:"accuracy"`
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req finishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if req.SessionID == "" {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	accuracy := math.NaN()
	if req.Accuracy != nil {
		accuracy = *req.Accuracy
	}
	if _, err := s.tests.Finish(r.Context(), user, req.SessionID, accuracy); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWrongWords(w http.ResponseWriter, r *http.Request, user domain.User) {
	var filter app.WrongWordFilter
	if listID := r.URL.Query().Get("listId"); listID != "" {
		filter.ListID = &listID
	} else if r.URL.Query().Get("scope") == "global" {
		filter.GlobalOnly = true
	}
	items, err := s.tests.WrongWords(r.Context(), user, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.WrongWordEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, user domain.User) {
	items, err := s.tests.History(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.TestSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, creds app.Credentials) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    creds.Token,
		Path:     "/",
		Expires:  creds.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNoWords), errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
