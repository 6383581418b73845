package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vocab-test-service/internal/app"
	"vocab-test-service/internal/domain"
	"vocab-test-service/internal/infra/memory"
	transport "vocab-test-service/internal/transport/http"
)

type stubExtractor struct{}

func (stubExtractor) ExtractFromImage(_ context.Context, _ string) ([]domain.WordEntry, error) {
	return []domain.WordEntry{{Word: "cat", Meaning: "猫"}}, nil
}

func (stubExtractor) Normalize(_ context.Context, entries []domain.WordEntry) ([]domain.WordEntry, error) {
	out := make([]domain.WordEntry, len(entries))
	for i, e := range entries {
		if e.Meaning == "" {
			e.Meaning = "释义"
		}
		out[i] = e
	}
	return out, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	broker := app.NewProgressBroker()
	auth := app.NewAuthService(store, store, time.Hour)
	tests := app.NewTestService(store, store, store, store, store, broker)
	ingest := app.NewIngestService(stubExtractor{}, store, store)

	server := transport.NewServer(auth, tests, ingest, broker, transport.CookieConfig{})
	srv := httptest.NewServer(server.Routes())
	t.Cleanup(srv.Close)
	return srv
}

// client keeps the session cookie between calls, like a browser would.
type client struct {
	t       *testing.T
	baseURL string
	http    *http.Client
	cookie  *http.Cookie
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	return &client{t: t, baseURL: srv.URL, http: srv.Client()}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "vt_session" {
			if cookie.Value == "" {
				c.cookie = nil
			} else {
				c.cookie = cookie
			}
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (c *client) register(username string) {
	c.t.Helper()
	status := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"password": "secret123",
	}, nil)
	if status != http.StatusOK {
		c.t.Fatalf("register returned %d", status)
	}
}

func (c *client) importText(text string) (listID string, wordIDs []string) {
	c.t.Helper()
	var resp struct {
		List  domain.WordList `json:"list"`
		Words []domain.Word   `json:"words"`
	}
	status := c.do(http.MethodPost, "/api/words/text", map[string]string{"text": text}, &resp)
	if status != http.StatusOK {
		c.t.Fatalf("import returned %d", status)
	}
	for _, w := range resp.Words {
		wordIDs = append(wordIDs, w.ID)
	}
	return resp.List.ID, wordIDs
}

func TestRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	for _, path := range []string{"/api/word-lists", "/api/test/active", "/api/wrong-words", "/api/history"} {
		if status := c.do(http.MethodGet, path, nil, nil); status != http.StatusUnauthorized {
			t.Fatalf("GET %s without cookie returned %d", path, status)
		}
	}
	if status := c.do(http.MethodPost, "/api/test/start", map[string]string{"mode": "english-to-chinese"}, nil); status != http.StatusUnauthorized {
		t.Fatalf("start without cookie returned %d", status)
	}
}

func TestRegisterSetsCookie(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	var resp struct {
		User domain.User `json:"user"`
	}
	status := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice_01",
		"password": "secret123",
	}, &resp)
	if status != http.StatusOK {
		t.Fatalf("register returned %d", status)
	}
	if resp.User.Username != "alice_01" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if c.cookie == nil {
		t.Fatalf("expected session cookie")
	}
	if !c.cookie.HttpOnly {
		t.Fatalf("session cookie must be http-only")
	}

	if status := c.do(http.MethodGet, "/api/word-lists", nil, nil); status != http.StatusOK {
		t.Fatalf("authed request returned %d", status)
	}
}

func TestDuplicateRegisterConflicts(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice_01")

	other := newClient(t, srv)
	status := other.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice_01",
		"password": "secret123",
	}, nil)
	if status != http.StatusConflict {
		t.Fatalf("duplicate register returned %d", status)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice_01")

	saved := c.cookie
	if status := c.do(http.MethodPost, "/api/auth/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("logout returned %d", status)
	}

	c.cookie = saved
	if status := c.do(http.MethodGet, "/api/word-lists", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("revoked cookie returned %d", status)
	}
}

func TestFullQuizFlow(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice_01")

	listID, wordIDs := c.importText("apple\nbanana\ncherry")
	if len(wordIDs) != 3 {
		t.Fatalf("expected 3 words, got %d", len(wordIDs))
	}

	var startResp struct {
		Session domain.TestSession `json:"session"`
		Words   []domain.Word      `json:"words"`
	}
	status := c.do(http.MethodPost, "/api/test/start", map[string]any{
		"listId":  listID,
		"mode":    "english-to-chinese",
		"shuffle": false,
	}, &startResp)
	if status != http.StatusOK {
		t.Fatalf("start returned %d", status)
	}
	if startResp.Session.Status != domain.StatusActive || len(startResp.Session.OrderIDs) != 3 {
		t.Fatalf("unexpected session %+v", startResp.Session)
	}
	if len(startResp.Words) != 3 {
		t.Fatalf("expected words in start response, got %d", len(startResp.Words))
	}

	// resume sees the same session
	var activeResp struct {
		Session *domain.TestSession `json:"session"`
	}
	if status := c.do(http.MethodGet, "/api/test/active", nil, &activeResp); status != http.StatusOK {
		t.Fatalf("active returned %d", status)
	}
	if activeResp.Session == nil || activeResp.Session.ID != startResp.Session.ID {
		t.Fatalf("expected active session %s, got %+v", startResp.Session.ID, activeResp.Session)
	}

	order := startResp.Session.OrderIDs
	answers := []bool{true, false, true}
	var answerResp struct {
		Session domain.TestSession `json:"session"`
	}
	for i, wordID := range order {
		status := c.do(http.MethodPost, "/api/test/answer", map[string]any{
			"sessionId": startResp.Session.ID,
			"wordId":    wordID,
			"correct":   answers[i],
		}, &answerResp)
		if status != http.StatusOK {
			t.Fatalf("answer %d returned %d", i, status)
		}
	}
	if answerResp.Session.CurrentIndex != 3 {
		t.Fatalf("expected index 3 after all answers, got %d", answerResp.Session.CurrentIndex)
	}

	if status := c.do(http.MethodPost, "/api/test/finish", map[string]any{
		"sessionId": startResp.Session.ID,
		"accuracy":  66.7,
	}, nil); status != http.StatusOK {
		t.Fatalf("finish returned %d", status)
	}

	var histResp struct {
		Items []domain.TestSession `json:"items"`
	}
	if status := c.do(http.MethodGet, "/api/history", nil, &histResp); status != http.StatusOK {
		t.Fatalf("history returned %d", status)
	}
	if len(histResp.Items) != 1 || histResp.Items[0].Accuracy == nil || *histResp.Items[0].Accuracy != 67 {
		t.Fatalf("unexpected history %+v", histResp.Items)
	}

	var wrongResp struct {
		Items []domain.WrongWordEntry `json:"items"`
	}
	if status := c.do(http.MethodGet, "/api/wrong-words?listId="+listID, nil, &wrongResp); status != http.StatusOK {
		t.Fatalf("wrong-words returned %d", status)
	}
	if len(wrongResp.Items) != 1 || wrongResp.Items[0].WordID != order[1] || wrongResp.Items[0].WrongCount != 1 {
		t.Fatalf("unexpected wrong words %+v", wrongResp.Items)
	}
}

func TestFinishWithNullAccuracyStoresNull(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice_01")

	listID, _ := c.importText("apple")
	var startResp struct {
		Session domain.TestSession `json:"session"`
	}
	if status := c.do(http.MethodPost, "/api/test/start", map[string]any{
		"listId": listID,
		"mode":   "english-to-chinese",
	}, &startResp); status != http.StatusOK {
		t.Fatalf("start returned %d", status)
	}

	// zero answers scored: the client sends accuracy null
	if status := c.do(http.MethodPost, "/api/test/finish", map[string]any{
		"sessionId": startResp.Session.ID,
		"accuracy":  nil,
	}, nil); status != http.StatusOK {
		t.Fatalf("finish returned %d", status)
	}

	var histResp struct {
		Items []domain.TestSession `json:"items"`
	}
	if status := c.do(http.MethodGet, "/api/history", nil, &histResp); status != http.StatusOK {
		t.Fatalf("history returned %d", status)
	}
	if len(histResp.Items) != 1 {
		t.Fatalf("expected 1 finished session, got %d", len(histResp.Items))
	}
	if histResp.Items[0].Accuracy != nil {
		t.Fatalf("expected null accuracy, got %d", *histResp.Items[0].Accuracy)
	}
}

func TestAnswerOutOfOrderRejected(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice_01")

	listID, _ := c.importText("apple\nbanana")
	var startResp struct {
		Session domain.TestSession `json:"session"`
	}
	if status := c.do(http.MethodPost, "/api/test/start", map[string]any{
		"listId": listID,
		"mode":   "english-to-chinese",
	}, &startResp); status != http.StatusOK {
		t.Fatalf("start returned %d", status)
	}

	// second word before the first
	status := c.do(http.MethodPost, "/api/test/answer", map[string]any{
		"sessionId": startResp.Session.ID,
		"wordId":    startResp.Session.OrderIDs[1],
		"correct":   true,
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("out-of-order answer returned %d", status)
	}
}

func TestStartWithoutWordsRejected(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice_01")

	status := c.do(http.MethodPost, "/api/test/start", map[string]any{
		"mode":      "english-to-chinese",
		"wrongOnly": true,
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("empty wrong-only start returned %d", status)
	}
}

func TestProgressWebsocket(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.register("alice_01")

	listID, _ := c.importText("apple\nbanana")
	var startResp struct {
		Session domain.TestSession `json:"session"`
	}
	if status := c.do(http.MethodPost, "/api/test/start", map[string]any{
		"listId": listID,
		"mode":   "english-to-chinese",
	}, &startResp); status != http.StatusOK {
		t.Fatalf("start returned %d", status)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	header := http.Header{}
	header.Add("Cookie", fmt.Sprintf("vt_session=%s", c.cookie.Value))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// initial snapshot of the active session
	var snapshot domain.TestProgress
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.SessionID != startResp.Session.ID || snapshot.CurrentIndex != 0 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	if status := c.do(http.MethodPost, "/api/test/answer", map[string]any{
		"sessionId": startResp.Session.ID,
		"wordId":    startResp.Session.OrderIDs[0],
		"correct":   true,
	}, nil); status != http.StatusOK {
		t.Fatalf("answer returned %d", status)
	}

	var update domain.TestProgress
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.CurrentIndex != 1 || len(update.CorrectIDs) != 1 {
		t.Fatalf("unexpected update %+v", update)
	}
}
