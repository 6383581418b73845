package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"vocab-test-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleProgressWS streams the user's test-progress snapshots over a
// websocket: the current active session on connect, then one frame per
// start/answer/finish.
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request, user domain.User) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := s.broker.Subscribe(user.ID)
	defer cancel()

	if session, _, err := s.tests.Active(r.Context(), user); err == nil && session != nil {
		snapshot := domain.TestProgress{
			SessionID:    session.ID,
			Status:       session.Status,
			CurrentIndex: session.CurrentIndex,
			Total:        len(session.OrderIDs),
			CorrectIDs:   session.CorrectIDs,
			IncorrectIDs: session.IncorrectIDs,
			UpdatedAt:    session.StartedAt,
		}
		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}
	}

	// Reads are discarded; the read loop only notices a closed peer.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case progress, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(progress); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
