// Package ws exposes the relay over a websocket endpoint. One goroutine
// reads each connection in arrival order, which is what gives the
// per-connection ordering guarantee; slow persistence on one connection
// never stalls another.
package ws

import (
	"bookchat/auth"
	"bookchat/contract"
	"bookchat/domain"
	apperrors "bookchat/errors"
	"bookchat/observability"
	"bookchat/relay"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Error texts surfaced to clients. Deliberately vague: the slog entry
// carries the cause, the client only needs to know its draft was refused.
const (
	invalidMessageText = "Invalid message data"
	persistenceText    = "An error occurred while saving the message"
)

type Server struct {
	log          *slog.Logger
	registry     contract.IRegistry
	relay        *relay.Service
	verifier     *auth.Verifier
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
}

// NewServer builds the websocket handler. verifier may be nil, in which
// case the userId query parameter is trusted as-is, exactly like the
// handshake the web client performs today.
func NewServer(log *slog.Logger, registry contract.IRegistry, relayService *relay.Service,
	verifier *auth.Verifier, metrics *observability.Metrics,
	bufferSize int, writeTimeout time.Duration) *Server {
	return &Server{
		log:      log,
		registry: registry,
		relay:    relayService,
		verifier: verifier,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from another origin in dev
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
	}
}

// ServeHTTP upgrades the request, registers the session under its identity
// and runs the read loop until the client goes away. Registration and
// removal bracket the whole connection lifetime, so a session is reachable
// by fan-out exactly while it is live.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("userId")
	if s.verifier != nil {
		claims, err := s.verifier.Verify(r.URL.Query().Get("token"))
		if err != nil {
			s.log.Warn("Rejected handshake with invalid token", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		identity = claims.UserID
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	session := newSession(s.log, conn, identity, s.bufferSize, s.writeTimeout)
	s.registry.Add(identity, session)
	s.metrics.OpenConnections.Inc()
	s.log.Info("Session opened", "session_id", session.ID(), "identity", identity)

	go session.writePump()

	defer func() {
		s.registry.Remove(identity, session)
		s.metrics.OpenConnections.Dec()
		session.close()
		s.log.Info("Session closed", "session_id", session.ID(), "identity", identity)
	}()

	s.readLoop(r, session)
}

// readLoop processes inbound frames strictly in arrival order.
func (s *Server) readLoop(r *http.Request, session *Session) {
	for {
		_, frame, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Session read ended", "session_id", session.ID(), "error", err)
			}
			return
		}
		s.handleFrame(r.Context(), session, frame)
	}
}

func (s *Server) handleFrame(ctx context.Context, session *Session, frame []byte) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		session.sendError(invalidMessageText)
		return
	}

	switch envelope.Event {
	case EventSendMessage:
		var payload draftPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.Text == nil {
			session.sendError(invalidMessageText)
			return
		}
		draft := domain.DraftMessage{
			Text:     *payload.Text,
			Sender:   payload.Sender,
			Receiver: payload.Receiver,
		}
		if err := s.relay.HandleDraft(ctx, session, draft); err != nil {
			if stderrors.Is(err, apperrors.ErrPersistence) {
				s.log.Error("Failed to store message",
					"session_id", session.ID(), "identity", session.Identity(), "error", err)
				session.sendError(persistenceText)
				return
			}
			s.log.Warn("Rejected draft",
				"session_id", session.ID(), "identity", session.Identity(), "error", err)
			session.sendError(invalidMessageText)
		}
	default:
		session.sendError(fmt.Sprintf("unknown event %q", envelope.Event))
	}
}
