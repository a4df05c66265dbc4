package ws

import (
	"bookchat/domain"
	"bookchat/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session wraps one websocket connection. All outbound traffic goes
// through the send channel and a single write pump, so the gorilla
// one-writer rule holds and pushes from concurrent fan-outs never
// interleave on the wire.
type Session struct {
	id           string
	identity     string
	conn         *websocket.Conn
	log          *slog.Logger
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newSession(log *slog.Logger, conn *websocket.Conn, identity string,
	bufferSize int, writeTimeout time.Duration) *Session {
	return &Session{
		id:           uuid.NewString(),
		identity:     identity,
		conn:         conn,
		log:          log,
		send:         make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) Identity() string { return s.identity }

// Deliver queues an outbound receive_message envelope. It never blocks:
// the message is already durable, so a session that cannot keep up loses
// this one push instead of stalling the fan-out.
func (s *Session) Deliver(msg domain.StoredMessage) error {
	frame, err := marshalEnvelope(EventReceiveMessage, msg)
	if err != nil {
		return err
	}
	return s.push(frame)
}

// sendError reports a failure back to this session only.
func (s *Session) sendError(message string) {
	frame, err := marshalEnvelope(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	if err := s.push(frame); err != nil {
		s.log.Debug("Error notification lost",
			"session_id", s.id, "identity", s.identity, "error", err)
	}
}

func (s *Session) push(frame []byte) error {
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

// writePump drains the send channel onto the wire until the session closes.
func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug("Write failed, closing session",
					"session_id", s.id, "identity", s.identity, "error", err)
				s.close()
				return
			}
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
