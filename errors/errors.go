package errors

import "fmt"

var (
	ErrInvalidMessage = fmt.Errorf("invalid message data")
	ErrPersistence    = fmt.Errorf("message could not be stored")
	ErrSenderMismatch = fmt.Errorf("declared sender does not match connection identity")
	ErrSlowConsumer   = fmt.Errorf("session send buffer is full")
	ErrSessionClosed  = fmt.Errorf("session is closed")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
)
