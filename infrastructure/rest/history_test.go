package rest

import (
	"bookchat/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	messages []domain.StoredMessage
	err      error
}

func (f fakeReader) ListConversation(a, b string, cursor *string) ([]domain.StoredMessage, *string, error) {
	return f.messages, nil, f.err
}

func TestHistoryHandler_Returns_Conversation(t *testing.T) {
	req := require.New(t)
	reader := fakeReader{messages: []domain.StoredMessage{{
		ID:        uuid.New(),
		Text:      "hi",
		Sender:    domain.Participant{ID: "a1", UserName: "Alice"},
		Receiver:  domain.Participant{ID: "b1", UserName: "Bob"},
		CreatedAt: time.Now().UTC(),
	}}}
	handler := NewHistoryHandler(slog.Default(), reader)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/messages?userId=a1&peerId=b1", nil))

	req.Equal(200, recorder.Code)
	var response historyResponse
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.Len(response.Messages, 1)
	req.Equal("hi", response.Messages[0].Text)
}

func TestHistoryHandler_Requires_Both_Participants(t *testing.T) {
	req := require.New(t)
	handler := NewHistoryHandler(slog.Default(), fakeReader{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/messages?userId=a1", nil))

	req.Equal(400, recorder.Code)
}

func TestHistoryHandler_Storage_Error(t *testing.T) {
	req := require.New(t)
	handler := NewHistoryHandler(slog.Default(), fakeReader{err: fmt.Errorf("iterator broken")})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/messages?userId=a1&peerId=b1", nil))

	req.Equal(500, recorder.Code)
}
