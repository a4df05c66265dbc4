package ws

import (
	"bookchat/auth"
	"bookchat/domain"
	"bookchat/observability"
	"bookchat/relay"
	"bookchat/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	stored []domain.StoredMessage
	fail   bool
}

func (f *fakeStore) Store(_ context.Context, draft domain.DraftMessage) (domain.StoredMessage, error) {
	if f.fail {
		return domain.StoredMessage{}, fmt.Errorf("store offline")
	}
	msg := domain.StoredMessage{
		ID:        uuid.New(),
		Text:      draft.Text,
		Sender:    domain.Participant{ID: draft.Sender, UserName: "Alice"},
		Receiver:  domain.Participant{ID: draft.Receiver, UserName: "Bob"},
		CreatedAt: time.Now().UTC(),
	}
	f.mu.Lock()
	f.stored = append(f.stored, msg)
	f.mu.Unlock()
	return msg, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

func newTestRelay(t *testing.T, store *fakeStore, verifier *auth.Verifier) (*httptest.Server, *runtime.Registry) {
	t.Helper()
	log := slog.Default()
	registry := runtime.NewRegistry()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	service := relay.NewService(log, registry, store, 500, false, metrics)
	server := httptest.NewServer(NewServer(log, registry, service, verifier, metrics, 32, time.Second))
	t.Cleanup(server.Close)
	return server, registry
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := marshalEnvelope(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var envelope Envelope
	require.NoError(t, json.Unmarshal(frame, &envelope))
	return envelope
}

func readStored(t *testing.T, conn *websocket.Conn) domain.StoredMessage {
	t.Helper()
	envelope := readEnvelope(t, conn)
	require.Equal(t, EventReceiveMessage, envelope.Event)
	var msg domain.StoredMessage
	require.NoError(t, json.Unmarshal(envelope.Data, &msg))
	return msg
}

// requireSilence asserts no further frame arrives within a short window.
func requireSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func waitForSessions(t *testing.T, registry *runtime.Registry, identity string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(registry.SessionsFor(identity)) == want
	}, time.Second, 10*time.Millisecond)
}

func TestRelay_Delivers_To_All_Sessions_Of_Both_Participants(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	server, registry := newTestRelay(t, store, nil)

	// Given user a1 connects with two sessions and user b1 with one
	aTab1 := dial(t, server, "userId=a1")
	aTab2 := dial(t, server, "userId=a1")
	bPhone := dial(t, server, "userId=b1")
	waitForSessions(t, registry, "a1", 2)
	waitForSessions(t, registry, "b1", 1)

	// When a1 sends a message to b1
	sendEvent(t, aTab1, EventSendMessage, domain.DraftMessage{
		Text: "hi", Sender: "a1", Receiver: "b1",
	})

	// Then one message is stored and all three sessions receive it once
	first := readStored(t, aTab1)
	second := readStored(t, aTab2)
	third := readStored(t, bPhone)

	req.Equal(1, store.count())
	req.Equal(first.ID, second.ID)
	req.Equal(first.ID, third.ID)
	req.Equal("hi", first.Text)
	req.Equal("Alice", first.Sender.UserName)
	req.Equal("Bob", first.Receiver.UserName)

	// And nobody receives a duplicate
	requireSilence(t, aTab1)
	requireSilence(t, bPhone)
}

func TestRelay_Rejects_Oversize_Draft(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	server, registry := newTestRelay(t, store, nil)

	origin := dial(t, server, "userId=a1")
	receiver := dial(t, server, "userId=b1")
	waitForSessions(t, registry, "a1", 1)
	waitForSessions(t, registry, "b1", 1)

	// When the draft is one character over the limit
	sendEvent(t, origin, EventSendMessage, domain.DraftMessage{
		Text: strings.Repeat("x", 501), Sender: "a1", Receiver: "b1",
	})

	// Then only the origin gets exactly one error event
	envelope := readEnvelope(t, origin)
	req.Equal(EventError, envelope.Event)
	var payload ErrorPayload
	req.NoError(json.Unmarshal(envelope.Data, &payload))
	req.Equal("Invalid message data", payload.Message)

	// And nothing was persisted or fanned out
	req.Zero(store.count())
	requireSilence(t, origin)
	requireSilence(t, receiver)
}

func TestRelay_Reports_Persistence_Failure_To_Origin_Only(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{fail: true}
	server, registry := newTestRelay(t, store, nil)

	origin := dial(t, server, "userId=a1")
	receiver := dial(t, server, "userId=b1")
	waitForSessions(t, registry, "a1", 1)
	waitForSessions(t, registry, "b1", 1)

	// When the store is unavailable
	sendEvent(t, origin, EventSendMessage, domain.DraftMessage{
		Text: "hi", Sender: "a1", Receiver: "b1",
	})

	// Then the origin gets one error event and no receive_message goes out
	envelope := readEnvelope(t, origin)
	req.Equal(EventError, envelope.Event)
	var payload ErrorPayload
	req.NoError(json.Unmarshal(envelope.Data, &payload))
	req.Equal("An error occurred while saving the message", payload.Message)

	requireSilence(t, origin)
	requireSilence(t, receiver)
}

func TestRelay_Rejects_Unknown_Event(t *testing.T) {
	req := require.New(t)
	server, registry := newTestRelay(t, &fakeStore{}, nil)

	origin := dial(t, server, "userId=a1")
	waitForSessions(t, registry, "a1", 1)

	sendEvent(t, origin, "join_room", map[string]string{"room": "42"})

	envelope := readEnvelope(t, origin)
	req.Equal(EventError, envelope.Event)
}

func TestRelay_Rejects_Malformed_Frame(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	server, registry := newTestRelay(t, store, nil)

	origin := dial(t, server, "userId=a1")
	waitForSessions(t, registry, "a1", 1)

	// When the text field is not a string
	req.NoError(origin.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"send_message","data":{"text":42,"sender":"a1","receiver":"b1"}}`)))

	envelope := readEnvelope(t, origin)
	req.Equal(EventError, envelope.Event)
	req.Zero(store.count())
}

func TestRelay_Rejects_Draft_Without_Text_Field(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	server, registry := newTestRelay(t, store, nil)

	origin := dial(t, server, "userId=a1")
	receiver := dial(t, server, "userId=b1")
	waitForSessions(t, registry, "a1", 1)
	waitForSessions(t, registry, "b1", 1)

	// When the payload carries no text field at all
	req.NoError(origin.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"send_message","data":{"sender":"a1","receiver":"b1"}}`)))

	// Then only the origin gets an error event and nothing is persisted
	envelope := readEnvelope(t, origin)
	req.Equal(EventError, envelope.Event)
	req.Zero(store.count())
	requireSilence(t, origin)
	requireSilence(t, receiver)
}

func TestRelay_Accepts_Empty_Text(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	server, registry := newTestRelay(t, store, nil)

	origin := dial(t, server, "userId=a1")
	waitForSessions(t, registry, "a1", 1)

	// When the text is present but empty
	req.NoError(origin.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"send_message","data":{"text":"","sender":"a1","receiver":"b1"}}`)))

	// Then the message is stored and delivered like any other
	msg := readStored(t, origin)
	req.Empty(msg.Text)
	req.Equal(1, store.count())
}

func TestRelay_Disconnect_Does_Not_Affect_Sibling_Session(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	server, registry := newTestRelay(t, store, nil)

	// Given a1 had two sessions and one disconnected
	aTab1 := dial(t, server, "userId=a1")
	aTab2 := dial(t, server, "userId=a1")
	bPhone := dial(t, server, "userId=b1")
	waitForSessions(t, registry, "a1", 2)
	waitForSessions(t, registry, "b1", 1)

	req.NoError(aTab1.Close())
	waitForSessions(t, registry, "a1", 1)

	// When b1 sends a message after the disconnect completed
	sendEvent(t, bPhone, EventSendMessage, domain.DraftMessage{
		Text: "still there?", Sender: "b1", Receiver: "a1",
	})

	// Then the remaining session receives it exactly once
	msg := readStored(t, aTab2)
	req.Equal("still there?", msg.Text)
	requireSilence(t, aTab2)
}

func TestRelay_Handshake_Token_Overrides_Declared_Identity(t *testing.T) {
	req := require.New(t)
	store := &fakeStore{}
	verifier := auth.NewVerifier("relay-test-secret")
	server, registry := newTestRelay(t, store, verifier)

	token, err := verifier.GenerateToken("a1", time.Hour)
	req.NoError(err)

	// Given a connection claiming to be b1 but carrying a token for a1
	dial(t, server, "userId=b1&token="+token)
	waitForSessions(t, registry, "a1", 1)

	// Then the session is registered under the proven identity
	req.Empty(registry.SessionsFor("b1"))
}

func TestRelay_Handshake_Rejects_Invalid_Token(t *testing.T) {
	req := require.New(t)
	verifier := auth.NewVerifier("relay-test-secret")
	server, _ := newTestRelay(t, &fakeStore{}, verifier)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?userId=a1&token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.Error(err)
	req.NotNil(resp)
	req.Equal(401, resp.StatusCode)
}
