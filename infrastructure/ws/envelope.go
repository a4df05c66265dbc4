package ws

import "encoding/json"

// Event names carried on the wire. They mirror the socket
// event vocabulary the web client already speaks.
const (
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
)

// Envelope is the JSON frame exchanged on a relay connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// draftPayload mirrors the send_message body. Text is a pointer so a
// frame with no text field is distinguishable from an empty string:
// absent text is rejected, empty text is a legal message.
type draftPayload struct {
	Text     *string `json:"text"`
	Sender   string  `json:"sender"`
	Receiver string  `json:"receiver"`
}

// ErrorPayload is the body of an error envelope, sent only to the
// connection whose event caused the failure.
type ErrorPayload struct {
	Message string `json:"message"`
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
