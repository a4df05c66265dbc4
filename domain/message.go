// Package domain contains core concepts of the message relay.
// This file defines the draft and stored message records.
// Stored messages are immutable once returned by persistence.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DraftMessage is the inbound, untrusted payload of a send_message event.
// It carries whatever the client declared; nothing in it is verified
// beyond shape and length before persistence.
type DraftMessage struct {
	Text     string `json:"text"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

// Participant is a user identity enriched with its display name.
// UserName stays empty when the identity has no known profile.
type Participant struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
}

// StoredMessage is the durable, canonical chat record. ID and CreatedAt
// are assigned by persistence, never taken from the client.
type StoredMessage struct {
	ID        uuid.UUID   `json:"id"`
	Text      string      `json:"text"`
	Sender    Participant `json:"sender"`
	Receiver  Participant `json:"receiver"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ConversationKey returns the storage key shared by both directions of a
// one-to-one conversation. The pair is sorted so that (a,b) and (b,a)
// land in the same prefix.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}
