package repositories

import (
	"bookchat/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// MessageRepository is the badger-backed persistence gateway. It assigns
// the canonical ID and timestamp, resolves display names through the user
// directory and writes the enriched record in a single update.
type MessageRepository struct {
	db            *badger.DB
	users         IUserDirectory
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, users IUserDirectory, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, users: users, log: log, limitMessages: limitMessages}
}

// messageKey formats the storage key as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Group both directions of a one-to-one conversation under one prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(msg domain.StoredMessage) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		domain.ConversationKey(msg.Sender.ID, msg.Receiver.ID),
		msg.CreatedAt.UnixNano(),
		msg.ID,
	))
}

// Store persists a draft and returns the canonical enriched record.
// Any client-supplied identifier or timestamp is ignored: both are
// assigned here, at persist time.
func (m MessageRepository) Store(_ context.Context, draft domain.DraftMessage) (domain.StoredMessage, error) {
	senderName, err := m.users.UserName(draft.Sender)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("resolving sender name: %w", err)
	}
	receiverName, err := m.users.UserName(draft.Receiver)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("resolving receiver name: %w", err)
	}

	stored := domain.StoredMessage{
		ID:        uuid.New(),
		Text:      draft.Text,
		Sender:    domain.Participant{ID: draft.Sender, UserName: senderName},
		Receiver:  domain.Participant{ID: draft.Receiver, UserName: receiverName},
		CreatedAt: time.Now().UTC(),
	}

	bytes, err := json.Marshal(stored)
	if err != nil {
		return domain.StoredMessage{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(stored), bytes)
	})
	if err != nil {
		return domain.StoredMessage{}, err
	}
	return stored, nil
}

// ListConversation retrieves the messages exchanged between two identities,
// newest first, using a reverse prefix scan. Thanks to the padded timestamp
// in the key the scan order is the chronological order. It stops once the
// configured limitMessages is reached and returns a cursor to resume from.
func (m MessageRepository) ListConversation(a, b string, cursor *string) ([]domain.StoredMessage, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", domain.ConversationKey(a, b))
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.StoredMessage
	for _, b := range byteMessages {
		var message domain.StoredMessage
		if err = json.Unmarshal(b, &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}
