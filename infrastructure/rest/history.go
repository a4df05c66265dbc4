// Package rest serves the read-only conversation history endpoint the web
// client fetches before opening its relay connection.
package rest

import (
	"bookchat/domain"
	"encoding/json"
	"log/slog"
	"net/http"
)

type IConversationReader interface {
	ListConversation(a, b string, cursor *string) ([]domain.StoredMessage, *string, error)
}

type HistoryHandler struct {
	log      *slog.Logger
	messages IConversationReader
}

func NewHistoryHandler(log *slog.Logger, messages IConversationReader) *HistoryHandler {
	return &HistoryHandler{log: log, messages: messages}
}

type historyResponse struct {
	Messages []domain.StoredMessage `json:"messages"`
	Cursor   *string                `json:"cursor,omitempty"`
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("userId")
	peer := r.URL.Query().Get("peerId")
	if user == "" || peer == "" {
		http.Error(w, "userId and peerId are required", http.StatusBadRequest)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := h.messages.ListConversation(user, peer, cursor)
	if err != nil {
		h.log.Error("Failed to list conversation", "user", user, "peer", peer, "error", err)
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(historyResponse{Messages: messages, Cursor: next}); err != nil {
		h.log.Debug("Failed to write history response", "error", err)
	}
}
