package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConversationKey_Is_Direction_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal(ConversationKey("a1", "b1"), ConversationKey("b1", "a1"))
	req.Equal("a1|b1", ConversationKey("b1", "a1"))
}

func TestConversationKey_Self_Conversation(t *testing.T) {
	req := require.New(t)

	req.Equal("a1|a1", ConversationKey("a1", "a1"))
}
