package repositories

import (
	"bookchat/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_UserName_Unknown_Identity_Is_Empty(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t))

	name, err := users.UserName("nobody")

	req.NoError(err)
	req.Empty(name)
}

func Test_Upsert_Overwrites_Display_Name(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t))

	// Given a profile that was later renamed
	req.NoError(users.Upsert(domain.UserProfile{ID: "a1", UserName: "Alice"}))
	req.NoError(users.Upsert(domain.UserProfile{ID: "a1", UserName: "Alicia"}))

	// When resolving the display name
	name, err := users.UserName("a1")

	// Then the latest one wins
	req.NoError(err)
	req.Equal("Alicia", name)
}
