//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_directory.go -package=mocks
package repositories

import (
	"bookchat/domain"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// IUserDirectory resolves user identities to display names.
type IUserDirectory interface {
	Upsert(profile domain.UserProfile) error
	UserName(id string) (string, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

func userKey(id string) []byte {
	return []byte(fmt.Sprintf("user:%s", id))
}

func (r UserRepository) Upsert(profile domain.UserProfile) error {
	bytes, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(profile.ID), bytes)
	})
}

// UserName returns the display name for an identity. An unknown identity
// resolves to an empty name, not an error, so enrichment stays best-effort
// the same way the profile join behaves in the user service.
func (r UserRepository) UserName(id string) (string, error) {
	var name string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			var profile domain.UserProfile
			if err := json.Unmarshal(value, &profile); err != nil {
				return err
			}
			name = profile.UserName
			return nil
		})
	})
	return name, err
}
