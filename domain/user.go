package domain

// UserProfile is the slice of the user record the relay needs for
// display-name enrichment. The full profile lives with the user service.
type UserProfile struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
}
