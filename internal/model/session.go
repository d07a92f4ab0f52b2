package model

// Session is issued by the external auth service and stored in redis keyed by
// the opaque bearer token. This core only reads it.
type Session struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}
