package model

// A User represents a database record.
// Decisions are stored in their own bucket and queried by user id.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	Username string `msgpack:"username" storm:"unique"`
	Email    string `msgpack:"email"    storm:"unique"`
	Name     string `msgpack:"name"`
	Password string `msgpack:"password,omitempty"`

	// Unix timestamp used to revoke tokens issued before a password change.
	PasswordUpdatedAt int64 `msgpack:"password_updated_at"`
}
