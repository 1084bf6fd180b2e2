package domain

// OwnerKey scopes a cart server-side: either an authenticated user id
// or an anonymous session id, never both at once.
type OwnerKey struct {
	UserID    string
	SessionID string
}

func UserOwner(userID string) OwnerKey {
	return OwnerKey{UserID: userID}
}

func SessionOwner(sessionID string) OwnerKey {
	return OwnerKey{SessionID: sessionID}
}

func (k OwnerKey) Authenticated() bool {
	return k.UserID != ""
}

func (k OwnerKey) IsZero() bool {
	return k.UserID == "" && k.SessionID == ""
}

// Value returns the identifier regardless of kind (for logging and
// map keys).
func (k OwnerKey) Value() string {
	if k.UserID != "" {
		return k.UserID
	}
	return k.SessionID
}
