package wire

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Push event types sent over the websocket channel.
const (
	EventNotesChanged = "notes.changed"
)

// Event is a push notification to connected clients.
type Event struct {
	Type      string   `json:"type"`
	NoteUUIDs []string `json:"noteUuids,omitempty"`
}
