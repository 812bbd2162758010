package sessions

import "time"

// Session is a server-side login session. Token is the opaque value handed to
// the client (cookie or bearer); CSRFToken is the opaque value a browser
// client must echo back on state-changing requests.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CSRFToken string    `json:"csrfToken"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
