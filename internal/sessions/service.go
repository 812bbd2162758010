package sessions

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create stores a new session for the user and returns it. The CSRF token is
// minted together with the session and lives exactly as long as it does.
func (s *Service) Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		Token:     token,
		UserID:    userID,
		CSRFToken: csrf,
		ExpiresAt: time.Now().UTC().Add(ttl),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate returns the session if the token is known and not expired.
// A missing or expired session is (nil, nil), not an error.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		// cleanup expired session
		_ = s.repo.DeleteByToken(ctx, token)
		return nil, nil
	}
	return sess, nil
}

// VerifyCSRF reports whether presented equals the CSRF token stored with the
// session. Opaque equality check; the comparison is constant-time.
func (s *Service) VerifyCSRF(ctx context.Context, sessionToken, presented string) (bool, error) {
	sess, err := s.Validate(ctx, sessionToken)
	if err != nil {
		return false, err
	}
	if sess == nil || presented == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(presented)) == 1, nil
}

func (s *Service) Delete(ctx context.Context, token string) error {
	return s.repo.DeleteByToken(ctx, token)
}
