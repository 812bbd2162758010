package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pollbox/pollbox/internal/models"
	"github.com/pollbox/pollbox/internal/ratelimit"
	"github.com/pollbox/pollbox/internal/sanitize"
	"github.com/pollbox/pollbox/internal/validate"
)

var (
	// ErrEmailTaken deliberately matches the duplicate-registration case with
	// a fixed, non-sensitive message.
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidCredentials is uniform for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service encapsulates account business logic: registration and password
// authentication, both rate-limited per email.
type Service struct {
	repo       UserRepository
	limiter    *ratelimit.Limiter
	bcryptCost int
}

func NewService(r UserRepository, l *ratelimit.Limiter, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: r, limiter: l, bcryptCost: bcryptCost}
}

// Register validates input, hashes the password and creates the account.
// The default role is user; admins are promoted out of band.
func (s *Service) Register(ctx context.Context, name, email, password, confirmPassword string) (*models.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if err := s.limiter.Allow(ratelimit.Register, "register", key); err != nil {
		return nil, err
	}
	if err := validate.RegisterInput(name, email, password, confirmPassword); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        key,
		Name:         sanitize.Clean(name),
		Role:         models.RoleUser,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Authenticate verifies the email/password pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if err := s.limiter.Allow(ratelimit.Login, "login", key); err != nil {
		return nil, err
	}
	if err := validate.LoginInput(email, password); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, key)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID loads a user; (nil, nil) when absent.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}
