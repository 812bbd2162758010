package repository

import (
	"context"
	"errors"

	"github.com/pollbox/pollbox/internal/poll"
)

var (
	ErrNotFound = errors.New("poll not found")
	// ErrDuplicateVote maps the storage-layer uniqueness violation on
	// (pollId, voterKey). This constraint, not the application-level
	// pre-check, is the authoritative duplicate-vote guarantee.
	ErrDuplicateVote = errors.New("duplicate vote")
)

// PollRepository provides persistence operations for polls.
type PollRepository interface {
	Create(ctx context.Context, p *poll.Poll) error
	GetByID(ctx context.Context, id string) (*poll.Poll, error)
	Update(ctx context.Context, p *poll.Poll) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*poll.Poll, error)
	ListAll(ctx context.Context) ([]*poll.Poll, error)
}

// VoteRepository provides persistence operations for votes.
type VoteRepository interface {
	// Create returns ErrDuplicateVote when a vote for the same
	// (pollId, voterKey) already exists.
	Create(ctx context.Context, v *poll.Vote) error
	// Find returns (nil, nil) when no vote exists for the key.
	Find(ctx context.Context, pollID, voterKey string) (*poll.Vote, error)
	ListByPoll(ctx context.Context, pollID string) ([]*poll.Vote, error)
	DeleteByPoll(ctx context.Context, pollID string) error
}
