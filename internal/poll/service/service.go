// Package service implements the poll operations and the vote-integrity
// rules: per-action rate limits, input validation, authorization guards and
// duplicate-vote prevention.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pollbox/pollbox/internal/poll"
	"github.com/pollbox/pollbox/internal/poll/repository"
	"github.com/pollbox/pollbox/internal/ratelimit"
	"github.com/pollbox/pollbox/internal/sanitize"
	"github.com/pollbox/pollbox/internal/security"
	"github.com/pollbox/pollbox/internal/validate"
)

var (
	ErrNotFound      = errors.New("poll not found")
	ErrInvalidOption = errors.New("selected option does not exist")
	// The two duplicate-vote messages differ only for UX clarity; both mean
	// the same integrity rule fired.
	ErrDuplicateVote     = errors.New("you have already voted on this poll")
	ErrDuplicateVoteAddr = errors.New("a vote from your network address has already been recorded for this poll")
	// ErrStorage wraps collaborator failures; handlers surface it as a
	// generic message so internals never leak.
	ErrStorage = errors.New("storage failure")
)

func storage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// Service is the vote integrity engine plus the poll CRUD operations.
type Service struct {
	polls    repository.PollRepository
	votes    repository.VoteRepository
	limiter  *ratelimit.Limiter
	resolver *security.Resolver
}

func New(polls repository.PollRepository, votes repository.VoteRepository, limiter *ratelimit.Limiter, resolver *security.Resolver) *Service {
	return &Service{polls: polls, votes: votes, limiter: limiter, resolver: resolver}
}

// pollOwner is the single external lookup the ownership guard runs.
func (s *Service) pollOwner(id string) security.OwnerFunc {
	return func(ctx context.Context) (string, error) {
		p, err := s.polls.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", ErrNotFound
			}
			return "", storage(err)
		}
		return p.OwnerID, nil
	}
}

// CreatePoll runs the standard gate order: rate limit by caller address,
// validate, authenticate, sanitize, persist.
func (s *Service) CreatePoll(ctx context.Context, caller security.Caller, question string, options []string) (*poll.Poll, error) {
	addr := caller.Addr
	if addr == "" {
		addr = "anonymous"
	}
	if err := s.limiter.Allow(ratelimit.CreatePoll, "create_poll", addr); err != nil {
		return nil, err
	}
	if err := validate.PollInput(question, options); err != nil {
		return nil, err
	}
	sc, err := s.resolver.RequireAuth(ctx, caller.Token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &poll.Poll{
		ID:        uuid.NewString(),
		OwnerID:   sc.UserID,
		Question:  sanitize.Clean(question),
		Options:   cleanAll(options),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.polls.Create(ctx, p); err != nil {
		return nil, storage(err)
	}
	return p, nil
}

// UpdatePoll replaces question and options; owner or admin only.
func (s *Service) UpdatePoll(ctx context.Context, caller security.Caller, pollID, question string, options []string) (*poll.Poll, error) {
	if !validate.UUIDShape(pollID) {
		return nil, ErrNotFound
	}
	if err := validate.PollInput(question, options); err != nil {
		return nil, err
	}
	if _, err := s.resolver.RequireOwnerOrAdmin(ctx, caller.Token, s.pollOwner(pollID)); err != nil {
		return nil, err
	}

	p, err := s.getPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	p.Question = sanitize.Clean(question)
	p.Options = cleanAll(options)
	p.UpdatedAt = time.Now().UTC()
	if err := s.polls.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storage(err)
	}
	return p, nil
}

// DeletePoll removes the poll and cascades to its votes; owner or admin only.
func (s *Service) DeletePoll(ctx context.Context, caller security.Caller, pollID string) error {
	if !validate.UUIDShape(pollID) {
		return ErrNotFound
	}
	if _, err := s.resolver.RequireOwnerOrAdmin(ctx, caller.Token, s.pollOwner(pollID)); err != nil {
		return err
	}
	return s.deleteCascade(ctx, pollID)
}

// GetPoll is the public read path; no authentication.
func (s *Service) GetPoll(ctx context.Context, pollID string) (*poll.Poll, error) {
	if !validate.UUIDShape(pollID) {
		return nil, ErrNotFound
	}
	return s.getPoll(ctx, pollID)
}

// GetPollForEdit is the owner/admin read path used by edit forms.
func (s *Service) GetPollForEdit(ctx context.Context, caller security.Caller, pollID string) (*poll.Poll, error) {
	if !validate.UUIDShape(pollID) {
		return nil, ErrNotFound
	}
	if _, err := s.resolver.RequireOwnerOrAdmin(ctx, caller.Token, s.pollOwner(pollID)); err != nil {
		return nil, err
	}
	return s.getPoll(ctx, pollID)
}

// SubmitVote runs the integrity pipeline in deliberate order: cheap checks
// (rate limit, shape) before datastore lookups, then the per-identity-space
// duplicate check. An authenticated user and an anonymous visitor from the
// same address count as independent voters; that split is a documented
// policy choice, not an accident.
func (s *Service) SubmitVote(ctx context.Context, caller security.Caller, pollID string, optionIndex int) (*poll.Vote, error) {
	sc := s.resolver.Resolve(ctx, caller.Token)

	rlKey := sc.UserID
	if rlKey == "" {
		rlKey = caller.Addr
	}
	if rlKey == "" {
		rlKey = "anonymous"
	}
	if err := s.limiter.Allow(ratelimit.Vote, "vote", rlKey); err != nil {
		return nil, err
	}

	if err := validate.VoteInput(pollID, optionIndex); err != nil {
		return nil, err
	}

	p, err := s.getPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if optionIndex >= len(p.Options) {
		return nil, ErrInvalidOption
	}

	var voterKey string
	if sc.Authenticated {
		voterKey = poll.UserKey(sc.UserID)
	} else {
		addr := caller.Addr
		if addr == "" {
			addr = "anonymous"
		}
		voterKey = poll.AddrKey(addr)
	}

	// Fast-path duplicate check for a friendly error. The storage unique
	// index remains the authoritative guarantee under races.
	existing, err := s.votes.Find(ctx, pollID, voterKey)
	if err != nil {
		return nil, storage(err)
	}
	if existing != nil {
		return nil, duplicateErr(sc.Authenticated)
	}

	v := &poll.Vote{
		ID:          uuid.NewString(),
		PollID:      pollID,
		VoterKey:    voterKey,
		OptionIndex: optionIndex,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.votes.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			// lost a race with a concurrent submission from the same voter
			return nil, duplicateErr(sc.Authenticated)
		}
		return nil, storage(err)
	}
	return v, nil
}

// Results tallies the poll; public, no authentication.
func (s *Service) Results(ctx context.Context, pollID string) (*poll.Results, error) {
	if !validate.UUIDShape(pollID) {
		return nil, ErrNotFound
	}
	p, err := s.getPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	votes, err := s.votes.ListByPoll(ctx, pollID)
	if err != nil {
		return nil, storage(err)
	}
	return poll.Tally(p, votes), nil
}

// UserPolls lists the caller's own polls.
func (s *Service) UserPolls(ctx context.Context, caller security.Caller) ([]*poll.Poll, error) {
	sc, err := s.resolver.RequireAuth(ctx, caller.Token)
	if err != nil {
		return nil, err
	}
	polls, err := s.polls.ListByOwner(ctx, sc.UserID)
	if err != nil {
		return nil, storage(err)
	}
	return polls, nil
}

// AllPolls lists every poll; admin only.
func (s *Service) AllPolls(ctx context.Context, caller security.Caller) ([]*poll.Poll, error) {
	if _, err := s.resolver.RequireAdmin(ctx, caller.Token); err != nil {
		return nil, err
	}
	polls, err := s.polls.ListAll(ctx)
	if err != nil {
		return nil, storage(err)
	}
	return polls, nil
}

// PollVotes lists the raw votes of a poll; admin only.
func (s *Service) PollVotes(ctx context.Context, caller security.Caller, pollID string) ([]*poll.Vote, error) {
	if _, err := s.resolver.RequireAdmin(ctx, caller.Token); err != nil {
		return nil, err
	}
	if !validate.UUIDShape(pollID) {
		return nil, ErrNotFound
	}
	if _, err := s.getPoll(ctx, pollID); err != nil {
		return nil, err
	}
	votes, err := s.votes.ListByPoll(ctx, pollID)
	if err != nil {
		return nil, storage(err)
	}
	return votes, nil
}

// AdminDeletePoll removes any poll regardless of ownership; admin only.
func (s *Service) AdminDeletePoll(ctx context.Context, caller security.Caller, pollID string) error {
	if _, err := s.resolver.RequireAdmin(ctx, caller.Token); err != nil {
		return err
	}
	if !validate.UUIDShape(pollID) {
		return ErrNotFound
	}
	if _, err := s.getPoll(ctx, pollID); err != nil {
		return err
	}
	return s.deleteCascade(ctx, pollID)
}

func (s *Service) getPoll(ctx context.Context, pollID string) (*poll.Poll, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storage(err)
	}
	return p, nil
}

// votes go first so a crash in between cannot leave votes pointing at a
// deleted poll
func (s *Service) deleteCascade(ctx context.Context, pollID string) error {
	if err := s.votes.DeleteByPoll(ctx, pollID); err != nil {
		return storage(err)
	}
	if err := s.polls.Delete(ctx, pollID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storage(err)
	}
	return nil
}

func duplicateErr(authenticated bool) error {
	if authenticated {
		return ErrDuplicateVote
	}
	return ErrDuplicateVoteAddr
}

func cleanAll(options []string) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = sanitize.Clean(o)
	}
	return out
}
