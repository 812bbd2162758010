package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pollbox/pollbox/internal/poll"
)

// MemoryPollRepository is the in-memory PollRepository used in unit tests.
type MemoryPollRepository struct {
	mu    sync.RWMutex
	store map[string]*poll.Poll
}

func NewMemoryPollRepository() *MemoryPollRepository {
	return &MemoryPollRepository{store: make(map[string]*poll.Poll)}
}

func (m *MemoryPollRepository) Create(ctx context.Context, p *poll.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MemoryPollRepository) GetByID(ctx context.Context, id string) (*poll.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryPollRepository) Update(ctx context.Context, p *poll.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MemoryPollRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryPollRepository) ListByOwner(ctx context.Context, ownerID string) ([]*poll.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*poll.Poll{}
	for _, p := range m.store {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPollsNewestFirst(out)
	return out, nil
}

func (m *MemoryPollRepository) ListAll(ctx context.Context) ([]*poll.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*poll.Poll, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	sortPollsNewestFirst(out)
	return out, nil
}

func sortPollsNewestFirst(polls []*poll.Poll) {
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
}

// MemoryVoteRepository mirrors the Mongo repository's unique
// (pollId, voterKey) constraint so tests exercise the same contract.
type MemoryVoteRepository struct {
	mu     sync.Mutex
	byKey  map[string]*poll.Vote
	byPoll map[string][]*poll.Vote
}

func NewMemoryVoteRepository() *MemoryVoteRepository {
	return &MemoryVoteRepository{
		byKey:  make(map[string]*poll.Vote),
		byPoll: make(map[string][]*poll.Vote),
	}
}

func voteKey(pollID, voterKey string) string {
	return pollID + "\x00" + voterKey
}

func (m *MemoryVoteRepository) Create(ctx context.Context, v *poll.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := voteKey(v.PollID, v.VoterKey)
	if _, ok := m.byKey[k]; ok {
		return ErrDuplicateVote
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	cp := *v
	m.byKey[k] = &cp
	m.byPoll[v.PollID] = append(m.byPoll[v.PollID], &cp)
	return nil
}

func (m *MemoryVoteRepository) Find(ctx context.Context, pollID, voterKey string) (*poll.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byKey[voteKey(pollID, voterKey)]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *MemoryVoteRepository) ListByPoll(ctx context.Context, pollID string) ([]*poll.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	votes := m.byPoll[pollID]
	out := make([]*poll.Vote, 0, len(votes))
	for _, v := range votes {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryVoteRepository) DeleteByPoll(ctx context.Context, pollID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byPoll[pollID] {
		delete(m.byKey, voteKey(pollID, v.VoterKey))
	}
	delete(m.byPoll, pollID)
	return nil
}
