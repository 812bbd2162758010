package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pollbox/pollbox/internal/models"
	"github.com/pollbox/pollbox/internal/poll"
	"github.com/pollbox/pollbox/internal/poll/repository"
	"github.com/pollbox/pollbox/internal/ratelimit"
	"github.com/pollbox/pollbox/internal/security"
	"github.com/pollbox/pollbox/internal/sessions"
	"github.com/pollbox/pollbox/internal/validate"
)

type fixture struct {
	svc      *Service
	sessions *sessions.Service
	users    map[string]*models.User
	tokens   map[string]string
}

func (f *fixture) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

// caller helpers
func (f *fixture) as(userID, addr string) security.Caller {
	return security.Caller{Token: f.tokens[userID], Addr: addr}
}

func anon(addr string) security.Caller {
	return security.Caller{Addr: addr}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: sessions.NewService(sessions.NewMemoryRepository()),
		users: map[string]*models.User{
			"owner": {ID: "owner", Role: models.RoleUser},
			"other": {ID: "other", Role: models.RoleUser},
			"admin": {ID: "admin", Role: models.RoleAdmin},
		},
		tokens: map[string]string{},
	}
	for id := range f.users {
		s, err := f.sessions.Create(context.Background(), id, time.Hour)
		require.NoError(t, err)
		f.tokens[id] = s.Token
	}
	resolver := security.NewResolver(f.sessions, f, "")
	f.svc = New(
		repository.NewMemoryPollRepository(),
		repository.NewMemoryVoteRepository(),
		ratelimit.New(),
		resolver,
	)
	return f
}

func mustCreatePoll(t *testing.T, f *fixture, question string, options []string) *poll.Poll {
	t.Helper()
	p, err := f.svc.CreatePoll(context.Background(), f.as("owner", "10.0.0.1"), question, options)
	require.NoError(t, err)
	return p
}

func TestCreatePoll(t *testing.T) {
	f := newFixture(t)

	p := mustCreatePoll(t, f, "Best editor?", []string{"vim", "emacs", "acme"})
	require.Equal(t, "owner", p.OwnerID)
	require.True(t, validate.UUIDShape(p.ID))
	// input order preserved
	require.Equal(t, []string{"vim", "emacs", "acme"}, p.Options)
}

func TestCreatePollRequiresAuth(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePoll(context.Background(), anon("10.0.0.1"), "Q?", []string{"A", "B"})
	require.ErrorIs(t, err, security.ErrAuthRequired)
}

func TestCreatePollValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var v *validate.Violations
	_, err := f.svc.CreatePoll(ctx, f.as("owner", "10.0.0.1"), "Q?", []string{"A", "A"})
	require.ErrorAs(t, err, &v)

	_, err = f.svc.CreatePoll(ctx, f.as("owner", "10.0.0.1"), "<script>alert(1)</script>", []string{"A", "B"})
	require.ErrorAs(t, err, &v)
}

func TestCreatePollSanitizesPersistedText(t *testing.T) {
	f := newFixture(t)

	p := mustCreatePoll(t, f, "  What <next>?  ", []string{"opt <1>", "opt 2"})
	require.Equal(t, "What next?", p.Question)
	require.Equal(t, []string{"opt 1", "opt 2"}, p.Options)
}

func TestCreatePollRateLimitByAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < ratelimit.CreatePoll.Max; i++ {
		_, err := f.svc.CreatePoll(ctx, f.as("owner", "10.0.0.1"), "Q?", []string{"A", "B"})
		require.NoError(t, err)
	}
	_, err := f.svc.CreatePoll(ctx, f.as("owner", "10.0.0.1"), "Q?", []string{"A", "B"})
	var rl *ratelimit.Error
	require.True(t, errors.As(err, &rl))
	require.Greater(t, rl.RetryAfter, time.Duration(0))

	// a different address still has budget
	_, err = f.svc.CreatePoll(ctx, f.as("owner", "10.0.0.2"), "Q?", []string{"A", "B"})
	require.NoError(t, err)
}

func TestUpdatePollOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	// non-owner denied
	_, err := f.svc.UpdatePoll(ctx, f.as("other", ""), p.ID, "New?", []string{"A", "B"})
	require.ErrorIs(t, err, security.ErrAccessDenied)

	// anonymous gets AuthRequired, not AccessDenied
	_, err = f.svc.UpdatePoll(ctx, anon(""), p.ID, "New?", []string{"A", "B"})
	require.ErrorIs(t, err, security.ErrAuthRequired)

	// owner succeeds
	up, err := f.svc.UpdatePoll(ctx, f.as("owner", ""), p.ID, "New?", []string{"C", "D"})
	require.NoError(t, err)
	require.Equal(t, "New?", up.Question)

	// admin succeeds on someone else's poll
	up, err = f.svc.UpdatePoll(ctx, f.as("admin", ""), p.ID, "Admin edit?", []string{"C", "D"})
	require.NoError(t, err)
	require.Equal(t, "Admin edit?", up.Question)
}

func TestDeletePollCascadesVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	_, err := f.svc.SubmitVote(ctx, anon("10.9.9.9"), p.ID, 0)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePoll(ctx, f.as("owner", ""), p.ID))

	_, err = f.svc.GetPoll(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.PollVotes(ctx, f.as("admin", ""), p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetPollPublicAndEditGuarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	// anonymous read works
	got, err := f.svc.GetPoll(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	// edit path denies a non-owner non-admin
	_, err = f.svc.GetPollForEdit(ctx, f.as("other", ""), p.ID)
	require.ErrorIs(t, err, security.ErrAccessDenied)

	// owner and admin pass
	_, err = f.svc.GetPollForEdit(ctx, f.as("owner", ""), p.ID)
	require.NoError(t, err)
	_, err = f.svc.GetPollForEdit(ctx, f.as("admin", ""), p.ID)
	require.NoError(t, err)
}

func TestGetPollNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetPoll(ctx, "123e4567-e89b-12d3-a456-426614174000")
	require.ErrorIs(t, err, ErrNotFound)
	// malformed id is indistinguishable from absent
	_, err = f.svc.GetPoll(ctx, "nonsense")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitVoteHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	v, err := f.svc.SubmitVote(ctx, f.as("other", "10.1.1.1"), p.ID, 1)
	require.NoError(t, err)
	require.Equal(t, poll.UserKey("other"), v.VoterKey)
	require.Equal(t, 1, v.OptionIndex)
}

func TestSubmitVoteInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	var v *validate.Violations
	_, err := f.svc.SubmitVote(ctx, anon("10.1.1.1"), "not-a-uuid", 0)
	require.ErrorAs(t, err, &v)

	_, err = f.svc.SubmitVote(ctx, anon("10.1.1.1"), p.ID, -1)
	require.ErrorAs(t, err, &v)

	_, err = f.svc.SubmitVote(ctx, anon("10.1.1.1"), p.ID, 2)
	require.ErrorIs(t, err, ErrInvalidOption)
}

func TestSubmitVoteDuplicateAuthenticated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	_, err := f.svc.SubmitVote(ctx, f.as("other", "10.1.1.1"), p.ID, 0)
	require.NoError(t, err)

	// same user, even from a different address
	_, err = f.svc.SubmitVote(ctx, f.as("other", "10.2.2.2"), p.ID, 1)
	require.ErrorIs(t, err, ErrDuplicateVote)
}

func TestSubmitVoteDuplicateAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	_, err := f.svc.SubmitVote(ctx, anon("10.1.1.1"), p.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.SubmitVote(ctx, anon("10.1.1.1"), p.ID, 1)
	require.ErrorIs(t, err, ErrDuplicateVoteAddr)
}

func TestSubmitVoteIdentitySpacesAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	// anonymous vote from an address
	_, err := f.svc.SubmitVote(ctx, anon("10.1.1.1"), p.ID, 0)
	require.NoError(t, err)

	// authenticated vote from the same address still counts: the spaces are
	// deliberately disjoint
	_, err = f.svc.SubmitVote(ctx, f.as("other", "10.1.1.1"), p.ID, 1)
	require.NoError(t, err)

	// anonymous vote from a different address also counts
	_, err = f.svc.SubmitVote(ctx, anon("10.2.2.2"), p.ID, 1)
	require.NoError(t, err)
}

func TestSubmitVoteRateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// ten distinct polls so the duplicate rule does not interfere
	ids := make([]string, 0, ratelimit.Vote.Max+1)
	for i := 0; i <= ratelimit.Vote.Max; i++ {
		// spread creation across addresses to stay under the create limit
		addr := string(rune('a' + i))
		p, err := f.svc.CreatePoll(ctx, security.Caller{Token: f.tokens["owner"], Addr: addr}, "Q?", []string{"A", "B"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	for i := 0; i < ratelimit.Vote.Max; i++ {
		_, err := f.svc.SubmitVote(ctx, anon("10.3.3.3"), ids[i], 0)
		require.NoError(t, err)
	}
	_, err := f.svc.SubmitVote(ctx, anon("10.3.3.3"), ids[ratelimit.Vote.Max], 0)
	var rl *ratelimit.Error
	require.True(t, errors.As(err, &rl))
}

func TestSubmitVoteUnknownPoll(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitVote(context.Background(), anon("10.1.1.1"), "123e4567-e89b-12d3-a456-426614174000", 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})

	_, err := f.svc.SubmitVote(ctx, anon("10.1.1.1"), p.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.SubmitVote(ctx, anon("10.1.1.2"), p.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.SubmitVote(ctx, anon("10.1.1.3"), p.ID, 1)
	require.NoError(t, err)

	r, err := f.svc.Results(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, r.VoteCounts)
	require.Equal(t, 3, r.TotalVotes)
	require.Equal(t, []int{67, 33}, r.Percentages)
}

func TestUserPolls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreatePoll(t, f, "Q1?", []string{"A", "B"})
	mustCreatePoll(t, f, "Q2?", []string{"A", "B"})

	_, err := f.svc.UserPolls(ctx, anon(""))
	require.ErrorIs(t, err, security.ErrAuthRequired)

	mine, err := f.svc.UserPolls(ctx, f.as("owner", ""))
	require.NoError(t, err)
	require.Len(t, mine, 2)

	theirs, err := f.svc.UserPolls(ctx, f.as("other", ""))
	require.NoError(t, err)
	require.Empty(t, theirs)
}

func TestAdminSurfaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := mustCreatePoll(t, f, "Q?", []string{"A", "B"})
	_, err := f.svc.SubmitVote(ctx, anon("10.1.1.1"), p.ID, 0)
	require.NoError(t, err)

	// non-admin denied everywhere
	_, err = f.svc.AllPolls(ctx, f.as("other", ""))
	require.ErrorIs(t, err, security.ErrAdminRequired)
	_, err = f.svc.PollVotes(ctx, f.as("other", ""), p.ID)
	require.ErrorIs(t, err, security.ErrAdminRequired)
	err = f.svc.AdminDeletePoll(ctx, f.as("other", ""), p.ID)
	require.ErrorIs(t, err, security.ErrAdminRequired)

	// anonymous gets AuthRequired
	_, err = f.svc.AllPolls(ctx, anon(""))
	require.ErrorIs(t, err, security.ErrAuthRequired)

	all, err := f.svc.AllPolls(ctx, f.as("admin", ""))
	require.NoError(t, err)
	require.Len(t, all, 1)

	votes, err := f.svc.PollVotes(ctx, f.as("admin", ""), p.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)

	require.NoError(t, f.svc.AdminDeletePoll(ctx, f.as("admin", ""), p.ID))
	_, err = f.svc.GetPoll(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
