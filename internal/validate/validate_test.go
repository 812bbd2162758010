package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPollInputValid(t *testing.T) {
	err := PollInput("Which backend language should we adopt?", []string{"Go", "Rust", "Zig"})
	require.NoError(t, err)
}

func TestPollInputQuestionBounds(t *testing.T) {
	err := PollInput("", []string{"A", "B"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "question")

	err = PollInput(strings.Repeat("x", MaxQuestionLen+1), []string{"A", "B"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "at most 500")
}

func TestPollInputOptionCount(t *testing.T) {
	require.Error(t, PollInput("Q?", []string{"only one"}))

	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = strings.Repeat("o", i+1)
	}
	require.Error(t, PollInput("Q?", eleven))
}

func TestPollInputDuplicateOptions(t *testing.T) {
	err := PollInput("Q?", []string{"A", "B", "A"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unique")
}

func TestPollInputXSSSignatures(t *testing.T) {
	cases := []string{
		"<script>alert(1)</script>",
		"<SCRIPT src=x>",
		"javascript:foo()",
		"JaVaScRiPt:void(0)",
		"click me onClick=steal()",
		"x onerror = hack()",
	}
	for _, bad := range cases {
		require.Error(t, PollInput(bad, []string{"A", "B"}), "question %q should be rejected", bad)
		require.Error(t, PollInput("Q?", []string{bad, "B"}), "option %q should be rejected", bad)
	}
}

func TestPollInputAggregatesAllViolations(t *testing.T) {
	err := PollInput("", []string{"<script>", "<script>"})
	require.Error(t, err)
	v, ok := err.(*Violations)
	require.True(t, ok)
	// empty question, two markup options, one duplicate
	require.GreaterOrEqual(t, len(v.Problems), 4)
}

func TestVoteInput(t *testing.T) {
	require.NoError(t, VoteInput("123e4567-e89b-12d3-a456-426614174000", 0))
	require.NoError(t, VoteInput("123E4567-E89B-12D3-A456-426614174000", 3))

	require.Error(t, VoteInput("not-a-uuid", 0))
	require.Error(t, VoteInput("123e4567e89b12d3a456426614174000", 0))
	require.Error(t, VoteInput("123e4567-e89b-12d3-a456-426614174000", -1))
}

func TestLoginInput(t *testing.T) {
	require.NoError(t, LoginInput("user@example.com", "secret1"))

	require.Error(t, LoginInput("not-an-email", "secret1"))
	require.Error(t, LoginInput("user@example.com", "short"))
	require.Error(t, LoginInput("", ""))
}

func TestRegisterInput(t *testing.T) {
	require.NoError(t, RegisterInput("Ada", "ada@example.com", "Sup3rsecret", "Sup3rsecret"))

	// too short / missing character classes
	require.Error(t, RegisterInput("Ada", "ada@example.com", "short1A", "short1A"))
	require.Error(t, RegisterInput("Ada", "ada@example.com", "alllowercase1", "alllowercase1"))
	require.Error(t, RegisterInput("Ada", "ada@example.com", "NODIGITSHERE", "NODIGITSHERE"))

	// mismatch reported on the confirmation field
	err := RegisterInput("Ada", "ada@example.com", "Sup3rsecret", "Sup3rsecreX")
	require.Error(t, err)
	require.Contains(t, err.Error(), "confirmPassword")

	require.Error(t, RegisterInput("", "ada@example.com", "Sup3rsecret", "Sup3rsecret"))
	require.Error(t, RegisterInput(strings.Repeat("n", MaxNameLen+1), "ada@example.com", "Sup3rsecret", "Sup3rsecret"))
	require.Error(t, RegisterInput("<script>", "ada@example.com", "Sup3rsecret", "Sup3rsecret"))
}

func TestUUIDShape(t *testing.T) {
	require.True(t, UUIDShape("00000000-0000-0000-0000-000000000000"))
	require.False(t, UUIDShape("urn:uuid:123e4567-e89b-12d3-a456-426614174000"))
	require.False(t, UUIDShape("{123e4567-e89b-12d3-a456-426614174000}"))
}
