package poll

import (
	"math"
	"time"
)

// Poll is a question with 2-10 ordered, textually distinct options. Owned by
// the creating user; mutated and deleted only by the owner or an admin.
type Poll struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	OwnerID   string    `bson:"ownerId" json:"ownerId"`
	Question  string    `bson:"question" json:"question"`
	Options   []string  `bson:"options" json:"options"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Vote records one choice by one voter. VoterKey is never serialized to
// JSON: it may contain a network address.
type Vote struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	PollID      string    `bson:"pollId" json:"pollId"`
	VoterKey    string    `bson:"voterKey" json:"-"`
	OptionIndex int       `bson:"optionIndex" json:"optionIndex"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Voter keys for the two disjoint identity spaces. The prefixes keep an
// authenticated user and an anonymous visitor from the same address
// independent under the single (pollId, voterKey) uniqueness constraint.
func UserKey(userID string) string { return "user:" + userID }
func AddrKey(addr string) string   { return "addr:" + addr }

// Results is the tally for one poll.
type Results struct {
	VoteCounts  []int `json:"voteCounts"`
	TotalVotes  int   `json:"totalVotes"`
	Percentages []int `json:"percentages"`
}

// Tally counts votes per option. Stored votes whose index is out of range
// for the current option list are skipped rather than crashing the count.
// Percentages are rounded independently per option and are not normalized
// to sum to exactly 100.
func Tally(p *Poll, votes []*Vote) *Results {
	counts := make([]int, len(p.Options))
	for _, v := range votes {
		if v.OptionIndex >= 0 && v.OptionIndex < len(counts) {
			counts[v.OptionIndex]++
		}
	}
	total := len(votes)
	pcts := make([]int, len(counts))
	if total > 0 {
		for i, c := range counts {
			pcts[i] = int(math.Round(float64(c) / float64(total) * 100))
		}
	}
	return &Results{VoteCounts: counts, TotalVotes: total, Percentages: pcts}
}
