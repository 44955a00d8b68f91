package domain

import "math/rand"

// VoteTally is the number of votes each target received
type VoteTally map[string]int

// TallyVotes counts votes by target
func TallyVotes(votes map[string]string) VoteTally {
	tally := make(VoteTally, len(votes))
	for _, target := range votes {
		tally[target]++
	}
	return tally
}

// Leaders returns every rostered target sharing the highest count, in roster order
func (t VoteTally) Leaders(order []string) []string {
	maxVotes := 0
	for _, pid := range order {
		if t[pid] > maxVotes {
			maxVotes = t[pid]
		}
	}
	if maxVotes == 0 {
		return nil
	}

	leaders := make([]string, 0, 1)
	for _, pid := range order {
		if t[pid] == maxVotes {
			leaders = append(leaders, pid)
		}
	}
	return leaders
}

// BreakTie picks one of the leaders uniformly at random
func BreakTie(rng *rand.Rand, leaders []string) string {
	switch len(leaders) {
	case 0:
		return ""
	case 1:
		return leaders[0]
	}
	return leaders[rng.Intn(len(leaders))]
}

// RevealResult describes the player removed by a vote
type RevealResult struct {
	PlayerID string
	Name     string
	Role     Role
}
