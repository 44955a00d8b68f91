package domain

import (
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultSecretCharacter is used when no proposition can be drawn
const DefaultSecretCharacter = "Kanye West"

// TitleCase upper-cases the first letter of every word and lower-cases the rest
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// ChooseSecretCharacter picks one usable proposition uniformly at random.
// Only non-empty propositions of players other than the impostor count;
// candidates are drawn in roster order so a seeded rng is reproducible.
func ChooseSecretCharacter(rng *rand.Rand, order []string, propositions map[string]string, impostorID, fallback string) string {
	candidates := make([]string, 0, len(order))
	for _, pid := range order {
		if pid == impostorID {
			continue
		}
		text, ok := propositions[pid]
		if !ok {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			candidates = append(candidates, text)
		}
	}

	if len(candidates) == 0 {
		return fallback
	}
	return TitleCase(candidates[rng.Intn(len(candidates))])
}
