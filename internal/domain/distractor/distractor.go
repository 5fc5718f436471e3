// Package distractor builds the answer options shown with a question.
package distractor

import (
	"errors"
	"math/rand"
	"strings"
)

// OptionCount is the number of options offered when enough values exist.
const OptionCount = 4

// ErrInsufficientOptions is returned when fewer than two distinct values exist.
var ErrInsufficientOptions = errors.New("not enough distinct values for a question")

// Generate returns the correct value plus up to OptionCount-1 distractors
// drawn from pool, in random order. pool is the catalog-wide set of values
// for the question dimension; blanks are ignored and values equal apart from
// case or padding count once. Values in exclude are never offered as
// distractors; pass the item's other true values there.
func Generate(rng *rand.Rand, pool []string, correct string, exclude ...string) ([]string, error) {
	correct = strings.TrimSpace(correct)
	if correct == "" {
		return nil, ErrInsufficientOptions
	}

	seen := map[string]struct{}{fold(correct): {}}
	for _, v := range exclude {
		seen[fold(v)] = struct{}{}
	}
	others := make([]string, 0, len(pool))
	for _, v := range pool {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := fold(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		others = append(others, v)
	}
	if len(others) == 0 {
		return nil, ErrInsufficientOptions
	}

	shuffle(rng, others)
	if len(others) > OptionCount-1 {
		others = others[:OptionCount-1]
	}
	options := append(others, correct)
	shuffle(rng, options)
	return options, nil
}

// fold is the comparison key answers are matched by.
func fold(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// shuffle is an in-place Fisher–Yates shuffle.
func shuffle(rng *rand.Rand, s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
