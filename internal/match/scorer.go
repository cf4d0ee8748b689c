// Package match assigns free-form activity descriptions to per-user
// categories, creating a category when nothing scores above the threshold.
package match

import (
	"context"
	"strings"
)

// Scorer rates the similarity of two activity phrases in [0, 1].
type Scorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// LexicalScorer scores phrases without external calls. It normalises both
// sides, reduces verb forms to a shared stem, drops auxiliary words, then
// takes the better of token overlap and best-pair edit-distance similarity.
type LexicalScorer struct{}

// NewLexicalScorer constructs the default scorer.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

// irregularStems maps common irregular past tenses to their base verb so that
// "ran" and "running" land on the same stem.
var irregularStems = map[string]string{
	"ran":     "run",
	"swam":    "swim",
	"swum":    "swim",
	"rode":    "ride",
	"ridden":  "ride",
	"read":    "read",
	"wrote":   "write",
	"written": "write",
	"sang":    "sing",
	"sung":    "sing",
	"lifted":  "lift",
	"did":     "do",
	"done":    "do",
	"went":    "go",
	"gone":    "go",
	"sat":     "sit",
	"slept":   "sleep",
	"made":    "make",
}

// auxiliaryStems are verbs and filler words that describe doing an activity
// rather than the activity itself. They are dropped before scoring so that
// "went swimming" and "went running" never match on the shared "went".
var auxiliaryStems = map[string]bool{
	"go":    true,
	"do":    true,
	"have":  true,
	"had":   true,
	"be":    true,
	"was":   true,
	"were":  true,
	"been":  true,
	"got":   true,
	"get":   true,
	"a":     true,
	"an":    true,
	"the":   true,
	"some":  true,
	"of":    true,
	"my":    true,
	"and":   true,
	"then":  true,
	"just":  true,
	"today": true,
}

// Score rates similarity in [0, 1]. Identical stems score 1.0.
func (s *LexicalScorer) Score(ctx context.Context, a, b string) (float64, error) {
	tokensA := stemTokens(a)
	tokensB := stemTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, nil
	}

	overlap := tokenOverlap(tokensA, tokensB)
	edit := bestPairSimilarity(tokensA, tokensB)
	if edit > overlap {
		return edit, nil
	}
	return overlap, nil
}

// stemTokens lowercases, splits on non-letters and stems each token.
func stemTokens(text string) []string {
	text = strings.ToLower(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		stemmed := stem(f)
		if auxiliaryStems[stemmed] {
			continue
		}
		out = append(out, stemmed)
	}
	return out
}

// stem strips common verb and plural suffixes after applying the irregular
// table. It is deliberately crude: the goal is matching "ran" to "running",
// not linguistic correctness.
func stem(token string) string {
	if base, ok := irregularStems[token]; ok {
		return base
	}
	switch {
	case strings.HasSuffix(token, "ing") && len(token) > 5:
		token = token[:len(token)-3]
		// "running" drops to "runn", collapse the doubled consonant
		if len(token) > 2 && token[len(token)-1] == token[len(token)-2] {
			token = token[:len(token)-1]
		}
	case strings.HasSuffix(token, "ing") && len(token) > 4:
		token = token[:len(token)-3]
	case strings.HasSuffix(token, "ed") && len(token) > 4:
		token = token[:len(token)-2]
	case strings.HasSuffix(token, "es") && len(token) > 4:
		token = token[:len(token)-2]
	case strings.HasSuffix(token, "s") && len(token) > 3:
		token = token[:len(token)-1]
	}
	return token
}

// tokenOverlap returns the share of tokens in the smaller set that also occur
// in the other set.
func tokenOverlap(a, b []string) float64 {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	largeSet := make(map[string]bool, len(large))
	for _, t := range large {
		largeSet[t] = true
	}

	matched := 0
	seen := make(map[string]bool, len(small))
	for _, t := range small {
		if seen[t] {
			continue
		}
		seen[t] = true
		if largeSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

// bestPairSimilarity returns the highest per-token edit similarity across all
// token pairs. Catches near-misses like "yoga" vs "yogaa".
func bestPairSimilarity(a, b []string) float64 {
	best := 0.0
	for _, ta := range a {
		for _, tb := range b {
			sim := editSimilarity(ta, tb)
			if sim > best {
				best = sim
			}
		}
	}
	return best
}

// editSimilarity is 1 - normalised Levenshtein distance.
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
