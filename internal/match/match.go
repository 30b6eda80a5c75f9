// Package match compares episode and movie titles.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Digital-Shane/metaweave/internal/memo"
)

const (
	// Threshold is the default similarity needed for a match.
	Threshold = 0.9
	// PartThreshold applies to "Title (1)" and "Title Part 2" forms.
	PartThreshold = 0.75
	// SequelThreshold applies when either title names a prequel or sequel.
	SequelThreshold = 0.95

	shortLength   = 20
	shortFactor   = 0.95
	numberPenalty = 0.7
)

var (
	numberPattern = regexp.MustCompile(`\d+`)
	partPattern   = regexp.MustCompile(`(?i)(\(\s*\d+\s*\)|\bpart\s+(\d+|one|two|three|four|five|[ivx]+)\b)`)
	sequelPattern = regexp.MustCompile(`(?i)\b(prequel|sequel)\b`)
	folder        = cases.Fold()
)

// Normalize lowercases s, strips accents and punctuation and collapses
// whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = folder.String(folded)

	var b strings.Builder
	space := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case !space:
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Jaro returns the Jaro similarity of a and b in [0, 1].
func Jaro(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}

	window := max(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}
	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		lo := max(0, i-window)
		hi := min(lb-1, i+window)
		for j := lo; j <= hi; j++ {
			if matchedB[j] || ra[i] != rb[j] {
				continue
			}
			matchedA[i], matchedB[j] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if ra[i] != rb[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-float64(transpositions)/2)/m) / 3
}

// Matcher scores title pairs and memoizes the results. A Matcher is safe
// for concurrent use and lives for one call.
type Matcher struct {
	scores *memo.Memo[float64]
}

// New returns an empty matcher.
func New() *Matcher {
	return &Matcher{scores: memo.New[float64]()}
}

// Score returns the similarity of two titles after normalization. Titles
// whose digit sequences differ are penalized.
func (m *Matcher) Score(a, b string) float64 {
	key := a + "\x00" + b
	if b < a {
		key = b + "\x00" + a
	}
	s, err := m.scores.Do(key, func() (float64, error) {
		return score(Normalize(a), Normalize(b)), nil
	})
	if err != nil {
		return 0
	}
	return s
}

func score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	s := Jaro(a, b)
	if strings.Join(numberPattern.FindAllString(a, -1), " ") != strings.Join(numberPattern.FindAllString(b, -1), " ") {
		s *= numberPenalty
	}
	return s
}

// threshold returns the similarity required for a and b to match.
func threshold(a, b string) float64 {
	t := Threshold
	switch {
	case sequelPattern.MatchString(a) || sequelPattern.MatchString(b):
		t = SequelThreshold
	case partPattern.MatchString(a) || partPattern.MatchString(b):
		t = PartThreshold
	}
	if len([]rune(Normalize(a))) < shortLength || len([]rune(Normalize(b))) < shortLength {
		t *= shortFactor
	}
	return t
}

// Match reports whether a and b name the same title. Combined titles such
// as "First / Second" match when either half does.
func (m *Matcher) Match(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	for _, pa := range split(a) {
		for _, pb := range split(b) {
			if m.Score(pa, pb) >= threshold(pa, pb) {
				return true
			}
		}
	}
	return false
}

// split returns the whole title followed by its "/" or "|" separated halves.
func split(s string) []string {
	out := []string{s}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '|' })
	if len(parts) > 1 {
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
