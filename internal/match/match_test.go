package match

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want string
	}{
		"punctuation": {in: "Cat's in the Bag...", want: "cat s in the bag"},
		"accents":     {in: "Café  Société", want: "cafe societe"},
		"separators":  {in: "Ozymandias/Granite-State", want: "ozymandias granite state"},
		"empty":       {in: "  ", want: ""},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestJaro(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		a, b string
		want float64
	}{
		"identical":  {a: "pilot", b: "pilot", want: 1},
		"martha":     {a: "martha", b: "marhta", want: 0.944},
		"dixon":      {a: "dixon", b: "dicksonx", want: 0.767},
		"disjoint":   {a: "abc", b: "xyz", want: 0},
		"one empty":  {a: "", b: "abc", want: 0},
		"both empty": {a: "", b: "", want: 1},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := Jaro(tc.a, tc.b)
			if math.Abs(got-tc.want) > 0.001 {
				t.Errorf("Jaro(%q, %q) = %.4f, want %.3f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		a, b string
		want bool
	}{
		"exact after folding":   {a: "Ozymandias", b: "ozymandias!", want: true},
		"minor typo":            {a: "The Rains of Castamere", b: "The Rains of Castamare", want: true},
		"different titles":      {a: "Pilot", b: "Felina", want: false},
		"combined first half":   {a: "The Long Night / Winterfell", b: "The Long Night", want: true},
		"combined pipe":         {a: "Part One | Part Two", b: "Part Two", want: true},
		"different part number": {a: "The Finale (1)", b: "The Finale (2)", want: false},
		"same part number":      {a: "The Finale Part 2", b: "The Finale Part 2", want: true},
		"empty":                 {a: "", b: "Pilot", want: false},
	}
	m := New()
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := m.Match(tc.a, tc.b); got != tc.want {
				t.Errorf("Match(%q, %q) = %v, want %v (score %.3f)", tc.a, tc.b, got, tc.want, m.Score(tc.a, tc.b))
			}
		})
	}
}

func TestScoreMemoized(t *testing.T) {
	t.Parallel()

	m := New()
	first := m.Score("Breaking Bad", "Breaking Bad 2")
	second := m.Score("Breaking Bad 2", "Breaking Bad")
	if first != second {
		t.Errorf("Score is not symmetric: %.3f vs %.3f", first, second)
	}
	if m.scores.Len() != 1 {
		t.Errorf("memo holds %d entries, want 1", m.scores.Len())
	}
	if first >= 0.9*numberPenalty+0.05 {
		t.Errorf("Score() = %.3f, want the number penalty applied", first)
	}
}

func TestThreshold(t *testing.T) {
	t.Parallel()

	long := "A Very Long Episode Title Indeed"
	if got := threshold(long, long); got != Threshold {
		t.Errorf("threshold(long) = %v, want %v", got, Threshold)
	}
	if got := threshold("Sequel to the Great Long Title", long); got != SequelThreshold {
		t.Errorf("threshold(sequel) = %v, want %v", got, SequelThreshold)
	}
	if got := threshold("Short (1)", "Short (2)"); math.Abs(got-PartThreshold*shortFactor) > 1e-9 {
		t.Errorf("threshold(short part) = %v, want %v", got, PartThreshold*shortFactor)
	}
}
