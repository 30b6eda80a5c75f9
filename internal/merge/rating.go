package merge

import (
	"maps"
	"math"
	"slices"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// ratingDamping is the vote count at which a provider reaches half weight.
const ratingDamping = 250

// Rating combines the per-provider ratings into one value. Each rating is
// weighted by votes/(votes+ratingDamping), so a handful of votes barely moves
// the result; providers that report no votes get a small fixed weight. The
// result is rounded to one decimal and the votes are summed. Providers are
// summed in name order so the result does not depend on map order.
func Rating(v media.Voting) (float64, int) {
	var sum, weights float64
	votes := 0
	for _, p := range slices.Sorted(maps.Keys(v.Rating)) {
		r := v.Rating[p]
		if r <= 0 {
			continue
		}
		n := v.Votes[p]
		w := 0.1
		if n > 0 {
			w = float64(n) / float64(n+ratingDamping)
		}
		sum += r * w
		weights += w
		votes += n
	}
	if weights == 0 {
		return 0, 0
	}
	return math.Round(sum/weights*10) / 10, votes
}
