package matching

import (
	"math"

	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/internal/domain/types"
)

// Prune removes delayed candidates closer than window (ns) to an early
// candidate tagged as an electron, and returns how many were removed.
func Prune(delayed, early *model.CandidateCluster, window float64) int {
	var drop []int
	for i, c := range delayed.Candidates {
		for _, e := range early.Candidates {
			if e.TagClass == types.TagElectron && math.Abs(e.ReconTime()-c.ReconTime()) < window {
				drop = append(drop, i)
				break
			}
		}
	}
	delayed.Erase(drop)
	return len(drop)
}
