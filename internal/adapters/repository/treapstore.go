package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/okian/ntag/internal/domain/model"
	"github.com/okian/ntag/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then event ID ASC, then candidate index ASC.
// In-order traversal yields candidates from best to worst score.

type key struct {
	eventID string
	index   int
}

type node struct {
	key   key
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, a) should appear before (bScore, b).
func less(aScore float64, a key, bScore float64, b key) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	if a.eventID != b.eventID {
		return a.eventID < b.eventID
	}
	return a.index < b.index
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, k key, score float64) *node {
	if n == nil {
		return &node{key: k, score: score, prio: rand.Uint64(), size: 1}
	}
	if less(score, k, n.score, n.key) {
		n.left = insert(n.left, k, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, k, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, k key, score float64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && k == n.key {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, k, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, k, score)
		}
	} else if less(score, k, n.score, n.key) {
		n.left = deleteNode(n.left, k, score)
	} else {
		n.right = deleteNode(n.right, k, score)
	}
	fix(n)
	return n
}

// countAbove counts nodes with score strictly greater than cut in O(log n).
func countAbove(n *node, cut float64) int {
	count := 0
	for n != nil {
		if n.score > cut {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, byID map[string]model.Result, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byID, out)
	if len(*out) < limit {
		if res, ok := byID[n.key.eventID]; ok && n.key.index < len(res.Candidates) {
			c := res.Candidates[n.key.index]
			*out = append(*out, Entry{
				EventID:   n.key.eventID,
				HitID:     c.HitID,
				Score:     n.score,
				ReconTime: c.ReconTime(),
				Label:     c.Label,
				TagClass:  c.TagClass,
			})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byID, out)
	}
}

// TreapStore keeps results by event ID with a treap over delayed candidate scores.
type TreapStore struct {
	mu         sync.RWMutex
	root       *node
	byID       map[string]model.Result
	order      []string
	totals     model.Counters
	maxResults int
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{byID: make(map[string]model.Result)}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateResultsStored(0)
	return s
}

func candidateScore(c *model.Candidate) float64 {
	score := c.Features.Get(model.FeatureScore, 0)
	if math.IsNaN(score) {
		return math.Inf(-1)
	}
	return score
}

// Store implements Store.Store in O(k log n) for k delayed candidates.
func (s *TreapStore) Store(ctx context.Context, result model.Result) error { //nolint:gocritic // hugeParam: Result is stored by value
	s.mu.Lock()
	if _, ok := s.byID[result.EventID]; ok {
		s.removeLocked(result.EventID, true)
	} else {
		s.order = append(s.order, result.EventID)
	}
	s.byID[result.EventID] = result
	for i, c := range result.Candidates {
		s.root = insert(s.root, key{eventID: result.EventID, index: i}, candidateScore(c))
	}
	s.totals.Add(result.Counters)

	for s.maxResults > 0 && len(s.byID) > s.maxResults {
		oldest := s.order[0]
		s.order = s.order[1:]
		s.removeLocked(oldest, false)
	}
	n := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateResultsStored(n)
	return nil
}

// removeLocked drops a result's index nodes. With untally the result's
// counters are also taken back out of the totals.
func (s *TreapStore) removeLocked(eventID string, untally bool) {
	old, ok := s.byID[eventID]
	if !ok {
		return
	}
	for i, c := range old.Candidates {
		s.root = deleteNode(s.root, key{eventID: eventID, index: i}, candidateScore(c))
	}
	if untally {
		s.totals.Add(model.Counters{
			TrueElectrons:   -old.Counters.TrueElectrons,
			TaggedElectrons: -old.Counters.TaggedElectrons,
			TrueNeutrons:    -old.Counters.TrueNeutrons,
			TaggedNeutrons:  -old.Counters.TaggedNeutrons,
		})
	}
	delete(s.byID, eventID)
}

// Get returns a stored result.
func (s *TreapStore) Get(ctx context.Context, eventID string) (model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.byID[eventID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Result{}, ErrNotFound
	}
	return res, nil
}

// CountAbove returns the number of delayed candidates scoring above cut.
func (s *TreapStore) CountAbove(ctx context.Context, cut float64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countAbove(s.root, cut)
}

// TopN returns the top N candidates ordered by score desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, nsize(s.root)))
	collectTopN(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Totals returns counters summed over every stored result.
func (s *TreapStore) Totals(ctx context.Context) model.Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// Count returns the number of retained results.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// assignRanksWithTies gives equal scores the same rank; ranks stay consecutive.
func assignRanksWithTies(entries []Entry) {
	currentRank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			currentRank++
		}
		entries[i].Rank = currentRank
	}
}
