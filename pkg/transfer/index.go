package transfer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// ErrStopOutOfRange is returned when a transfer references a stop index
// outside the network.
var ErrStopOutOfRange = errors.New("transfer references stop out of range")

// Mode is a bitmask of street modes a transfer can be used with.
type Mode uint8

const (
	Walk Mode = 1 << iota
	Bike
	Car

	AllModes = Walk | Bike | Car
)

// ParseMode parses a single mode name: walk, bike or car.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walk":
		return Walk, nil
	case "bike":
		return Bike, nil
	case "car":
		return Car, nil
	}
	return 0, fmt.Errorf("transfer: unknown mode %q", s)
}

// Transfer is a directed street connection between two stops.
type Transfer struct {
	From     int
	To       int
	Duration int // seconds
	C1       int // generalized cost, centi-seconds
	Modes    Mode
}

// Allows reports whether the transfer can be used with any of the modes in m.
func (t Transfer) Allows(m Mode) bool { return t.Modes&m != 0 }

// csr is a transfer adjacency in CSR (Compressed Sparse Row) layout.
// firstOut[s]..firstOut[s+1] index the transfers grouped under stop s.
type csr struct {
	firstOut []uint32 // len: numStops + 1
	edges    []Transfer
}

func (g *csr) at(stop int) []Transfer {
	return g.edges[g.firstOut[stop]:g.firstOut[stop+1]]
}

// Index holds the transfer graph between stops. The forward adjacency is
// built at construction; the reverse adjacency is derived on first use.
// An Index is safe for concurrent use and never mutated after the reverse
// adjacency is published.
type Index struct {
	numStops int
	fwd      csr

	// The reverse build is race tolerant: concurrent callers may each build
	// it, all builds are identical, and the first published one is kept.
	rev atomic.Pointer[csr]
}

// NewIndex groups transfers by origin stop. Raw multiplicity is preserved;
// duplicates between the same stop pair are pruned at read time by View.
func NewIndex(numStops int, transfers []Transfer) (*Index, error) {
	for i, t := range transfers {
		if t.From < 0 || t.From >= numStops || t.To < 0 || t.To >= numStops {
			return nil, fmt.Errorf("transfer %d (%d->%d, %d stops): %w", i, t.From, t.To, numStops, ErrStopOutOfRange)
		}
		if t.Duration < 0 {
			return nil, fmt.Errorf("transfer %d (%d->%d): negative duration %d", i, t.From, t.To, t.Duration)
		}
	}

	return &Index{
		numStops: numStops,
		fwd:      buildCSR(numStops, transfers, func(t Transfer) int { return t.From }),
	}, nil
}

// buildCSR groups edges by key with a stable counting sort so that the
// input order of transfers sharing a key is kept.
func buildCSR(numStops int, transfers []Transfer, key func(Transfer) int) csr {
	firstOut := make([]uint32, numStops+1)
	for _, t := range transfers {
		firstOut[key(t)+1]++
	}
	// Prefix sum.
	for i := 1; i <= numStops; i++ {
		firstOut[i] += firstOut[i-1]
	}

	edges := make([]Transfer, len(transfers))
	pos := make([]uint32, numStops)
	copy(pos, firstOut[:numStops])
	for _, t := range transfers {
		k := key(t)
		edges[pos[k]] = t
		pos[k]++
	}
	return csr{firstOut: firstOut, edges: edges}
}

// NumberOfStops returns the number of stops the index was built for.
func (ix *Index) NumberOfStops() int { return ix.numStops }

// NumberOfTransfers returns the raw number of transfers.
func (ix *Index) NumberOfTransfers() int { return len(ix.fwd.edges) }

// Forward returns the raw transfers leaving stop. The slice must not be
// modified.
func (ix *Index) Forward(stop int) []Transfer {
	return ix.fwd.at(stop)
}

// Reverse returns the raw transfers arriving at stop. The slice must not be
// modified.
func (ix *Index) Reverse(stop int) []Transfer {
	return ix.reverse().at(stop)
}

func (ix *Index) reverse() *csr {
	if r := ix.rev.Load(); r != nil {
		return r
	}
	built := buildCSR(ix.numStops, ix.fwd.edges, func(t Transfer) int { return t.To })
	if ix.rev.CompareAndSwap(nil, &built) {
		return &built
	}
	return ix.rev.Load()
}

// ForRequest returns a per-search view filtered to mode.
func (ix *Index) ForRequest(mode Mode) *View {
	return &View{
		ix:   ix,
		mode: mode,
		from: make([][]Transfer, ix.numStops),
		to:   make([][]Transfer, ix.numStops),
		done: make([]uint8, ix.numStops),
	}
}

const (
	fromDone uint8 = 1 << iota
	toDone
)

// View is the transfer graph as one search sees it: filtered to the
// request mode and with at most one transfer per directed stop pair.
// Lists are computed on first access per stop. A View belongs to a single
// search and is not safe for concurrent use.
type View struct {
	ix   *Index
	mode Mode
	from [][]Transfer
	to   [][]Transfer
	done []uint8
}

// From returns the transfers leaving stop, ordered by destination stop.
func (v *View) From(stop int) []Transfer {
	if v.done[stop]&fromDone == 0 {
		v.from[stop] = prune(v.ix.Forward(stop), v.mode, func(t Transfer) int { return t.To })
		v.done[stop] |= fromDone
	}
	return v.from[stop]
}

// To returns the transfers arriving at stop, ordered by origin stop.
func (v *View) To(stop int) []Transfer {
	if v.done[stop]&toDone == 0 {
		v.to[stop] = prune(v.ix.Reverse(stop), v.mode, func(t Transfer) int { return t.From })
		v.done[stop] |= toDone
	}
	return v.to[stop]
}

// prune filters by mode and keeps the cheapest transfer per other endpoint.
// Ties on C1 are broken by shorter duration, then by input order.
func prune(raw []Transfer, mode Mode, other func(Transfer) int) []Transfer {
	out := make([]Transfer, 0, len(raw))
	for _, t := range raw {
		if t.Allows(mode) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if other(out[i]) != other(out[j]) {
			return other(out[i]) < other(out[j])
		}
		if out[i].C1 != out[j].C1 {
			return out[i].C1 < out[j].C1
		}
		return out[i].Duration < out[j].Duration
	})

	n := 0
	for i, t := range out {
		if i > 0 && other(t) == other(out[n-1]) {
			continue
		}
		out[n] = t
		n++
	}
	return out[:n]
}
