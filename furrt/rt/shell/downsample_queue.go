package shell

import (
	"github.com/chewxy/math32"
	"github.com/google/uuid"
)

const (
	MinDownsampleFactor = 1
	MaxDownsampleFactor = 16
)

// DownsampleQuality presets map onto integer resolution divisors.
type DownsampleQuality int

const (
	QualityFull    DownsampleQuality = 1
	QualityHalf    DownsampleQuality = 2
	QualityQuarter DownsampleQuality = 3
)

func (q DownsampleQuality) Factor() int { return ClampDownsampleFactor(int(q)) }

func ClampDownsampleFactor(f int) int {
	if f < MinDownsampleFactor {
		return MinDownsampleFactor
	}
	if f > MaxDownsampleFactor {
		return MaxDownsampleFactor
	}
	return f
}

// DownsampleTargetSize is the low-resolution target size for a screen of
// w×h pixels, rounded up so no screen pixel is left uncovered.
func DownsampleTargetSize(w, h, factor int) (int, int) {
	f := float32(ClampDownsampleFactor(factor))
	tw := int(math32.Ceil(float32(w) / f))
	th := int(math32.Ceil(float32(h) / f))
	return max(tw, 1), max(th, 1)
}

// DownsampleQueue holds the sources drawn into the reduced target this
// frame, once each and in enqueue order.
type DownsampleQueue struct {
	order   []IndirectSource
	present map[uuid.UUID]struct{}
}

func NewDownsampleQueue() *DownsampleQueue {
	return &DownsampleQueue{present: make(map[uuid.UUID]struct{})}
}

// Enqueue adds src unless it is already queued.
func (q *DownsampleQueue) Enqueue(src IndirectSource) {
	if src == nil {
		return
	}
	if _, ok := q.present[src.ID()]; ok {
		return
	}
	q.present[src.ID()] = struct{}{}
	q.order = append(q.order, src)
}

// Drain returns the draws of every queued source that still has draw data
// and empties the queue. Sources without data are dropped silently.
func (q *DownsampleQueue) Drain(accept func(IndirectDraw) bool) []IndirectDraw {
	draws := make([]IndirectDraw, 0, len(q.order))
	for _, src := range q.order {
		d, ok := src.IndirectDrawData()
		if !ok || d.Args == nil || d.Material == nil {
			continue
		}
		if accept != nil && !accept(d) {
			continue
		}
		draws = append(draws, d)
	}
	q.Reset()
	return draws
}

func (q *DownsampleQueue) Len() int { return len(q.order) }

func (q *DownsampleQueue) Reset() {
	q.order = q.order[:0]
	clear(q.present)
}
