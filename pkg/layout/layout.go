// Package layout assigns 2D positions to catalog services.
//
// The placement is a depth-first walk from every root service (one that no
// other known service feeds), in declaration order:
//
//	root            -> (0, cursor)
//	each new child  -> cursor += VerticalGap; (parent.X + HorizontalGap, cursor)
//	after each root -> cursor += VerticalGap
//
// Children are visited in feed declaration order and a service is placed
// only the first time it is reached. The result is a staircase rather than
// a balanced tree, which keeps every chain readable left to right.
//
// Services that no root reaches (members of a cycle with no entry point)
// are reported in [Result.Unplaced] and positioned by the [Fallback] policy.
package layout

import (
	"fmt"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/errors"
)

// Default spacing between placed services.
const (
	DefaultHorizontalGap = 300.0
	DefaultVerticalGap   = 100.0
)

// Fallback selects how unreached services are positioned.
type Fallback string

const (
	// FallbackNone leaves unreached services without a position.
	FallbackNone Fallback = "none"
	// FallbackOrigin places every unreached service at (0, 0).
	FallbackOrigin Fallback = "origin"
	// FallbackOverflowRow lines unreached services up on one row below
	// everything else.
	FallbackOverflowRow Fallback = "overflow"
)

// DefaultFallback is the policy used when Options.Fallback is empty.
const DefaultFallback = FallbackOverflowRow

// ValidFallbacks is the set of accepted fallback policies.
var ValidFallbacks = map[Fallback]bool{
	FallbackNone:        true,
	FallbackOrigin:      true,
	FallbackOverflowRow: true,
}

// Options controls spacing and the unreached-service policy.
type Options struct {
	HorizontalGap float64  `json:"horizontal_gap,omitempty"`
	VerticalGap   float64  `json:"vertical_gap,omitempty"`
	Fallback      Fallback `json:"fallback,omitempty"`
}

// WithDefaults fills zero fields and rejects negative gaps or unknown
// fallback names.
func (o Options) WithDefaults() (Options, error) {
	if o.HorizontalGap < 0 || o.VerticalGap < 0 {
		return o, errors.New(errors.ErrCodeInvalidOptions, "layout gaps must not be negative")
	}
	if o.HorizontalGap == 0 {
		o.HorizontalGap = DefaultHorizontalGap
	}
	if o.VerticalGap == 0 {
		o.VerticalGap = DefaultVerticalGap
	}
	if o.Fallback == "" {
		o.Fallback = DefaultFallback
	}
	if !ValidFallbacks[o.Fallback] {
		return o, errors.New(errors.ErrCodeInvalidOptions, "unknown layout fallback %q", o.Fallback)
	}
	return o, nil
}

// Position is a point in diagram coordinates. Y grows downward.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Graph is what the layout needs from a catalog.
type Graph interface {
	Services() []catalog.Service
	Outgoing(serviceID string) []catalog.Feed
	HasService(id string) bool
	HasIncoming(serviceID string) bool
}

// Result is a computed layout.
type Result struct {
	// Positions maps service ids to positions. Unreached services appear
	// only when the fallback assigned them one.
	Positions map[string]Position `json:"positions"`

	// Order lists service ids in placement order, fallback placements last.
	Order []string `json:"order"`

	// Roots lists the root services in declaration order.
	Roots []string `json:"roots"`

	// Unplaced lists services no root reached, in declaration order.
	Unplaced []string `json:"unplaced,omitempty"`

	// Fallback is the policy applied to Unplaced.
	Fallback Fallback `json:"fallback"`
}

// Position returns the position of id, if it has one.
func (r Result) Position(id string) (Position, bool) {
	p, ok := r.Positions[id]
	return p, ok
}

// Bounds returns the largest X and Y among placed services.
func (r Result) Bounds() (maxX, maxY float64) {
	for _, p := range r.Positions {
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return maxX, maxY
}

// frame is one level of the explicit depth-first stack.
type frame struct {
	id    string
	x     float64
	feeds []catalog.Feed
	next  int
}

// Compute lays out g. Invalid options fall back to their defaults.
func Compute(g Graph, opts Options) Result {
	o, err := opts.WithDefaults()
	if err != nil {
		o, _ = Options{}.WithDefaults()
	}

	services := g.Services()
	res := Result{
		Positions: make(map[string]Position, len(services)),
		Order:     make([]string, 0, len(services)),
		Fallback:  o.Fallback,
	}
	place := func(id string, p Position) {
		res.Positions[id] = p
		res.Order = append(res.Order, id)
	}

	cursor := 0.0
	for _, s := range services {
		if g.HasIncoming(s.ID) {
			continue
		}
		res.Roots = append(res.Roots, s.ID)
		if _, done := res.Positions[s.ID]; done {
			continue
		}

		place(s.ID, Position{X: 0, Y: cursor})
		stack := []frame{{id: s.ID, x: 0, feeds: g.Outgoing(s.ID)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.feeds) {
				stack = stack[:len(stack)-1]
				continue
			}
			recv := top.feeds[top.next].ReceiverID
			top.next++

			if !g.HasService(recv) {
				continue
			}
			if _, done := res.Positions[recv]; done {
				continue
			}
			cursor += o.VerticalGap
			x := top.x + o.HorizontalGap
			place(recv, Position{X: x, Y: cursor})
			stack = append(stack, frame{id: recv, x: x, feeds: g.Outgoing(recv)})
		}
		cursor += o.VerticalGap
	}

	for _, s := range services {
		if _, done := res.Positions[s.ID]; !done {
			res.Unplaced = append(res.Unplaced, s.ID)
		}
	}

	switch o.Fallback {
	case FallbackOrigin:
		for _, id := range res.Unplaced {
			place(id, Position{})
		}
	case FallbackOverflowRow:
		for i, id := range res.Unplaced {
			place(id, Position{X: float64(i) * o.HorizontalGap, Y: cursor})
		}
	}
	return res
}
