// Package highlight derives which services and feeds are emphasized for a
// selection or a click gesture.
//
// Two producers yield the same [State] value:
//
//   - [Resolve] maps a sidebar [Selection] (none, service, flow, feed).
//   - [NeighborhoodOfService] and [NeighborhoodOfFeed] map a click on the
//     diagram to the flows around the clicked element.
//
// [Merge] combines them: an active gesture state wins, otherwise the
// selection state applies.
//
// Every function is pure. Unknown ids produce an empty State and dangling
// references inside the catalog are skipped.
package highlight

import (
	"fmt"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/errors"
)

// Kind is the kind of a Selection.
type Kind string

const (
	KindNone    Kind = "none"
	KindService Kind = "service"
	KindFlow    Kind = "flow"
	KindFeed    Kind = "feed"
)

// ParseKind validates a kind name. The empty string means none.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindNone:
		return KindNone, nil
	case KindService, KindFlow, KindFeed:
		return Kind(s), nil
	}
	return "", errors.New(errors.ErrCodeInvalidSelection, "unknown selection kind %q", s)
}

// Selection is the user's current choice. At most one entity is selected.
type Selection struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// None is the empty selection.
func None() Selection { return Selection{Kind: KindNone} }

// SelectService selects a service.
func SelectService(id string) Selection { return Selection{Kind: KindService, ID: id} }

// SelectFlow selects a flow.
func SelectFlow(id string) Selection { return Selection{Kind: KindFlow, ID: id} }

// SelectFeed selects a feed.
func SelectFeed(id string) Selection { return Selection{Kind: KindFeed, ID: id} }

// IsNone reports whether nothing is selected.
func (s Selection) IsNone() bool { return s.Kind == "" || s.Kind == KindNone }

func (s Selection) String() string {
	if s.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// Options tunes presentation.
type Options struct {
	// FilterToSelection makes a feed selection show only that feed.
	// When false, all feeds stay visible and the selected one is animated.
	FilterToSelection bool `json:"filter_to_selection"`
}

// State is the derived highlight.
type State struct {
	Services Set `json:"services"` // highlighted services
	Feeds    Set `json:"feeds"`    // highlighted feeds
	Flows    Set `json:"flows"`    // flows related to the highlight
	Visible  Set `json:"visible"`  // feeds to render at all
	Animated Set `json:"animated"` // feeds drawn animated

	// Filtered means non-highlighted services are hidden rather than dimmed.
	Filtered bool `json:"filtered"`

	// Active is false for the no-selection state, where everything is
	// highlighted but nothing is emphasized.
	Active bool `json:"active"`
}

// Empty reports a "nothing to show" result.
func (s State) Empty() bool {
	return s.Services.Len() == 0 && s.Feeds.Len() == 0
}

// Equal compares all sets and flags.
func (s State) Equal(o State) bool {
	return s.Filtered == o.Filtered && s.Active == o.Active &&
		s.Services.Equal(o.Services) && s.Feeds.Equal(o.Feeds) && s.Flows.Equal(o.Flows) &&
		s.Visible.Equal(o.Visible) && s.Animated.Equal(o.Animated)
}

// Emphasized reports whether feed id is highlighted while a selection or
// gesture is active.
func (s State) Emphasized(feedID string) bool {
	return s.Active && s.Feeds.Has(feedID)
}

func emptyState() State {
	return State{
		Services: Set{}, Feeds: Set{}, Flows: Set{}, Visible: Set{}, Animated: Set{},
		Active: true, Filtered: true,
	}
}

// Resolve computes the highlight for sel.
func Resolve(cat *catalog.Catalog, sel Selection, opts Options) State {
	switch {
	case sel.IsNone():
		return resolveNone(cat)
	case sel.Kind == KindService:
		return resolveService(cat, sel.ID)
	case sel.Kind == KindFlow:
		return resolveFlow(cat, sel.ID)
	case sel.Kind == KindFeed:
		return resolveFeed(cat, sel.ID, opts)
	}
	return emptyState()
}

func resolveNone(cat *catalog.Catalog) State {
	st := State{Services: Set{}, Feeds: Set{}, Flows: Set{}, Visible: Set{}, Animated: Set{}}
	for _, s := range cat.Services() {
		st.Services.Add(s.ID)
	}
	for _, f := range cat.Feeds() {
		st.Feeds.Add(f.ID)
		st.Visible.Add(f.ID)
	}
	return st
}

func resolveService(cat *catalog.Catalog, id string) State {
	st := emptyState()
	if !cat.HasService(id) {
		return st
	}
	st.Filtered = false
	st.Services.Add(id)
	for _, f := range cat.Incident(id) {
		st.Feeds.Add(f.ID)
		addEndpoints(cat, st.Services, f)
		addFlows(cat, st.Flows, f.ID)
	}
	showAll(cat, st.Visible)
	return st
}

func resolveFlow(cat *catalog.Catalog, id string) State {
	st := emptyState()
	if _, ok := cat.Flow(id); !ok {
		return st
	}
	feeds := cat.FlowFeeds(id)
	if len(feeds) == 0 {
		return st
	}
	st.Flows.Add(id)
	for _, f := range feeds {
		st.Feeds.Add(f.ID)
		st.Visible.Add(f.ID)
		addEndpoints(cat, st.Services, f)
	}
	return st
}

func resolveFeed(cat *catalog.Catalog, id string, opts Options) State {
	st := emptyState()
	f, ok := cat.Feed(id)
	if !ok {
		return st
	}
	st.Feeds.Add(f.ID)
	st.Animated.Add(f.ID)
	addEndpoints(cat, st.Services, f)
	addFlows(cat, st.Flows, f.ID)

	if opts.FilterToSelection {
		st.Visible.Add(f.ID)
	} else {
		st.Filtered = false
		showAll(cat, st.Visible)
	}
	return st
}

// Merge returns the gesture state while one is active, else the selection state.
func Merge(selection State, gesture *State) State {
	if gesture != nil {
		return *gesture
	}
	return selection
}

func addEndpoints(cat *catalog.Catalog, services Set, f catalog.Feed) {
	if cat.HasService(f.SupplierID) {
		services.Add(f.SupplierID)
	}
	if cat.HasService(f.ReceiverID) {
		services.Add(f.ReceiverID)
	}
}

func addFlows(cat *catalog.Catalog, flows Set, feedID string) {
	for _, fl := range cat.FlowsContainingFeed(feedID) {
		flows.Add(fl.ID)
	}
}

func showAll(cat *catalog.Catalog, visible Set) {
	for _, f := range cat.Feeds() {
		visible.Add(f.ID)
	}
}
