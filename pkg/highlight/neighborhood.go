package highlight

import "github.com/matzehuels/flowmap/pkg/catalog"

// Gesture is a click on a diagram element.
type Gesture struct {
	Kind Kind   `json:"kind"` // KindService or KindFeed
	ID   string `json:"id"`
}

// ResolveGesture dispatches to the neighborhood function for g.Kind.
// Other kinds yield an empty State.
func ResolveGesture(cat *catalog.Catalog, g Gesture) State {
	switch g.Kind {
	case KindService:
		return NeighborhoodOfService(cat, g.ID)
	case KindFeed:
		return NeighborhoodOfFeed(cat, g.ID)
	}
	return emptyState()
}

// NeighborhoodOfService highlights the flows touching any feed incident to
// the service, together with every service and feed of those flows. The
// incident feeds themselves and their endpoints are included even when no
// flow lists them. All feeds stay visible.
func NeighborhoodOfService(cat *catalog.Catalog, id string) State {
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
	expandFlows(cat, &st)
	showAll(cat, st.Visible)
	return st
}

// NeighborhoodOfFeed highlights the flows containing the feed, together
// with every service and feed of those flows. The clicked feed is animated
// and all feeds stay visible.
func NeighborhoodOfFeed(cat *catalog.Catalog, id string) State {
	st := emptyState()
	f, ok := cat.Feed(id)
	if !ok {
		return st
	}
	st.Filtered = false
	st.Feeds.Add(f.ID)
	st.Animated.Add(f.ID)
	addEndpoints(cat, st.Services, f)
	addFlows(cat, st.Flows, f.ID)
	expandFlows(cat, &st)
	showAll(cat, st.Visible)
	return st
}

func expandFlows(cat *catalog.Catalog, st *State) {
	for flowID := range st.Flows {
		for _, f := range cat.FlowFeeds(flowID) {
			st.Feeds.Add(f.ID)
			addEndpoints(cat, st.Services, f)
		}
	}
}
