package highlight

import (
	"reflect"
	"testing"

	"github.com/matzehuels/flowmap/pkg/catalog"
)

func TestNeighborhoodOfService(t *testing.T) {
	c := catalog.MustNew(catalog.Sample())

	// BIL001 touches F001 and F002; F001 is in FL001, F002 in FL001 and FL002.
	st := NeighborhoodOfService(c, "BIL001")
	if got := sorted(st.Flows); !reflect.DeepEqual(got, []string{"FL001", "FL002"}) {
		t.Errorf("Flows = %v, want [FL001 FL002]", got)
	}
	if got := sorted(st.Services); !reflect.DeepEqual(got, []string{"BIL001", "CRM001", "INV001", "REP001"}) {
		t.Errorf("Services = %v", got)
	}
	if got := sorted(st.Feeds); !reflect.DeepEqual(got, []string{"F001", "F002", "F003"}) {
		t.Errorf("Feeds = %v", got)
	}
	if st.Filtered || st.Visible.Len() != 3 {
		t.Errorf("neighborhood keeps all feeds visible, got %v", sorted(st.Visible))
	}
}

func TestNeighborhoodOfServiceOutsideFlows(t *testing.T) {
	c := catalog.MustNew(catalog.Document{
		Services: []catalog.Service{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}},
		Feeds: []catalog.Feed{
			{ID: "AB", SupplierID: "A", ReceiverID: "B"},
			{ID: "CD", SupplierID: "C", ReceiverID: "D"},
		},
		Flows: []catalog.Flow{{ID: "FL", Feeds: []string{"CD"}}},
	})

	st := NeighborhoodOfService(c, "A")
	if got := sorted(st.Services); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Services = %v, want [A B]", got)
	}
	if st.Flows.Len() != 0 {
		t.Errorf("Flows = %v, want none", sorted(st.Flows))
	}
}

func TestNeighborhoodOfFeed(t *testing.T) {
	c := catalog.MustNew(catalog.Sample())

	// F001 is only in FL001, which spans every service.
	st := NeighborhoodOfFeed(c, "F001")
	if got := sorted(st.Flows); !reflect.DeepEqual(got, []string{"FL001"}) {
		t.Errorf("Flows = %v, want [FL001]", got)
	}
	if st.Services.Len() != 4 || st.Feeds.Len() != 3 {
		t.Errorf("Services = %v, Feeds = %v", sorted(st.Services), sorted(st.Feeds))
	}
	if got := sorted(st.Animated); !reflect.DeepEqual(got, []string{"F001"}) {
		t.Errorf("Animated = %v, want [F001]", got)
	}

	// F003 is in both flows.
	st = NeighborhoodOfFeed(c, "F003")
	if got := sorted(st.Flows); !reflect.DeepEqual(got, []string{"FL001", "FL002"}) {
		t.Errorf("Flows = %v, want [FL001 FL002]", got)
	}
}

func TestNeighborhoodUnknown(t *testing.T) {
	c := catalog.MustNew(catalog.Sample())
	if st := NeighborhoodOfService(c, "NOPE"); !st.Empty() {
		t.Error("unknown service should give an empty state")
	}
	if st := NeighborhoodOfFeed(c, "NOPE"); !st.Empty() {
		t.Error("unknown feed should give an empty state")
	}
	if st := ResolveGesture(c, Gesture{Kind: KindFlow, ID: "FL001"}); !st.Empty() {
		t.Error("flow gestures are not defined")
	}
}

func TestResolveGestureDispatch(t *testing.T) {
	c := catalog.MustNew(catalog.Sample())
	if !ResolveGesture(c, Gesture{Kind: KindService, ID: "CRM001"}).Equal(NeighborhoodOfService(c, "CRM001")) {
		t.Error("service gesture should match NeighborhoodOfService")
	}
	if !ResolveGesture(c, Gesture{Kind: KindFeed, ID: "F002"}).Equal(NeighborhoodOfFeed(c, "F002")) {
		t.Error("feed gesture should match NeighborhoodOfFeed")
	}
}
