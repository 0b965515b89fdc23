// Package catalog holds the graph model: IT services, the data feeds
// between them, and named flows that chain feeds together.
//
// A [Catalog] is immutable once built. It indexes every entity by id and
// keeps declaration order, which the layout engine relies on. References
// are resolved leniently: a feed naming an unknown service, or a flow
// naming an unknown feed, is kept and recorded as an [Issue]; consumers
// skip the missing side. Only structural faults (empty or duplicate ids)
// make [New] fail.
package catalog

import (
	"fmt"
	"slices"

	"github.com/matzehuels/flowmap/pkg/cache"
	"github.com/matzehuels/flowmap/pkg/errors"
)

// Service is a node of the diagram.
type Service struct {
	ID          string `json:"id" yaml:"id" toml:"id" bson:"id"`
	Name        string `json:"name" yaml:"name" toml:"name" bson:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" bson:"description,omitempty"`
}

// Label returns the display label, falling back to the id.
func (s Service) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Feed is a directed data transfer from a supplier to a receiver.
// Type, Frequency and Format are free-form tooltip metadata.
type Feed struct {
	ID          string `json:"id" yaml:"id" toml:"id" bson:"id"`
	Name        string `json:"name" yaml:"name" toml:"name" bson:"name"`
	SupplierID  string `json:"supplierId" yaml:"supplierId" toml:"supplierId" bson:"supplierId"`
	ReceiverID  string `json:"receiverId" yaml:"receiverId" toml:"receiverId" bson:"receiverId"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" bson:"description,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty" bson:"type,omitempty"`
	Frequency   string `json:"frequency,omitempty" yaml:"frequency,omitempty" toml:"frequency,omitempty" bson:"frequency,omitempty"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty" bson:"format,omitempty"`
}

// Label returns the display label, falling back to the id.
func (f Feed) Label() string {
	if f.Name != "" {
		return f.Name
	}
	return f.ID
}

// Touches reports whether serviceID is the supplier or the receiver.
func (f Feed) Touches(serviceID string) bool {
	return f.SupplierID == serviceID || f.ReceiverID == serviceID
}

// Flow is a named, ordered sequence of feed ids.
type Flow struct {
	ID          string   `json:"id" yaml:"id" toml:"id" bson:"id"`
	Name        string   `json:"name" yaml:"name" toml:"name" bson:"name"`
	Feeds       []string `json:"feeds" yaml:"feeds" toml:"feeds" bson:"feeds"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" bson:"description,omitempty"`
}

// Document is the serialized form of a catalog.
type Document struct {
	Services []Service `json:"services" yaml:"services" toml:"services"`
	Feeds    []Feed    `json:"feeds" yaml:"feeds" toml:"feeds"`
	Flows    []Flow    `json:"flows" yaml:"flows" toml:"flows"`
}

// IssueKind classifies a dangling or degenerate reference.
type IssueKind string

const (
	IssueUnknownSupplier IssueKind = "unknown_supplier"
	IssueUnknownReceiver IssueKind = "unknown_receiver"
	IssueUnknownFeed     IssueKind = "unknown_feed"
	IssueEmptyFlow       IssueKind = "empty_flow"
)

// Issue records a reference that could not be resolved. Owner is the id of
// the feed or flow holding the reference; Missing is the unresolved id.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Owner   string    `json:"owner"`
	Missing string    `json:"missing,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueUnknownSupplier:
		return fmt.Sprintf("feed %s: unknown supplier %s", i.Owner, i.Missing)
	case IssueUnknownReceiver:
		return fmt.Sprintf("feed %s: unknown receiver %s", i.Owner, i.Missing)
	case IssueUnknownFeed:
		return fmt.Sprintf("flow %s: unknown feed %s", i.Owner, i.Missing)
	case IssueEmptyFlow:
		return fmt.Sprintf("flow %s: no feeds", i.Owner)
	}
	return fmt.Sprintf("%s %s %s", i.Kind, i.Owner, i.Missing)
}

// Catalog is an indexed, read-only view of a Document.
type Catalog struct {
	doc Document

	serviceIdx map[string]int
	feedIdx    map[string]int
	flowIdx    map[string]int

	outgoing    map[string][]int // supplier -> feed indices, declaration order
	incoming    map[string][]int // receiver -> feed indices, declaration order
	flowsByFeed map[string][]int // feed -> flow indices, declaration order

	issues  []Issue
	version string
}

// New indexes doc. It fails on empty or duplicate ids and records every
// dangling reference as an Issue.
func New(doc Document) (*Catalog, error) {
	c := &Catalog{
		doc:         doc,
		serviceIdx:  make(map[string]int, len(doc.Services)),
		feedIdx:     make(map[string]int, len(doc.Feeds)),
		flowIdx:     make(map[string]int, len(doc.Flows)),
		outgoing:    make(map[string][]int),
		incoming:    make(map[string][]int),
		flowsByFeed: make(map[string][]int),
	}

	for i, s := range doc.Services {
		if err := errors.ValidateID("service", s.ID); err != nil {
			return nil, err
		}
		if _, dup := c.serviceIdx[s.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidCatalog, "duplicate service id %q", s.ID)
		}
		c.serviceIdx[s.ID] = i
	}

	for i, f := range doc.Feeds {
		if err := errors.ValidateID("feed", f.ID); err != nil {
			return nil, err
		}
		if _, dup := c.feedIdx[f.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidCatalog, "duplicate feed id %q", f.ID)
		}
		c.feedIdx[f.ID] = i

		if _, ok := c.serviceIdx[f.SupplierID]; !ok {
			c.issues = append(c.issues, Issue{Kind: IssueUnknownSupplier, Owner: f.ID, Missing: f.SupplierID})
		}
		if _, ok := c.serviceIdx[f.ReceiverID]; !ok {
			c.issues = append(c.issues, Issue{Kind: IssueUnknownReceiver, Owner: f.ID, Missing: f.ReceiverID})
		}
		c.outgoing[f.SupplierID] = append(c.outgoing[f.SupplierID], i)
		c.incoming[f.ReceiverID] = append(c.incoming[f.ReceiverID], i)
	}

	for i, fl := range doc.Flows {
		if err := errors.ValidateID("flow", fl.ID); err != nil {
			return nil, err
		}
		if _, dup := c.flowIdx[fl.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidCatalog, "duplicate flow id %q", fl.ID)
		}
		c.flowIdx[fl.ID] = i

		if len(fl.Feeds) == 0 {
			c.issues = append(c.issues, Issue{Kind: IssueEmptyFlow, Owner: fl.ID})
		}
		seen := make(map[string]bool, len(fl.Feeds))
		for _, feedID := range fl.Feeds {
			if seen[feedID] {
				continue
			}
			seen[feedID] = true
			if _, ok := c.feedIdx[feedID]; !ok {
				c.issues = append(c.issues, Issue{Kind: IssueUnknownFeed, Owner: fl.ID, Missing: feedID})
				continue
			}
			c.flowsByFeed[feedID] = append(c.flowsByFeed[feedID], i)
		}
	}

	c.version = cache.HashJSON(doc)
	return c, nil
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(doc Document) *Catalog {
	c, err := New(doc)
	if err != nil {
		panic(err)
	}
	return c
}

// Document returns the document the catalog was built from.
func (c *Catalog) Document() Document { return c.doc }

// Version is a content hash of the document.
func (c *Catalog) Version() string { return c.version }

// Issues lists the unresolved references found while indexing.
func (c *Catalog) Issues() []Issue { return c.issues }

// Services returns all services in declaration order. The slice must not be modified.
func (c *Catalog) Services() []Service { return c.doc.Services }

// Feeds returns all feeds in declaration order. The slice must not be modified.
func (c *Catalog) Feeds() []Feed { return c.doc.Feeds }

// Flows returns all flows in declaration order. The slice must not be modified.
func (c *Catalog) Flows() []Flow { return c.doc.Flows }

// Empty reports whether the catalog has no services.
func (c *Catalog) Empty() bool { return len(c.doc.Services) == 0 }

// Service looks up a service by id.
func (c *Catalog) Service(id string) (Service, bool) {
	i, ok := c.serviceIdx[id]
	if !ok {
		return Service{}, false
	}
	return c.doc.Services[i], true
}

// Feed looks up a feed by id.
func (c *Catalog) Feed(id string) (Feed, bool) {
	i, ok := c.feedIdx[id]
	if !ok {
		return Feed{}, false
	}
	return c.doc.Feeds[i], true
}

// Flow looks up a flow by id.
func (c *Catalog) Flow(id string) (Flow, bool) {
	i, ok := c.flowIdx[id]
	if !ok {
		return Flow{}, false
	}
	return c.doc.Flows[i], true
}

// HasService reports whether id names a known service.
func (c *Catalog) HasService(id string) bool {
	_, ok := c.serviceIdx[id]
	return ok
}

// Outgoing returns the feeds supplied by serviceID, in declaration order.
func (c *Catalog) Outgoing(serviceID string) []Feed {
	return c.feedsAt(c.outgoing[serviceID])
}

// Incoming returns the feeds received by serviceID, in declaration order.
func (c *Catalog) Incoming(serviceID string) []Feed {
	return c.feedsAt(c.incoming[serviceID])
}

// Incident returns every feed touching serviceID, in declaration order.
// A self-loop appears once.
func (c *Catalog) Incident(serviceID string) []Feed {
	idx := append(slices.Clone(c.outgoing[serviceID]), c.incoming[serviceID]...)
	slices.Sort(idx)
	return c.feedsAt(slices.Compact(idx))
}

// HasIncoming reports whether another known service feeds serviceID.
// Self-loops and feeds from unknown suppliers do not count.
func (c *Catalog) HasIncoming(serviceID string) bool {
	for _, i := range c.incoming[serviceID] {
		sup := c.doc.Feeds[i].SupplierID
		if sup != serviceID && c.HasService(sup) {
			return true
		}
	}
	return false
}

// FlowFeeds resolves a flow's feed list in order, skipping unknown ids and
// repeated entries. It returns nil for an unknown flow.
func (c *Catalog) FlowFeeds(flowID string) []Feed {
	fl, ok := c.Flow(flowID)
	if !ok {
		return nil
	}
	out := make([]Feed, 0, len(fl.Feeds))
	seen := make(map[string]bool, len(fl.Feeds))
	for _, id := range fl.Feeds {
		if seen[id] {
			continue
		}
		seen[id] = true
		if f, ok := c.Feed(id); ok {
			out = append(out, f)
		}
	}
	return out
}

// FlowsContainingFeed returns the flows that list feedID, in declaration order.
func (c *Catalog) FlowsContainingFeed(feedID string) []Flow {
	idx := c.flowsByFeed[feedID]
	out := make([]Flow, len(idx))
	for i, j := range idx {
		out[i] = c.doc.Flows[j]
	}
	return out
}

// Hop is one step of a flow chain.
type Hop struct {
	Feed     Feed
	Supplier string // label of the supplier, or its raw id if unknown
	Receiver string // label of the receiver, or its raw id if unknown
}

// FlowChain lists the hops of a flow in order, for textual display.
func (c *Catalog) FlowChain(flowID string) []Hop {
	feeds := c.FlowFeeds(flowID)
	hops := make([]Hop, len(feeds))
	for i, f := range feeds {
		hops[i] = Hop{Feed: f, Supplier: c.serviceLabel(f.SupplierID), Receiver: c.serviceLabel(f.ReceiverID)}
	}
	return hops
}

func (c *Catalog) serviceLabel(id string) string {
	if s, ok := c.Service(id); ok {
		return s.Label()
	}
	return id
}

func (c *Catalog) feedsAt(idx []int) []Feed {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Feed, len(idx))
	for i, j := range idx {
		out[i] = c.doc.Feeds[j]
	}
	return out
}
