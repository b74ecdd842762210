package transport

import (
	"fmt"

	"github.com/luxfi/ipa-helper/pkg/party"
)

// Route selects which control surface an inbound message targets.
type Route int

const (
	// RouteReceiveQuery asks a helper to admit a brand-new query.
	RouteReceiveQuery Route = iota
	// RoutePrepareQuery asks a helper to reserve resources for a query that
	// another helper has already accepted.
	RoutePrepareQuery
	// RouteRecords delivers one step's worth of a Records byte stream.
	RouteRecords
)

func (r Route) String() string {
	switch r {
	case RouteReceiveQuery:
		return "ReceiveQuery"
	case RoutePrepareQuery:
		return "PrepareQuery"
	case RouteRecords:
		return "Records"
	default:
		return "Unknown"
	}
}

// Addr is the envelope every inbound message carries: enough to route it to
// the right handler and, for Records, to the right StreamKey.
type Addr struct {
	Route  Route
	Query  QueryID
	Origin party.Helper // sending helper, set for Records
	Step   StepPath     // set for Records
}

func (a Addr) String() string {
	switch a.Route {
	case RouteRecords:
		return fmt.Sprintf("Addr{route=Records, query=%s, origin=%s, step=%s}", a.Query, a.Origin, a.Step)
	default:
		return fmt.Sprintf("Addr{route=%s, query=%s}", a.Route, a.Query)
	}
}
