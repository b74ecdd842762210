// Package transport implements the in-memory addressed transport and
// per-stream collection helpers use to exchange control messages and
// Records byte streams.
package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/luxfi/ipa-helper/pkg/party"
)

// QueryConfig is the control payload carried by a ReceiveQuery message.
type QueryConfig struct {
	QueryID QueryID `json:"query_id"`
	Size    uint32  `json:"size"`
}

// PrepareQueryConfig is the control payload carried by a PrepareQuery
// message.
type PrepareQueryConfig struct {
	QueryID QueryID        `json:"query_id"`
	Roles   []party.Helper `json:"roles"`
}

// Callbacks are the query-admission hooks a Transport invokes when it
// receives control messages. They run on the Transport's single dispatch
// goroutine, so implementations must not block indefinitely.
type Callbacks struct {
	ReceiveQuery func(QueryConfig) error
	PrepareQuery func(PrepareQueryConfig) error
}

type inboundMsg struct {
	addr   Addr
	stream <-chan Chunk
	params []byte
	ack    chan error
}

// inboxCapacity bounds how many unprocessed inbound messages a Transport
// will buffer before SendRecords/SendReceiveQuery/SendPrepareQuery block.
const inboxCapacity = 16

// Transport is one helper's inbound/outbound message actor. Its dispatch
// loop (Run, on whichever goroutine calls it) is the only code that invokes
// Callbacks or registers inbound streams in its StreamCollection; consumers
// calling ReceiveRecords claim streams from that collection on their own
// goroutines, under the collection's mutex. Cross-helper
// interaction happens by exchanging inboundMsg values over channels, never
// by calling another Transport's methods directly from a foreign goroutine.
type Transport struct {
	self  party.Helper
	inbox chan inboundMsg
	peers map[party.Helper]chan inboundMsg

	streams *StreamCollection
	cb      Callbacks

	issued map[QueryID]bool
}

// New creates a Transport for self. Callbacks may be the zero value if this
// helper never needs to answer control messages (e.g. a stream-only test
// harness).
func New(self party.Helper, cb Callbacks) *Transport {
	return &Transport{
		self:    self,
		inbox:   make(chan inboundMsg, inboxCapacity),
		peers:   make(map[party.Helper]chan inboundMsg),
		streams: NewStreamCollection(),
		cb:      cb,
		issued:  make(map[QueryID]bool),
	}
}

// Connect wires t and other's inboxes together in both directions,
// establishing the fixed connection topology a query run assumes is
// already in place.
func (t *Transport) Connect(other *Transport) {
	t.peers[other.self] = other.inbox
	other.peers[t.self] = t.inbox
}

// Self returns the helper identity this transport answers to.
func (t *Transport) Self() party.Helper { return t.self }

// Run drains the inbox on the calling goroutine until ctx is cancelled or
// the inbox is closed. Exactly one goroutine should ever call Run for a
// given Transport. The returned error is ctx's error once the loop exits via
// cancellation, or nil if the inbox was closed, so callers can drive a
// fleet of Transports with errgroup.Group.
func (t *Transport) Run(ctx context.Context) error {
	for {
		select {
		case msg, ok := <-t.inbox:
			if !ok {
				return nil
			}
			t.handle(msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *Transport) handle(msg inboundMsg) {
	switch msg.addr.Route {
	case RouteReceiveQuery:
		var cfg QueryConfig
		if err := json.Unmarshal(msg.params, &cfg); err != nil {
			msg.ack <- fmt.Errorf("transport: malformed ReceiveQuery payload: %w", err)
			return
		}
		if t.issued[cfg.QueryID] {
			panic(fmt.Sprintf("transport: query id %s issued twice", cfg.QueryID))
		}
		var err error
		if t.cb.ReceiveQuery != nil {
			err = t.cb.ReceiveQuery(cfg)
		}
		if err == nil {
			t.issued[cfg.QueryID] = true
		}
		msg.ack <- err

	case RoutePrepareQuery:
		var cfg PrepareQueryConfig
		if err := json.Unmarshal(msg.params, &cfg); err != nil {
			msg.ack <- fmt.Errorf("transport: malformed PrepareQuery payload: %w", err)
			return
		}
		var err error
		if t.cb.PrepareQuery != nil {
			err = t.cb.PrepareQuery(cfg)
		}
		msg.ack <- err

	case RouteRecords:
		key := StreamKey{Query: msg.addr.Query, Origin: msg.addr.Origin, Step: msg.addr.Step}
		t.streams.AddStream(key, msg.stream)
		msg.ack <- nil

	default:
		panic(fmt.Sprintf("transport: unknown route %v", msg.addr.Route))
	}
}

// SendReceiveQuery asks dest to admit a new query.
func (t *Transport) SendReceiveQuery(ctx context.Context, dest party.Helper, cfg QueryConfig) error {
	params, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("transport: failed to encode ReceiveQuery payload: %w", err)
	}
	return t.sendControl(ctx, dest, Addr{Route: RouteReceiveQuery, Query: cfg.QueryID}, params)
}

// SendPrepareQuery asks dest to reserve resources for a query already
// accepted elsewhere.
func (t *Transport) SendPrepareQuery(ctx context.Context, dest party.Helper, cfg PrepareQueryConfig) error {
	params, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("transport: failed to encode PrepareQuery payload: %w", err)
	}
	return t.sendControl(ctx, dest, Addr{Route: RoutePrepareQuery, Query: cfg.QueryID}, params)
}

func (t *Transport) sendControl(ctx context.Context, dest party.Helper, addr Addr, params []byte) error {
	return t.send(ctx, dest, inboundMsg{addr: addr, params: params})
}

// SendRecords registers stream as the Records payload for key at dest. The
// destination's matching ReceiveRecords handle (if already waiting) is
// woken as soon as the destination's dispatch loop processes the message.
func (t *Transport) SendRecords(ctx context.Context, dest party.Helper, key StreamKey, stream <-chan Chunk) error {
	addr := Addr{Route: RouteRecords, Query: key.Query, Origin: t.self, Step: key.Step}
	return t.send(ctx, dest, inboundMsg{addr: addr, stream: encodeFrames(stream)})
}

// ReceiveRecords blocks until the Records stream addressed at key arrives
// from a SendRecords call, decoding its CBOR frames back into the original
// chunk boundaries and ordering.
func (t *Transport) ReceiveRecords(ctx context.Context, key StreamKey) (<-chan Chunk, error) {
	raw, err := t.streams.NewReceiveRecords(key).Receive(ctx)
	if err != nil {
		return nil, err
	}
	return decodeFrames(raw), nil
}

func (t *Transport) send(ctx context.Context, dest party.Helper, msg inboundMsg) error {
	ch, ok := t.peers[dest]
	if !ok {
		panic(fmt.Sprintf("transport: %s has no connection to %s", t.self, dest))
	}

	ack := make(chan error, 1)
	msg.ack = ack

	select {
	case ch <- msg:
	case <-ctx.Done():
		return ErrConnectionAborted
	}

	select {
	case err, ok := <-ack:
		if !ok {
			return &ErrRejected{Dest: dest, Reason: "acknowledgement channel closed"}
		}
		return err
	case <-ctx.Done():
		return ErrConnectionAborted
	}
}
