package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/ipa-helper/pkg/party"
)

// StepPath identifies a protocol sub-computation, e.g. "ipa/match_key_shuffle".
type StepPath string

// QueryID globally identifies one end-to-end attribution job.
type QueryID string

// StreamKey is the globally unique channel identifier a Records stream is
// addressed by: (query_id, origin_helper, step_path). Each key admits at
// most one stream in its lifetime.
type StreamKey struct {
	Query  QueryID
	Origin party.Helper
	Step   StepPath
}

func (k StreamKey) String() string {
	return fmt.Sprintf("StreamKey{query=%s, origin=%s, step=%s}", k.Query, k.Origin, k.Step)
}

// Chunk is a single piece of an addressed byte stream.
type Chunk []byte

type recordsStreamState int

const (
	stateWaiting recordsStreamState = iota
	stateReady
	stateCompleted
)

func (s recordsStreamState) String() string {
	switch s {
	case stateWaiting:
		return "Waiting"
	case stateReady:
		return "Ready"
	case stateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

type cell struct {
	state  recordsStreamState
	waker  chan struct{}
	stream <-chan Chunk
}

// StreamCollection is the thread-safe map of in-flight/consumed Records
// streams a Transport owns, keyed by StreamKey. It implements a
// Waiting/Ready/Completed state machine: duplicate producers and double
// consumption are programmer-visible protocol bugs, not recoverable errors.
//
// The mutex is held only across map mutation; wakers are closed and panics
// raised after release, so a panicking goroutine never poisons the lock for
// the rest of the collection.
type StreamCollection struct {
	mu    sync.Mutex
	cells map[StreamKey]*cell
}

// NewStreamCollection creates an empty collection.
func NewStreamCollection() *StreamCollection {
	return &StreamCollection{cells: make(map[StreamKey]*cell)}
}

// AddStream registers a producer-supplied stream for key. If a consumer is
// already waiting, it is woken. Registering a second producer for the same
// key, or registering after the stream has already been consumed, panics.
func (c *StreamCollection) AddStream(key StreamKey, s <-chan Chunk) {
	c.mu.Lock()
	cl, ok := c.cells[key]
	if !ok {
		c.cells[key] = &cell{state: stateReady, stream: s}
		c.mu.Unlock()
		return
	}

	switch cl.state {
	case stateWaiting:
		waker := cl.waker
		cl.state = stateReady
		cl.stream = s
		cl.waker = nil
		c.mu.Unlock()
		close(waker)
	case stateReady, stateCompleted:
		state := cl.state
		c.mu.Unlock()
		panic(fmt.Sprintf("%v: entry state expected to be waiting, got %s", key, state))
	}
}

// addWaker is the non-blocking half of the consumer protocol: if a stream is
// already Ready, it atomically transitions the entry to Completed and
// returns it. Otherwise it registers waker (or asserts a re-poll is using
// the same waker) and returns ok=false. Consuming an already-Completed entry
// panics.
func (c *StreamCollection) addWaker(key StreamKey, waker chan struct{}) (stream <-chan Chunk, ok bool) {
	c.mu.Lock()
	cl, exists := c.cells[key]
	if !exists {
		c.cells[key] = &cell{state: stateWaiting, waker: waker}
		c.mu.Unlock()
		return nil, false
	}

	switch cl.state {
	case stateWaiting:
		if cl.waker != waker {
			c.mu.Unlock()
			panic(fmt.Sprintf("%v: stream already has a waiting consumer", key))
		}
		c.mu.Unlock()
		return nil, false
	case stateReady:
		s := cl.stream
		cl.state = stateCompleted
		cl.stream = nil
		c.mu.Unlock()
		return s, true
	case stateCompleted:
		c.mu.Unlock()
		panic(fmt.Sprintf("%v: stream has been consumed already", key))
	}
	panic("unreachable")
}

// ReceiveRecords is the consumer-side handle for a single StreamKey. It acts
// as a one-shot proxy: the first successful Receive transitions the
// underlying entry to Completed; any subsequent Receive on the same handle
// (or a fresh handle for the same key) panics.
type ReceiveRecords struct {
	key  StreamKey
	coll *StreamCollection
}

// NewReceiveRecords builds a consumer handle for key against coll.
func (c *StreamCollection) NewReceiveRecords(key StreamKey) *ReceiveRecords {
	return &ReceiveRecords{key: key, coll: c}
}

// Receive blocks until a producer has registered a stream for this handle's
// key, then returns it. If ctx is cancelled first, ctx.Err() is returned and
// the registered waker is left in place. A later producer arrival will
// still flip the entry to Ready and close the waker, which is a harmless
// no-op once nothing is listening on it.
func (r *ReceiveRecords) Receive(ctx context.Context) (<-chan Chunk, error) {
	waker := make(chan struct{})
	if s, ok := r.coll.addWaker(r.key, waker); ok {
		return s, nil
	}

	select {
	case <-waker:
		s, ok := r.coll.addWaker(r.key, waker)
		if !ok {
			panic(fmt.Sprintf("%v: woke without a ready stream", r.key))
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
