package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ipa-helper/internal/transport"
	"github.com/luxfi/ipa-helper/pkg/party"
)

func testKey() transport.StreamKey {
	return transport.StreamKey{Query: "q1", Origin: party.ONE, Step: "ipa/shuffle"}
}

func TestStreamCollectionProducerFirst(t *testing.T) {
	coll := transport.NewStreamCollection()
	key := testKey()

	src := make(chan transport.Chunk, 1)
	src <- transport.Chunk("hello")
	close(src)
	coll.AddStream(key, src)

	recv := coll.NewReceiveRecords(key)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s, err := recv.Receive(ctx)
	require.NoError(t, err)
	chunk := <-s
	assert.Equal(t, transport.Chunk("hello"), chunk)
}

func TestStreamCollectionConsumerFirst(t *testing.T) {
	coll := transport.NewStreamCollection()
	key := testKey()

	recv := coll.NewReceiveRecords(key)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	var got <-chan transport.Chunk
	var recvErr error
	go func() {
		got, recvErr = recv.Receive(ctx)
		close(done)
	}()

	// Give the consumer goroutine a chance to register its waker before the
	// producer arrives.
	time.Sleep(10 * time.Millisecond)

	src := make(chan transport.Chunk, 1)
	src <- transport.Chunk("world")
	close(src)
	coll.AddStream(key, src)

	<-done
	require.NoError(t, recvErr)
	assert.Equal(t, transport.Chunk("world"), <-got)
}

func TestStreamCollectionDoubleConsumePanics(t *testing.T) {
	coll := transport.NewStreamCollection()
	key := testKey()

	src := make(chan transport.Chunk)
	close(src)
	coll.AddStream(key, src)

	recv := coll.NewReceiveRecords(key)
	ctx := context.Background()

	_, err := recv.Receive(ctx)
	require.NoError(t, err)

	assert.PanicsWithValue(t,
		key.String()+": stream has been consumed already",
		func() {
			_, _ = recv.Receive(ctx)
		},
	)
}

func TestStreamCollectionDuplicateProducerPanics(t *testing.T) {
	coll := transport.NewStreamCollection()
	key := testKey()

	src1 := make(chan transport.Chunk)
	close(src1)
	coll.AddStream(key, src1)

	src2 := make(chan transport.Chunk)
	close(src2)
	assert.Panics(t, func() {
		coll.AddStream(key, src2)
	})
}

func TestStreamCollectionReceiveCtxCancelled(t *testing.T) {
	coll := transport.NewStreamCollection()
	key := testKey()
	recv := coll.NewReceiveRecords(key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := recv.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
