package transport

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// frame is the wire representation of one Records chunk: a sequence number
// plus the opaque payload bytes. Framing chunks through CBOR (rather than
// passing raw byte slices) gives this in-memory transport the same
// encode/decode boundary a real network transport would need, so swapping
// the channel plumbing for an actual socket later changes nothing about how
// chunks are produced or consumed.
type frame struct {
	Seq  uint64 `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint"`
}

// encodeFrames wraps src, re-emitting each chunk as a CBOR-encoded frame on
// the returned channel. The returned channel closes once src is drained and
// closed.
func encodeFrames(src <-chan Chunk) <-chan Chunk {
	out := make(chan Chunk, cap(src))
	go func() {
		defer close(out)
		var seq uint64
		for c := range src {
			b, err := cbor.Marshal(frame{Seq: seq, Data: []byte(c)})
			if err != nil {
				panic(fmt.Sprintf("transport: failed to encode records frame %d: %v", seq, err))
			}
			out <- Chunk(b)
			seq++
		}
	}()
	return out
}

// decodeFrames is encodeFrames's inverse: it unwraps CBOR frames back into
// their original payload bytes, in order.
func decodeFrames(src <-chan Chunk) <-chan Chunk {
	out := make(chan Chunk, cap(src))
	go func() {
		defer close(out)
		for c := range src {
			var f frame
			if err := cbor.Unmarshal(c, &f); err != nil {
				panic(fmt.Sprintf("transport: failed to decode records frame: %v", err))
			}
			out <- Chunk(f.Data)
		}
	}()
	return out
}
