package transport

import (
	"errors"
	"fmt"

	"github.com/luxfi/ipa-helper/pkg/party"
)

// ErrConnectionAborted is returned when the sender's context is done before
// the destination's inbox accepted the message or before the destination
// acknowledged it. A destination whose dispatch loop has stopped is not
// detected as such; the send waits until its context is done.
var ErrConnectionAborted = errors.New("transport: connection aborted before delivery")

// ErrRejected is returned when a destination received a message but closed
// its acknowledgement channel without answering, signalling it declined to
// process the message.
type ErrRejected struct {
	Dest   party.Helper
	Reason string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("transport: %s rejected message: %s", e.Dest, e.Reason)
}
