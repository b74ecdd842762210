// Package test provides shared fixtures for exercising the full
// PRSS/ZKP/report/transport stack across three simulated helpers without
// any real networking.
package test

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/ipa-helper/internal/transport"
	"github.com/luxfi/ipa-helper/pkg/party"
)

// ThreeHelperNetwork wires three Transport actors into the fixed IPA ring
// and drives their dispatch loops for the lifetime of the network.
type ThreeHelperNetwork struct {
	Transports map[party.Helper]*transport.Transport

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewThreeHelperNetwork builds and connects one Transport per helper in
// party.All(), using cb(helper) to obtain that helper's Callbacks. It
// starts each Transport's dispatch loop immediately; call Close to stop
// them.
func NewThreeHelperNetwork(cb func(party.Helper) transport.Callbacks) *ThreeHelperNetwork {
	helpers := party.All()
	ts := make(map[party.Helper]*transport.Transport, len(helpers))
	for _, h := range helpers {
		ts[h] = transport.New(h, cb(h))
	}

	ts[party.ONE].Connect(ts[party.TWO])
	ts[party.TWO].Connect(ts[party.THREE])
	ts[party.THREE].Connect(ts[party.ONE])

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	net := &ThreeHelperNetwork{Transports: ts, cancel: cancel, group: group}
	for _, h := range helpers {
		tr := ts[h]
		group.Go(func() error {
			return tr.Run(groupCtx)
		})
	}
	return net
}

// Close stops every Transport's dispatch loop and waits for them to exit.
// The context-cancellation error each Run returns is expected and swallowed;
// only an unexpected error would propagate from errgroup.Wait.
func (n *ThreeHelperNetwork) Close() {
	n.cancel()
	if err := n.group.Wait(); err != nil && err != context.Canceled {
		panic(err)
	}
}
