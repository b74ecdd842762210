package integration_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	itest "github.com/luxfi/ipa-helper/internal/test"
	"github.com/luxfi/ipa-helper/internal/transport"
	"github.com/luxfi/ipa-helper/pkg/field"
	"github.com/luxfi/ipa-helper/pkg/party"
	"github.com/luxfi/ipa-helper/pkg/prss"
)

var _ = Describe("Transport Records delivery", func() {
	var net *itest.ThreeHelperNetwork

	BeforeEach(func() {
		net = itest.NewThreeHelperNetwork(func(party.Helper) transport.Callbacks {
			return transport.Callbacks{}
		})
	})

	AfterEach(func() {
		net.Close()
	})

	It("delivers chunks from ONE to TWO in order", func() {
		ctx := context.Background()
		key := transport.StreamKey{Query: "q-records", Origin: party.ONE, Step: "ipa/shuffle"}

		src := make(chan transport.Chunk, 3)
		src <- transport.Chunk("alpha")
		src <- transport.Chunk("beta")
		src <- transport.Chunk("gamma")
		close(src)

		Expect(net.Transports[party.ONE].SendRecords(ctx, party.TWO, key, src)).To(Succeed())

		recvCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		out, err := net.Transports[party.TWO].ReceiveRecords(recvCtx, key)
		Expect(err).NotTo(HaveOccurred())

		var got []transport.Chunk
		for c := range out {
			got = append(got, c)
		}
		Expect(got).To(Equal([]transport.Chunk{
			transport.Chunk("alpha"), transport.Chunk("beta"), transport.Chunk("gamma"),
		}))
	})

	It("panics if the same stream key is consumed twice", func() {
		ctx := context.Background()
		key := transport.StreamKey{Query: "q-double", Origin: party.THREE, Step: "ipa/shuffle"}

		src := make(chan transport.Chunk)
		close(src)
		Expect(net.Transports[party.THREE].SendRecords(ctx, party.ONE, key, src)).To(Succeed())

		recvCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_, err := net.Transports[party.ONE].ReceiveRecords(recvCtx, key)
		Expect(err).NotTo(HaveOccurred())

		Expect(func() {
			_, _ = net.Transports[party.ONE].ReceiveRecords(context.Background(), key)
		}).To(PanicWith(MatchRegexp("stream has been consumed already")))
	})
})

var _ = Describe("ReceiveQuery admission across the ring", func() {
	It("notifies every other helper exactly once", func() {
		var mu sync.Mutex
		admitted := map[party.Helper][]transport.QueryID{}

		net := itest.NewThreeHelperNetwork(func(h party.Helper) transport.Callbacks {
			return transport.Callbacks{
				ReceiveQuery: func(cfg transport.QueryConfig) error {
					mu.Lock()
					defer mu.Unlock()
					admitted[h] = append(admitted[h], cfg.QueryID)
					return nil
				},
			}
		})
		defer net.Close()

		ctx := context.Background()
		cfg := transport.QueryConfig{QueryID: "query-42", Size: 1000}
		Expect(net.Transports[party.ONE].SendReceiveQuery(ctx, party.TWO, cfg)).To(Succeed())
		Expect(net.Transports[party.ONE].SendReceiveQuery(ctx, party.THREE, cfg)).To(Succeed())

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(admitted[party.TWO]) + len(admitted[party.THREE])
		}).Should(Equal(2))
	})
})

var _ = Describe("PRSS zero sharing across the three-helper ring", func() {
	It("sums the three helpers' zero shares to zero", func() {
		ring, err := itest.NewPRSSRing([]byte("integration/zero-share"))
		Expect(err).NotTo(HaveOccurred())

		mod := field.Fp32BitPrime
		idx := prss.IndexFromUint64(7)

		shares := map[party.Helper]field.Element{}
		for _, h := range party.All() {
			shares[h] = ring[h].Zero(mod, idx)
		}

		sum := shares[party.ONE].Add(shares[party.TWO]).Add(shares[party.THREE])
		Expect(sum.IsZero()).To(BeTrue())
	})
})
