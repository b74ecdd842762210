// Command ipa-helper-cli is a demo and inspection harness for the IPA
// helper core: PRSS handshakes, report encryption, ZKP verification, and
// the in-memory transport, each runnable in isolation without a real
// three-party deployment.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/ipa-helper/internal/test"
	"github.com/luxfi/ipa-helper/internal/transport"
	"github.com/luxfi/ipa-helper/pkg/field"
	"github.com/luxfi/ipa-helper/pkg/party"
	"github.com/luxfi/ipa-helper/pkg/prss"
	"github.com/luxfi/ipa-helper/pkg/report"
	"github.com/luxfi/ipa-helper/pkg/zkp"
)

var (
	stepLabel  string
	siteDomain string
	keyID      uint8
	epoch      uint16

	rootCmd = &cobra.Command{
		Use:   "ipa-helper-cli",
		Short: "Inspection and demo tool for the IPA helper core",
		Long: `A CLI for exercising the PRSS generator, report codec, ZKP verifier
and in-memory transport without standing up a real three-party deployment.`,
	}

	keygenDemoCmd = &cobra.Command{
		Use:   "keygen-demo",
		Short: "Run a three-helper PRSS handshake and print the resulting generators",
		RunE:  runKeygenDemo,
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Encrypt and then decrypt a sample match-key report",
		RunE:  runReport,
	}

	zkpVerifyCmd = &cobra.Command{
		Use:   "zkp-verify",
		Short: "Run a worked sumcheck example, round by round",
		RunE:  runZKPVerify,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Wire up three in-process Transport actors and round-trip a Records stream",
		RunE:  runServe,
	}
)

func init() {
	keygenDemoCmd.Flags().StringVar(&stepLabel, "step", "ipa/match_key_shuffle", "PRSS context label")

	reportCmd.Flags().StringVar(&siteDomain, "site-domain", "example.com", "report site_domain field")
	reportCmd.Flags().Uint8Var(&keyID, "key-id", 0, "HPKE key identifier to encrypt under")
	reportCmd.Flags().Uint16Var(&epoch, "epoch", 1, "report epoch")

	rootCmd.AddCommand(keygenDemoCmd, reportCmd, zkpVerifyCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runKeygenDemo(cmd *cobra.Command, args []string) error {
	ring, err := test.NewPRSSRing([]byte(stepLabel))
	if err != nil {
		return fmt.Errorf("keygen-demo: %w", err)
	}

	idx := prss.IndexFromUint64(0)
	for _, h := range party.All() {
		sr := ring[h]
		left := sr.Left.Generate(idx)
		right := sr.Right.Generate(idx)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: left=%s right=%s\n", h, hex.EncodeToString(left[:]), hex.EncodeToString(right[:]))
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	reg, err := report.NewKeyRegistry(1, rand.Reader)
	if err != nil {
		return fmt.Errorf("report: failed to build key registry: %w", err)
	}

	mod := field.Fp32BitPrime
	r := report.Report{
		Timestamp:    1_700_000_000,
		BreakdownKey: 3,
		TriggerValue: field.NewReplicated(mod.TruncateFrom(42), mod.TruncateFrom(58)),
		MatchKeyShare: field.NewReplicated(
			mod.TruncateFrom(111_222_333),
			mod.TruncateFrom(444_555_666),
		),
		EventType:  report.EventTypeTrigger,
		KeyID:      keyID,
		Epoch:      epoch,
		SiteDomain: siteDomain,
	}

	enc, err := report.EncryptReport(r, keyID, reg, rand.Reader)
	if err != nil {
		return fmt.Errorf("report: encrypt failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "encrypted report (%d bytes): %s\n", len(enc), hex.EncodeToString(enc))

	parsed, err := report.ParseEncryptedReport(enc)
	if err != nil {
		return fmt.Errorf("report: parse failed: %w", err)
	}
	dec, err := parsed.Decrypt(reg)
	if err != nil {
		return fmt.Errorf("report: decrypt failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "decrypted: timestamp=%d breakdown_key=%d event_type=%d site_domain=%s\n",
		dec.Timestamp, dec.BreakdownKey, dec.EventType, dec.SiteDomain)
	return nil
}

func runZKPVerify(cmd *cobra.Command, args []string) error {
	mod := field.Fp31
	fp := func(vs ...uint64) []field.Element {
		out := make([]field.Element, len(vs))
		for i, v := range vs {
			out[i] = mod.TruncateFrom(v)
		}
		return out
	}
	out := cmd.OutOrStdout()

	out1 := mod.TruncateFrom(27)
	zkp1 := fp(0, 0, 13, 17, 11, 25, 7)
	r1 := mod.TruncateFrom(22)
	out2, zero1 := zkp.VerifyProof(mod, 4, out1, zkp1, r1)
	fmt.Fprintf(out, "round 1: out_share=%s zero_share=%s\n", out2, zero1)

	zkp2 := fp(11, 25, 17, 9, 22, 23, 3)
	r2 := mod.TruncateFrom(17)
	out3, zero2 := zkp.VerifyProof(mod, 4, out2, zkp2, r2)
	fmt.Fprintf(out, "round 2: out_share=%s zero_share=%s\n", out3, zero2)

	zkpFinal := fp(21, 1, 6, 25, 1)
	rFinal := mod.TruncateFrom(30)
	outFinal, zeroFinal := zkp.VerifyProof(mod, 3, out3, zkpFinal, rFinal)
	fmt.Fprintf(out, "final round: out_share=%s zero_share=%s\n", outFinal, zeroFinal)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	net := test.NewThreeHelperNetwork(func(h party.Helper) transport.Callbacks {
		return transport.Callbacks{
			ReceiveQuery: func(cfg transport.QueryConfig) error {
				fmt.Fprintf(out, "%s admitted query %s (size=%d)\n", h, cfg.QueryID, cfg.Size)
				return nil
			},
		}
	})
	defer net.Close()

	ctx := context.Background()

	cfg := transport.QueryConfig{QueryID: "demo-query", Size: 16}
	if err := net.Transports[party.ONE].SendReceiveQuery(ctx, party.TWO, cfg); err != nil {
		return fmt.Errorf("serve: ReceiveQuery failed: %w", err)
	}
	if err := net.Transports[party.ONE].SendReceiveQuery(ctx, party.THREE, cfg); err != nil {
		return fmt.Errorf("serve: ReceiveQuery failed: %w", err)
	}

	key := transport.StreamKey{Query: cfg.QueryID, Origin: party.ONE, Step: "ipa/demo_step"}
	src := make(chan transport.Chunk, 2)
	src <- transport.Chunk("hello")
	src <- transport.Chunk("world")
	close(src)

	if err := net.Transports[party.ONE].SendRecords(ctx, party.TWO, key, src); err != nil {
		return fmt.Errorf("serve: SendRecords failed: %w", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	stream, err := net.Transports[party.TWO].ReceiveRecords(recvCtx, key)
	if err != nil {
		return fmt.Errorf("serve: ReceiveRecords failed: %w", err)
	}
	for c := range stream {
		fmt.Fprintf(out, "TWO received chunk: %s\n", string(c))
	}
	return nil
}
