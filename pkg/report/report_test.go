package report_test

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ipa-helper/pkg/field"
	"github.com/luxfi/ipa-helper/pkg/report"
)

func randomDomain(t *testing.T, n int) string {
	t.Helper()
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		require.NoError(t, err)
		out[i] = alphabet[idx.Int64()]
	}
	return string(out)
}

func sampleReport(t *testing.T) report.Report {
	t.Helper()
	mod := field.Fp32BitPrime
	return report.Report{
		Timestamp:    1234,
		BreakdownKey: 7,
		TriggerValue: field.NewReplicated(mod.TruncateFrom(99), mod.TruncateFrom(42)),
		MatchKeyShare: field.NewReplicated(
			mod.TruncateFrom(111_222_333),
			mod.TruncateFrom(444_555_666),
		),
		EventType:  report.EventTypeTrigger,
		KeyID:      0,
		Epoch:      5,
		SiteDomain: randomDomain(t, 10),
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	reg, err := report.NewKeyRegistry(1, rand.Reader)
	require.NoError(t, err)

	r := sampleReport(t)
	enc, err := report.EncryptReport(r, 0, reg, rand.Reader)
	require.NoError(t, err)

	parsed, err := report.ParseEncryptedReport(enc)
	require.NoError(t, err)

	dec, err := parsed.Decrypt(reg)
	require.NoError(t, err)

	assert.Equal(t, r.Timestamp, dec.Timestamp)
	assert.Equal(t, r.BreakdownKey, dec.BreakdownKey)
	assert.True(t, r.TriggerValue.Left.Equal(dec.TriggerValue.Left))
	assert.True(t, r.TriggerValue.Right.Equal(dec.TriggerValue.Right))
	assert.True(t, r.MatchKeyShare.Left.Equal(dec.MatchKeyShare.Left))
	assert.True(t, r.MatchKeyShare.Right.Equal(dec.MatchKeyShare.Right))
	assert.Equal(t, r.EventType, dec.EventType)
	assert.Equal(t, r.KeyID, dec.KeyID)
	assert.Equal(t, r.Epoch, dec.Epoch)
	assert.Equal(t, r.SiteDomain, dec.SiteDomain)
}

// TestDeterministicSeedRoundTrip replays the named deterministic-seed
// scenario: a registry of one key derived from the all-ones 32-byte seed,
// key-id 0, a trigger event, and a random domain. Decrypting what was just
// encrypted must reproduce the original report, and deriving the registry
// from the same seed twice must yield the same keypair.
func TestDeterministicSeedRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{1}, 32)

	reg, err := report.NewKeyRegistry(1, bytes.NewReader(seed))
	require.NoError(t, err)
	reg2, err := report.NewKeyRegistry(1, bytes.NewReader(seed))
	require.NoError(t, err)
	pub1, err := reg.PublicKey(0)
	require.NoError(t, err)
	pub2, err := reg2.PublicKey(0)
	require.NoError(t, err)
	pub1Bytes, err := pub1.MarshalBinary()
	require.NoError(t, err)
	pub2Bytes, err := pub2.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, pub1Bytes, pub2Bytes)

	r := sampleReport(t)
	r.KeyID = 0
	enc, err := report.EncryptReport(r, 0, reg, rand.Reader)
	require.NoError(t, err)

	parsed, err := report.ParseEncryptedReport(enc)
	require.NoError(t, err)
	dec, err := parsed.Decrypt(reg)
	require.NoError(t, err)

	assert.Equal(t, r.Timestamp, dec.Timestamp)
	assert.Equal(t, r.BreakdownKey, dec.BreakdownKey)
	assert.True(t, r.TriggerValue.Left.Equal(dec.TriggerValue.Left))
	assert.True(t, r.TriggerValue.Right.Equal(dec.TriggerValue.Right))
	assert.True(t, r.MatchKeyShare.Left.Equal(dec.MatchKeyShare.Left))
	assert.True(t, r.MatchKeyShare.Right.Equal(dec.MatchKeyShare.Right))
	assert.Equal(t, r.EventType, dec.EventType)
	assert.Equal(t, r.SiteDomain, dec.SiteDomain)
}

func TestEncryptRejectsNonASCIIDomain(t *testing.T) {
	reg, err := report.NewKeyRegistry(1, rand.Reader)
	require.NoError(t, err)

	r := sampleReport(t)
	r.SiteDomain = "exämple.com"
	_, err = report.EncryptReport(r, 0, reg, rand.Reader)
	assert.ErrorIs(t, err, report.ErrNonASCIIString)
}

func TestEncryptRejectsBadEventType(t *testing.T) {
	reg, err := report.NewKeyRegistry(1, rand.Reader)
	require.NoError(t, err)

	r := sampleReport(t)
	r.EventType = report.EventType(2)
	_, err = report.EncryptReport(r, 0, reg, rand.Reader)
	assert.ErrorIs(t, err, report.ErrBadEventType)
}

func TestParseRejectsBadEventType(t *testing.T) {
	reg, err := report.NewKeyRegistry(1, rand.Reader)
	require.NoError(t, err)

	r := sampleReport(t)
	enc, err := report.EncryptReport(r, 0, reg, rand.Reader)
	require.NoError(t, err)

	// Sanity: the unmodified report parses fine.
	_, err = report.ParseEncryptedReport(enc)
	require.NoError(t, err)

	bad := make([]byte, len(enc))
	copy(bad, enc)
	// Binary search-free approach: corrupt byte right before site domain
	// starts, which ParseEncryptedReport identifies as the event-type byte
	// region; we locate it by shrinking from the back past the domain.
	domainStart := len(enc) - len(r.SiteDomain)
	eventTypeByteIdx := domainStart - 4 // event_type, key_id, epoch(2) precede domain
	bad[eventTypeByteIdx] = 0xFF

	_, err = report.ParseEncryptedReport(bad)
	assert.ErrorIs(t, err, report.ErrBadEventType)
}

func TestParseRejectsNonASCIIDomain(t *testing.T) {
	reg, err := report.NewKeyRegistry(1, rand.Reader)
	require.NoError(t, err)

	r := sampleReport(t)
	enc, err := report.EncryptReport(r, 0, reg, rand.Reader)
	require.NoError(t, err)

	bad := make([]byte, len(enc))
	copy(bad, enc)
	domainStart := len(enc) - len(r.SiteDomain)
	bad[domainStart] = 0xFF

	_, err = report.ParseEncryptedReport(bad)
	assert.ErrorIs(t, err, report.ErrNonASCIIString)
}

func TestParseRejectsTruncatedReport(t *testing.T) {
	_, err := report.ParseEncryptedReport([]byte{1, 2, 3})
	assert.ErrorIs(t, err, report.ErrTruncatedReport)
}
