// Package report implements the bit-exact wire format and HPKE
// encryption/decryption of match-key reports submitted by report
// collectors.
package report

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/ipa-helper/pkg/field"
)

// helperOrigin is the fixed domain-separation prefix folded into every
// report's HPKE info string.
const helperOrigin = "github.com/private-attribution"

// KeyIdentifier selects which entry of a KeyRegistry a report was encrypted
// under.
type KeyIdentifier = uint8

// Epoch disambiguates which key-rotation epoch a report belongs to.
type Epoch = uint16

// EventType distinguishes source (impression) events from trigger
// (conversion) events.
type EventType uint8

const (
	// EventTypeSource marks an impression-side event (wire value 0).
	EventTypeSource EventType = 0
	// EventTypeTrigger marks a conversion-side event (wire value 1).
	EventTypeTrigger EventType = 1
)

func (e EventType) valid() bool { return e == EventTypeSource || e == EventTypeTrigger }

// Errors returned by report parsing and (de)cryption. Each condition is a
// distinct sentinel value, wrapped with context where returned, so callers
// can tell them apart with errors.Is.
var (
	ErrBadEventType    = errors.New("report: illegal event type, only 0 and 1 are accepted")
	ErrNonASCIIString  = errors.New("report: site_domain contains non-ASCII bytes")
	ErrCrypt           = errors.New("report: HPKE encryption/decryption failure")
	ErrTruncatedReport = errors.New("report: truncated report bytes")
)

// matchKeyPlaintext is the fixed-size structure encrypted under HPKE. The
// match-key share is modeled as a replicated Fp32BitPrime element (8 bytes).
//
// Left/Right are carried as their fixed-width little-endian field
// serializations (not as CBOR integers) so the overall CBOR encoding has a
// size that depends only on the field's byte length, never on the value.
// A CBOR integer's header width varies with magnitude, which would silently
// break the outer report's fixed offsets.
type matchKeyPlaintext struct {
	Left  []byte `cbor:"1,keyasint"`
	Right []byte `cbor:"2,keyasint"`
}

// Report is a single attribution event in plaintext form.
type Report struct {
	Timestamp     uint32
	BreakdownKey  uint8 // an 8-bit field element, carried as a raw byte
	TriggerValue  field.Replicated
	MatchKeyShare field.Replicated // plaintext match-key share, sealed under HPKE on the wire
	EventType     EventType
	KeyID         KeyIdentifier
	Epoch         Epoch
	SiteDomain    string
}

// buildInfo constructs the HPKE info string: domain-separation token,
// key id, little-endian epoch, event type, then the site domain, in that
// exact order.
func buildInfo(keyID KeyIdentifier, epoch Epoch, eventType EventType, siteDomain string) []byte {
	info := make([]byte, 0, len(helperOrigin)+1+2+1+len(siteDomain))
	info = append(info, []byte(helperOrigin)...)
	info = append(info, keyID)
	var epochBuf [2]byte
	binary.LittleEndian.PutUint16(epochBuf[:], epoch)
	info = append(info, epochBuf[:]...)
	info = append(info, byte(eventType))
	info = append(info, []byte(siteDomain)...)
	return info
}

// EncryptReport encrypts r's match-key share under key_id in reg and
// produces the report's exact on-wire byte layout.
func EncryptReport(r Report, keyID KeyIdentifier, reg *KeyRegistry, rnd io.Reader) ([]byte, error) {
	if !r.EventType.valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadEventType, r.EventType)
	}
	if !isASCII(r.SiteDomain) {
		return nil, fmt.Errorf("%w: %q", ErrNonASCIIString, r.SiteDomain)
	}

	plaintext, err := cbor.Marshal(matchKeyPlaintext{
		Left:  r.MatchKeyShare.Left.Serialize(),
		Right: r.MatchKeyShare.Right.Serialize(),
	})
	if err != nil {
		return nil, fmt.Errorf("report: failed to encode match-key plaintext: %w", err)
	}

	info := buildInfo(keyID, r.Epoch, r.EventType, r.SiteDomain)

	pub, err := reg.PublicKey(keyID)
	if err != nil {
		return nil, err
	}

	sender, err := Suite.NewSender(pub, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypt, err)
	}
	encapKey, sealer, err := sender.Setup(rnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypt, err)
	}
	ciphertext, err := sealer.Seal(plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypt, err)
	}

	out := make([]byte, 0, 13+len(encapKey)+len(ciphertext)+4+len(r.SiteDomain))
	var tsBuf [4]byte
	binary.LittleEndian.PutUint32(tsBuf[:], r.Timestamp)
	out = append(out, tsBuf[:]...)
	out = append(out, r.BreakdownKey)
	out = append(out, r.TriggerValue.Serialize()...)
	out = append(out, encapKey...)
	out = append(out, ciphertext...)
	out = append(out, byte(r.EventType))
	out = append(out, keyID)
	var epochBuf [2]byte
	binary.LittleEndian.PutUint16(epochBuf[:], r.Epoch)
	out = append(out, epochBuf[:]...)
	out = append(out, []byte(r.SiteDomain)...)

	return out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}
