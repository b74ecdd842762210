package report

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/ipa-helper/pkg/field"
)

// plaintextLen is the fixed CBOR-encoded size of matchKeyPlaintext for this
// codec's Fp32BitPrime-replicated match key.
var plaintextLen = func() int {
	n := field.Fp32BitPrime.ByteLen()
	b, err := cbor.Marshal(matchKeyPlaintext{Left: make([]byte, n), Right: make([]byte, n)})
	if err != nil {
		panic(fmt.Sprintf("report: failed to size match-key plaintext encoding: %v", err))
	}
	return len(b)
}()

// encapKeyLen is the X25519-HKDF-SHA256 KEM's encapsulated-key size.
const encapKeyLen = 32

// aeadTagLen is ChaCha20-Poly1305's authentication tag size.
const aeadTagLen = 16

// EncryptedReport is a parsed, still-encrypted report: its header fields
// have been validated (event type, ASCII site domain) but the match-key
// ciphertext has not yet been opened.
type EncryptedReport struct {
	data []byte

	ciphertextOffset int
	eventTypeOffset  int
	siteDomainOffset int
}

// ParseEncryptedReport validates and wraps a raw report byte slice.
// BadEventType and NonAsciiString are validated here, at construction, and
// never re-checked at decrypt time: bypassing the constructor and calling
// Decrypt directly is undefined behavior, not a recoverable error path.
func ParseEncryptedReport(data []byte) (*EncryptedReport, error) {
	ciphertextLen := plaintextLen + aeadTagLen
	ciphertextOffset := 13 + encapKeyLen
	eventTypeOffset := ciphertextOffset + ciphertextLen
	siteDomainOffset := eventTypeOffset + 4

	if len(data) < siteDomainOffset {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrTruncatedReport, siteDomainOffset, len(data))
	}

	eventType := EventType(data[eventTypeOffset])
	if !eventType.valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadEventType, eventType)
	}

	siteDomain := data[siteDomainOffset:]
	if !isASCII(string(siteDomain)) {
		return nil, fmt.Errorf("%w: %q", ErrNonASCIIString, siteDomain)
	}

	return &EncryptedReport{
		data:             data,
		ciphertextOffset: ciphertextOffset,
		eventTypeOffset:  eventTypeOffset,
		siteDomainOffset: siteDomainOffset,
	}, nil
}

func (e *EncryptedReport) timestamp() uint32 {
	return binary.LittleEndian.Uint32(e.data[0:4])
}

func (e *EncryptedReport) breakdownKey() uint8 { return e.data[4] }

func (e *EncryptedReport) triggerValue() (field.Replicated, error) {
	return field.DeserializeReplicated(field.Fp32BitPrime, e.data[5:13])
}

func (e *EncryptedReport) encapKey() []byte {
	return e.data[13:e.ciphertextOffset]
}

func (e *EncryptedReport) matchKeyCiphertext() []byte {
	return e.data[e.ciphertextOffset:e.eventTypeOffset]
}

// EventType returns the already-validated event type.
func (e *EncryptedReport) EventType() EventType { return EventType(e.data[e.eventTypeOffset]) }

// KeyID returns the HPKE key identifier this report was sealed under.
func (e *EncryptedReport) KeyID() KeyIdentifier { return e.data[e.eventTypeOffset+1] }

func (e *EncryptedReport) epoch() Epoch {
	return binary.LittleEndian.Uint16(e.data[e.eventTypeOffset+2 : e.siteDomainOffset])
}

// SiteDomain returns the already-ASCII-validated site domain.
func (e *EncryptedReport) SiteDomain() string {
	return string(e.data[e.siteDomainOffset:])
}

// Decrypt opens the match-key ciphertext using the matching private key in
// reg and reconstructs the full plaintext Report.
func (e *EncryptedReport) Decrypt(reg *KeyRegistry) (*Report, error) {
	keyID := e.KeyID()
	epoch := e.epoch()
	eventType := e.EventType()
	siteDomain := e.SiteDomain()

	info := buildInfo(keyID, epoch, eventType, siteDomain)

	priv, err := reg.PrivateKey(keyID)
	if err != nil {
		return nil, err
	}

	receiver, err := Suite.NewReceiver(priv, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypt, err)
	}
	opener, err := receiver.Setup(e.encapKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypt, err)
	}
	plaintext, err := opener.Open(e.matchKeyCiphertext(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypt, err)
	}

	var mk matchKeyPlaintext
	if err := cbor.Unmarshal(plaintext, &mk); err != nil {
		return nil, fmt.Errorf("report: failed to decode match-key plaintext: %w", err)
	}
	left, err := field.Fp32BitPrime.Deserialize(mk.Left)
	if err != nil {
		return nil, fmt.Errorf("report: bad match-key left share: %w", err)
	}
	right, err := field.Fp32BitPrime.Deserialize(mk.Right)
	if err != nil {
		return nil, fmt.Errorf("report: bad match-key right share: %w", err)
	}

	triggerValue, err := e.triggerValue()
	if err != nil {
		return nil, fmt.Errorf("report: bad trigger value: %w", err)
	}

	return &Report{
		Timestamp:     e.timestamp(),
		BreakdownKey:  e.breakdownKey(),
		TriggerValue:  triggerValue,
		MatchKeyShare: field.NewReplicated(left, right),
		EventType:     eventType,
		KeyID:         keyID,
		Epoch:         epoch,
		SiteDomain:    siteDomain,
	}, nil
}
