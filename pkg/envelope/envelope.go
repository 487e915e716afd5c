package envelope

import (
	"bytes"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

const (
	// PayloadHashSize is the size of the content hash embedded in every
	// envelope.
	PayloadHashSize = blake2b.Size256

	versionSize = 1
)

var (
	// ErrEmptyContractType ...
	ErrEmptyContractType = errors.New("contract type must not be empty")
	// ErrMalformedEnvelope ...
	ErrMalformedEnvelope = errors.New("envelope is too short for its layout")
	// ErrPayloadHashMismatch ...
	ErrPayloadHashMismatch = errors.New(
		"embedded payload hash does not match the payload",
	)
)

// Envelope is the immutable binary container binding a version byte, a
// contract type tag, the blake2b-256 hash of the payload and the payload
// itself, laid out as version ‖ contractType ‖ payloadHash ‖ payload with no
// padding.
type Envelope struct {
	version      byte
	contractType []byte
	payloadHash  [PayloadHashSize]byte
	payload      []byte
}

// Build assembles an envelope from its parts. The payload may be empty; the
// contract type must carry at least one byte.
func Build(version byte, contractType, payload []byte) (*Envelope, error) {
	if len(contractType) <= 0 {
		return nil, ErrEmptyContractType
	}

	ctype := make([]byte, len(contractType))
	copy(ctype, contractType)
	pload := make([]byte, len(payload))
	copy(pload, payload)

	return &Envelope{
		version:      version,
		contractType: ctype,
		payloadHash:  blake2b.Sum256(pload),
		payload:      pload,
	}, nil
}

// Parse rebuilds an envelope from its serialized form, given the length of
// the contract type tag, and verifies the embedded payload hash.
func Parse(raw []byte, contractTypeLen int) (*Envelope, error) {
	if contractTypeLen <= 0 {
		return nil, ErrEmptyContractType
	}
	if len(raw) < versionSize+contractTypeLen+PayloadHashSize {
		return nil, ErrMalformedEnvelope
	}

	offset := versionSize
	contractType := raw[offset : offset+contractTypeLen]
	offset += contractTypeLen
	var payloadHash [PayloadHashSize]byte
	copy(payloadHash[:], raw[offset:offset+PayloadHashSize])
	offset += PayloadHashSize
	payload := raw[offset:]

	if blake2b.Sum256(payload) != payloadHash {
		return nil, ErrPayloadHashMismatch
	}

	env, err := Build(raw[0], contractType, payload)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// Bytes returns the serialized envelope.
func (e *Envelope) Bytes() []byte {
	buf := bytes.NewBuffer(
		make([]byte, 0, versionSize+len(e.contractType)+PayloadHashSize+len(e.payload)),
	)
	buf.WriteByte(e.version)
	buf.Write(e.contractType)
	buf.Write(e.payloadHash[:])
	buf.Write(e.payload)
	return buf.Bytes()
}

// ID returns the hex-encoded blake2b-256 digest of the serialized envelope.
// This is the transaction id candidate tested against the trailing-zero
// pattern while mining.
func (e *Envelope) ID() string {
	digest := blake2b.Sum256(e.Bytes())
	return hex.EncodeToString(digest[:])
}

func (e *Envelope) Version() byte {
	return e.version
}

func (e *Envelope) ContractType() []byte {
	ctype := make([]byte, len(e.contractType))
	copy(ctype, e.contractType)
	return ctype
}

func (e *Envelope) PayloadHash() []byte {
	return append([]byte{}, e.payloadHash[:]...)
}

func (e *Envelope) Payload() []byte {
	payload := make([]byte, len(e.payload))
	copy(payload, e.payload)
	return payload
}

// Size returns the serialized length: 1 + len(contractType) + 32 +
// len(payload).
func (e *Envelope) Size() int {
	return versionSize + len(e.contractType) + PayloadHashSize + len(e.payload)
}
