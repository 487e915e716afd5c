package txbuilder

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/vanitydag/vanityd/pkg/bufferutil"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrEmptyInputs ...
	ErrEmptyInputs = errors.New("input list must not be empty")
	// ErrEmptyOutputs ...
	ErrEmptyOutputs = errors.New("output list must not be empty")
	// ErrInvalidPrevTxID ...
	ErrInvalidPrevTxID = errors.New(
		"previous outpoint transaction id must be a valid hex string",
	)
	// ErrOutpointIndexOutOfRange ...
	ErrOutpointIndexOutOfRange = errors.New("outpoint index out of range")
)

// Outpoint references an output of a previous transaction.
type Outpoint struct {
	TransactionID string
	Index         uint32
}

// Input spends a previous outpoint.
type Input struct {
	PreviousOutpoint Outpoint
	SignatureScript  []byte
	Sequence         uint64
	SigOpCount       int
}

// Output carries a value locked by a script.
type Output struct {
	Value               uint64
	ScriptPubKeyVersion uint16
	ScriptPubKey        []byte
}

// Transaction is the capability contract the nonce search engine relies on:
// the id must be a pure function of the transaction content, so rebuilding a
// transaction with identical parts always yields the identical id.
type Transaction interface {
	ID() string
	Outpoint(index uint32) (Outpoint, error)
	Serialize() []byte
}

// BuildOpts is the struct given to the Build method.
type BuildOpts struct {
	Version      uint16
	Inputs       []Input
	Outputs      []Output
	LockTime     uint64
	SubnetworkID string
	Gas          uint64
	Payload      []byte
}

func (o BuildOpts) validate() error {
	if len(o.Inputs) <= 0 {
		return ErrEmptyInputs
	}
	if len(o.Outputs) <= 0 {
		return ErrEmptyOutputs
	}
	for _, in := range o.Inputs {
		if !bufferutil.IsValidHex(in.PreviousOutpoint.TransactionID) {
			return ErrInvalidPrevTxID
		}
	}
	return nil
}

// Builder turns inputs, outputs and an arbitrary payload into an id-bearing
// transaction. External construction libraries are plugged in behind this
// interface instead of being probed at runtime.
type Builder interface {
	Build(opts BuildOpts) (Transaction, error)
}

type builder struct{}

// NewBuilder returns the default deterministic transaction builder.
func NewBuilder() Builder {
	return &builder{}
}

func (b *builder) Build(opts BuildOpts) (Transaction, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	serialized, err := serialize(opts)
	if err != nil {
		return nil, err
	}
	digest := blake2b.Sum256(serialized)

	return &transaction{
		id:         hex.EncodeToString(digest[:]),
		inputs:     opts.Inputs,
		serialized: serialized,
	}, nil
}

type transaction struct {
	id         string
	inputs     []Input
	serialized []byte
}

func (t *transaction) ID() string {
	return t.id
}

func (t *transaction) Outpoint(index uint32) (Outpoint, error) {
	if index >= uint32(len(t.inputs)) {
		return Outpoint{}, fmt.Errorf(
			"%w: %d of %d", ErrOutpointIndexOutOfRange, index, len(t.inputs),
		)
	}
	return t.inputs[index].PreviousOutpoint, nil
}

func (t *transaction) Serialize() []byte {
	raw := make([]byte, len(t.serialized))
	copy(raw, t.serialized)
	return raw
}

// serialize produces the canonical binary encoding the transaction id is
// derived from. Field order is fixed; changing it changes every id.
func serialize(opts BuildOpts) ([]byte, error) {
	buf := &bytes.Buffer{}

	writeUint16(buf, opts.Version)

	writeUint64(buf, uint64(len(opts.Inputs)))
	for _, in := range opts.Inputs {
		prevTxID, err := bufferutil.TxIDToBytes(in.PreviousOutpoint.TransactionID)
		if err != nil {
			return nil, ErrInvalidPrevTxID
		}
		writeVarBytes(buf, prevTxID)
		writeUint32(buf, in.PreviousOutpoint.Index)
		writeVarBytes(buf, in.SignatureScript)
		writeUint64(buf, in.Sequence)
		writeUint64(buf, uint64(in.SigOpCount))
	}

	writeUint64(buf, uint64(len(opts.Outputs)))
	for _, out := range opts.Outputs {
		buf.Write(bufferutil.ValueToBytes(out.Value))
		writeUint16(buf, out.ScriptPubKeyVersion)
		writeVarBytes(buf, out.ScriptPubKey)
	}

	writeUint64(buf, opts.LockTime)
	writeVarBytes(buf, []byte(opts.SubnetworkID))
	writeUint64(buf, opts.Gas)

	payloadHash := blake2b.Sum256(opts.Payload)
	buf.Write(payloadHash[:])
	writeVarBytes(buf, opts.Payload)

	return buf.Bytes(), nil
}

func writeUint16(buf *bytes.Buffer, val uint16) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, val)
	buf.Write(b)
}

func writeUint32(buf *bytes.Buffer, val uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, val)
	buf.Write(b)
}

func writeUint64(buf *bytes.Buffer, val uint64) {
	buf.Write(bufferutil.ValueToBytes(val))
}

func writeVarBytes(buf *bytes.Buffer, raw []byte) {
	writeUint64(buf, uint64(len(raw)))
	buf.Write(raw)
}
