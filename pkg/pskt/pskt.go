// Package pskt builds and validates the partially-signed transaction
// documents handed over to an external wallet for signing. The JSON field
// names are a compatibility contract with downstream wallets: the
// transaction id field is `id`, never `txId`.
package pskt

import "encoding/json"

// DefaultSubnetworkID marks transactions carrying an arbitrary payload.
const DefaultSubnetworkID = "0000000000000000000000000000000000000000"

// Outpoint references the output being spent by an input.
type Outpoint struct {
	TransactionID string `json:"transactionId"`
	Index         uint32 `json:"index"`
}

// PreviousOutput carries the value and script of the output being spent,
// which the signer needs to produce a valid signature.
type PreviousOutput struct {
	Value               uint64 `json:"value"`
	ScriptPubKeyVersion uint16 `json:"scriptPubKeyVersion"`
	ScriptPubKey        string `json:"scriptPubKey"`
}

// Input spends a previous output.
type Input struct {
	PreviousOutpoint Outpoint       `json:"previousOutpoint"`
	PreviousOutput   PreviousOutput `json:"previousOutput"`
	Sequence         uint64         `json:"sequence"`
	SigOpCount       int            `json:"sigOpCount"`
}

// Output locks a value under a script.
type Output struct {
	Value               uint64 `json:"value"`
	ScriptPubKeyVersion uint16 `json:"scriptPubKeyVersion"`
	ScriptPubKey        string `json:"scriptPubKey"`
}

// Pskt is the transport document for a not-yet-fully-signed transaction.
// Once validated it is never mutated; a new broadcast attempt builds a new
// document.
type Pskt struct {
	ID           string   `json:"id"`
	Version      uint16   `json:"version"`
	Inputs       []Input  `json:"inputs"`
	Outputs      []Output `json:"outputs"`
	LockTime     uint64   `json:"lockTime"`
	SubnetworkID string   `json:"subnetworkId"`
	Gas          uint64   `json:"gas"`
	Payload      string   `json:"payload"`
}

// Serialize returns the canonical JSON encoding of the document.
func (p *Pskt) Serialize() ([]byte, error) {
	return json.Marshal(p)
}

// TotalInputValue sums the previous-output values of all inputs.
func (p *Pskt) TotalInputValue() uint64 {
	total := uint64(0)
	for _, in := range p.Inputs {
		total += in.PreviousOutput.Value
	}
	return total
}

// TotalOutputValue sums the values of all outputs.
func (p *Pskt) TotalOutputValue() uint64 {
	total := uint64(0)
	for _, out := range p.Outputs {
		total += out.Value
	}
	return total
}
