package pskt

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/vanitydag/vanityd/pkg/node"
	"github.com/vanitydag/vanityd/pkg/txbuilder"
)

var (
	// ErrEmptyUtxos ...
	ErrEmptyUtxos = errors.New("utxo list must not be empty")
	// ErrEmptyDestination ...
	ErrEmptyDestination = errors.New("destination script must not be empty")
	// ErrZeroAmount ...
	ErrZeroAmount = errors.New("amount must be positive")
	// ErrInsufficientFunds is wrapped by InsufficientFundsError.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrZeroUtxoValue ...
	ErrZeroUtxoValue = errors.New(
		"utxo value must be a positive integer, not missing or zero",
	)
)

// InsufficientFundsError reports the exact shortfall of a failed coin
// selection.
type InsufficientFundsError struct {
	Available uint64
	Required  uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"%v: %d available, %d required (short of %d)",
		ErrInsufficientFunds, e.Available, e.Required, e.Shortfall(),
	)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// Shortfall returns the missing amount.
func (e *InsufficientFundsError) Shortfall() uint64 {
	return e.Required - e.Available
}

// GenerateOpts is the struct given to the Generate method. Destination and
// ChangeScript carry hex receiver scripts; decoding addresses into scripts
// is the wallet's concern.
type GenerateOpts struct {
	Utxos           []node.Utxo
	Destination     string
	Amount          uint64
	Fee             uint64
	EnvelopePayload []byte
	ChangeScript    string
}

func (o GenerateOpts) validate() error {
	if len(o.Utxos) <= 0 {
		return ErrEmptyUtxos
	}
	if len(o.Destination) <= 0 {
		return ErrEmptyDestination
	}
	if o.Amount <= 0 {
		return ErrZeroAmount
	}
	return nil
}

// Generate selects funding utxos and assembles a PSKT document paying
// Amount to Destination, returning change to ChangeScript when it is worth
// anything. Selection accumulates utxos in the order given until the target
// is covered, so identical input ordering yields identical documents.
func Generate(opts GenerateOpts) (*Pskt, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	selected, total, err := selectUtxos(opts.Utxos, opts.Amount+opts.Fee)
	if err != nil {
		return nil, err
	}

	inputs := make([]Input, 0, len(selected))
	builderInputs := make([]txbuilder.Input, 0, len(selected))
	for _, utxo := range selected {
		inputs = append(inputs, Input{
			PreviousOutpoint: Outpoint{
				TransactionID: utxo.TransactionID,
				Index:         utxo.OutputIndex,
			},
			PreviousOutput: PreviousOutput{
				Value:        utxo.Value,
				ScriptPubKey: utxo.ScriptPubKey,
			},
			Sequence:   0,
			SigOpCount: 1,
		})
		builderInputs = append(builderInputs, txbuilder.Input{
			PreviousOutpoint: txbuilder.Outpoint{
				TransactionID: utxo.TransactionID,
				Index:         utxo.OutputIndex,
			},
			Sequence:   0,
			SigOpCount: 1,
		})
	}

	outputs := []Output{
		{Value: opts.Amount, ScriptPubKey: opts.Destination},
	}
	if change := total - opts.Amount - opts.Fee; change > 0 {
		changeScript := opts.ChangeScript
		if len(changeScript) <= 0 {
			changeScript = opts.Destination
		}
		outputs = append(outputs, Output{Value: change, ScriptPubKey: changeScript})
	}

	builderOutputs := make([]txbuilder.Output, 0, len(outputs))
	for _, out := range outputs {
		script, err := hex.DecodeString(out.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("invalid receiver script: %v", err)
		}
		builderOutputs = append(builderOutputs, txbuilder.Output{
			Value:               out.Value,
			ScriptPubKeyVersion: out.ScriptPubKeyVersion,
			ScriptPubKey:        script,
		})
	}

	tx, err := txbuilder.NewBuilder().Build(txbuilder.BuildOpts{
		Version:      1,
		Inputs:       builderInputs,
		Outputs:      builderOutputs,
		LockTime:     0,
		SubnetworkID: DefaultSubnetworkID,
		Gas:          0,
		Payload:      opts.EnvelopePayload,
	})
	if err != nil {
		return nil, err
	}

	return &Pskt{
		ID:           tx.ID(),
		Version:      1,
		Inputs:       inputs,
		Outputs:      outputs,
		LockTime:     0,
		SubnetworkID: DefaultSubnetworkID,
		Gas:          0,
		Payload:      hex.EncodeToString(opts.EnvelopePayload),
	}, nil
}

// selectUtxos accumulates utxos in the order given until target is covered.
// A zero-value utxo is a construction error, never silently skipped.
func selectUtxos(utxos []node.Utxo, target uint64) ([]node.Utxo, uint64, error) {
	selected := make([]node.Utxo, 0, len(utxos))
	total := uint64(0)

	for _, utxo := range utxos {
		if utxo.Value <= 0 {
			return nil, 0, fmt.Errorf(
				"%w: outpoint %s:%d", ErrZeroUtxoValue,
				utxo.TransactionID, utxo.OutputIndex,
			)
		}
		selected = append(selected, utxo)
		total += utxo.Value
		if total >= target {
			return selected, total, nil
		}
	}

	return nil, 0, &InsufficientFundsError{Available: total, Required: target}
}
