// Package node defines the contract of the external wallet/network
// collaborator. Key management, address derivation and transaction signing
// all live behind this boundary; the core only consumes it.
package node

// Utxo is a read-only reference to an unspent output owned by the wallet.
type Utxo struct {
	TransactionID string
	OutputIndex   uint32
	Value         uint64
	ScriptPubKey  string
	OwnerAddress  string
}

// TxStatus reports whether a transaction has been included in the chain.
type TxStatus struct {
	Confirmed bool
}

// SignOptions is passed through to the wallet signer untouched.
type SignOptions struct {
	SigHashType uint8
}

// Service is the wallet/network collaborator consumed by the broadcast
// coordinator and the PSKT generator. Implementations must be safe for
// concurrent use.
type Service interface {
	// ListUtxos fetches the unspent outputs of the given address.
	ListUtxos(address string) ([]Utxo, error)
	// SignTransaction asks the wallet to sign the given raw transaction.
	SignTransaction(rawTx []byte, opts SignOptions) ([]byte, error)
	// SubmitTransaction pushes the given signed raw transaction to the
	// network and returns its transaction id.
	SubmitTransaction(rawTx []byte) (txid string, err error)
	// GetTransactionStatus returns the confirmation status of the
	// transaction identified by its id.
	GetTransactionStatus(txid string) (TxStatus, error)
}
