// Package rest implements the node collaborator on top of an esplora-shaped
// HTTP API. It covers the network half of the contract; signing stays with
// the wallet and is reported as unsupported here.
package rest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"
	"github.com/vanitydag/vanityd/pkg/httputil"
	"github.com/vanitydag/vanityd/pkg/node"
)

// ErrSigningUnsupported ...
var ErrSigningUnsupported = errors.New(
	"signing is not supported over the rest interface, use the wallet rpc",
)

// confirmedCacheSize bounds the cache of txids already seen confirmed. A
// confirmed transaction never becomes unconfirmed again, so hits skip the
// network round trip entirely.
const confirmedCacheSize = 512

type service struct {
	apiURL    string
	confirmed *lru.Cache
}

// NewService returns a node.Service backed by the esplora-shaped API at the
// given URL, after a health check against it.
func NewService(apiURL string) (node.Service, error) {
	confirmed, err := lru.New(confirmedCacheSize)
	if err != nil {
		return nil, err
	}

	svc := &service{apiURL: apiURL, confirmed: confirmed}
	if err := svc.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return svc, nil
}

func (s *service) healthCheck() error {
	url := fmt.Sprintf("%s/blocks/tip/height", s.apiURL)
	status, resp, err := httputil.NewHTTPRequest("GET", url, "", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.New(resp)
	}
	return nil
}

type utxoJSON struct {
	TxID         string `json:"txid"`
	Vout         uint32 `json:"vout"`
	Value        uint64 `json:"value"`
	ScriptPubKey string `json:"scriptPubKey"`
	Address      string `json:"address"`
}

func (s *service) ListUtxos(address string) ([]node.Utxo, error) {
	url := fmt.Sprintf("%s/address/%s/utxo", s.apiURL, address)
	status, resp, err := httputil.NewHTTPRequest("GET", url, "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.New(resp)
	}

	list := []utxoJSON{}
	if err := json.Unmarshal([]byte(resp), &list); err != nil {
		return nil, err
	}

	utxos := make([]node.Utxo, 0, len(list))
	for _, u := range list {
		owner := u.Address
		if len(owner) <= 0 {
			owner = address
		}
		utxos = append(utxos, node.Utxo{
			TransactionID: u.TxID,
			OutputIndex:   u.Vout,
			Value:         u.Value,
			ScriptPubKey:  u.ScriptPubKey,
			OwnerAddress:  owner,
		})
	}
	return utxos, nil
}

func (s *service) SignTransaction(_ []byte, _ node.SignOptions) ([]byte, error) {
	return nil, ErrSigningUnsupported
}

func (s *service) SubmitTransaction(rawTx []byte) (string, error) {
	url := fmt.Sprintf("%s/tx", s.apiURL)
	headers := map[string]string{
		"Content-Type": "text/plain",
	}

	status, resp, err := httputil.NewHTTPRequest(
		"POST", url, hex.EncodeToString(rawTx), headers,
	)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", errors.New(resp)
	}

	log.Debugf("rest: submitted transaction %s", resp)
	return resp, nil
}

func (s *service) GetTransactionStatus(txid string) (node.TxStatus, error) {
	if _, ok := s.confirmed.Get(txid); ok {
		return node.TxStatus{Confirmed: true}, nil
	}

	url := fmt.Sprintf("%s/tx/%s/status", s.apiURL, txid)
	status, resp, err := httputil.NewHTTPRequest("GET", url, "", nil)
	if err != nil {
		return node.TxStatus{}, err
	}
	if status != http.StatusOK {
		return node.TxStatus{}, errors.New(resp)
	}

	payload := struct {
		Confirmed bool `json:"confirmed"`
	}{}
	if err := json.Unmarshal([]byte(resp), &payload); err != nil {
		return node.TxStatus{}, err
	}

	if payload.Confirmed {
		s.confirmed.Add(txid, struct{}{})
	}
	return node.TxStatus{Confirmed: payload.Confirmed}, nil
}
