// Package rpc implements the node collaborator over a websocket JSON-RPC
// connection to the wallet/node. Responses are correlated to requests by id
// and delivered through per-request futures.
package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/vanitydag/vanityd/pkg/node"
)

var (
	// ErrClientShutdown ...
	ErrClientShutdown = errors.New("the rpc client has been shut down")
	// ErrResponseTimeout ...
	ErrResponseTimeout = errors.New("timed out waiting for the rpc response")
)

const defaultResponseTimeout = 30 * time.Second

type jsonRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type jsonError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *jsonError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type jsonResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *jsonError      `json:"error"`
}

// Client is a websocket JSON-RPC client implementing node.Service. A single
// connection serves all requests; concurrent callers are multiplexed over
// it.
type Client struct {
	conn   *websocket.Conn
	nextID uint64

	requestsMtx sync.Mutex
	requests    map[uint64]chan *jsonResponse

	sendMtx sync.Mutex

	timeout time.Duration

	quitOnce sync.Once
	quit     chan struct{}
}

// NewClient dials the websocket endpoint and starts the response dispatch
// loop.
func NewClient(url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	client := &Client{
		conn:     conn,
		requests: map[uint64]chan *jsonResponse{},
		timeout:  defaultResponseTimeout,
		quit:     make(chan struct{}),
	}
	go client.readLoop()

	log.Debugf("rpc: connected to %s", url)
	return client, nil
}

// Close tears down the connection and fails all in-flight requests.
func (c *Client) Close() {
	c.quitOnce.Do(func() {
		close(c.quit)
		c.conn.Close()
	})
}

func (c *Client) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.quit:
			default:
				log.Debugf("rpc: connection closed: %v", err)
				c.Close()
			}
			return
		}

		resp := &jsonResponse{}
		if err := json.Unmarshal(raw, resp); err != nil {
			log.Debugf("rpc: dropping malformed response: %v", err)
			continue
		}

		c.requestsMtx.Lock()
		future, ok := c.requests[resp.ID]
		delete(c.requests, resp.ID)
		c.requestsMtx.Unlock()

		if ok {
			future <- resp
		}
	}
}

// call issues a request and blocks until its response, a timeout or
// shutdown.
func (c *Client) call(method string, params interface{}) (json.RawMessage, error) {
	select {
	case <-c.quit:
		return nil, ErrClientShutdown
	default:
	}

	id := atomic.AddUint64(&c.nextID, 1)
	raw, err := json.Marshal(jsonRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	future := make(chan *jsonResponse, 1)
	c.requestsMtx.Lock()
	c.requests[id] = future
	c.requestsMtx.Unlock()

	c.sendMtx.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, raw)
	c.sendMtx.Unlock()
	if err != nil {
		c.requestsMtx.Lock()
		delete(c.requests, id)
		c.requestsMtx.Unlock()
		return nil, err
	}

	select {
	case resp := <-future:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-time.After(c.timeout):
		c.requestsMtx.Lock()
		delete(c.requests, id)
		c.requestsMtx.Unlock()
		return nil, ErrResponseTimeout
	case <-c.quit:
		return nil, ErrClientShutdown
	}
}

type utxoResult struct {
	TransactionID string `json:"transactionId"`
	Index         uint32 `json:"index"`
	Value         uint64 `json:"value"`
	ScriptPubKey  string `json:"scriptPubKey"`
	Address       string `json:"address"`
}

func (c *Client) ListUtxos(address string) ([]node.Utxo, error) {
	result, err := c.call("getUtxosByAddress", map[string]interface{}{
		"address": address,
	})
	if err != nil {
		return nil, err
	}

	list := []utxoResult{}
	if err := json.Unmarshal(result, &list); err != nil {
		return nil, err
	}

	utxos := make([]node.Utxo, 0, len(list))
	for _, u := range list {
		owner := u.Address
		if len(owner) <= 0 {
			owner = address
		}
		utxos = append(utxos, node.Utxo{
			TransactionID: u.TransactionID,
			OutputIndex:   u.Index,
			Value:         u.Value,
			ScriptPubKey:  u.ScriptPubKey,
			OwnerAddress:  owner,
		})
	}
	return utxos, nil
}

func (c *Client) SignTransaction(rawTx []byte, opts node.SignOptions) ([]byte, error) {
	result, err := c.call("signTransaction", map[string]interface{}{
		"transaction": hex.EncodeToString(rawTx),
		"sigHashType": opts.SigHashType,
	})
	if err != nil {
		return nil, err
	}

	payload := struct {
		SignedTransaction string `json:"signedTransaction"`
	}{}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, err
	}
	return hex.DecodeString(payload.SignedTransaction)
}

func (c *Client) SubmitTransaction(rawTx []byte) (string, error) {
	result, err := c.call("submitTransaction", map[string]interface{}{
		"transaction": hex.EncodeToString(rawTx),
	})
	if err != nil {
		return "", err
	}

	payload := struct {
		TransactionID string `json:"transactionId"`
	}{}
	if err := json.Unmarshal(result, &payload); err != nil {
		return "", err
	}

	log.Debugf("rpc: submitted transaction %s", payload.TransactionID)
	return payload.TransactionID, nil
}

func (c *Client) GetTransactionStatus(txid string) (node.TxStatus, error) {
	result, err := c.call("getTransactionStatus", map[string]interface{}{
		"transactionId": txid,
	})
	if err != nil {
		return node.TxStatus{}, err
	}

	payload := struct {
		Confirmed bool `json:"confirmed"`
	}{}
	if err := json.Unmarshal(result, &payload); err != nil {
		return node.TxStatus{}, err
	}
	return node.TxStatus{Confirmed: payload.Confirmed}, nil
}
