package rpc_test

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/vanitydag/vanityd/pkg/node"
	"github.com/vanitydag/vanityd/pkg/node/rpc"
)

type wsRequest struct {
	ID     uint64                 `json:"id"`
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
}

// newTestNode runs a websocket JSON-RPC node answering the methods the
// client issues.
func newTestNode(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req := wsRequest{}
			require.NoError(t, json.Unmarshal(raw, &req))

			var result interface{}
			var rpcErr map[string]interface{}
			switch req.Method {
			case "getUtxosByAddress":
				result = []map[string]interface{}{
					{
						"transactionId": "aa00",
						"index":         0,
						"value":         50000,
						"scriptPubKey":  "20ac",
					},
				}
			case "signTransaction":
				result = map[string]interface{}{
					"signedTransaction": hex.EncodeToString([]byte("signed")),
				}
			case "submitTransaction":
				result = map[string]interface{}{"transactionId": "cafe00"}
			case "getTransactionStatus":
				result = map[string]interface{}{"confirmed": true}
			default:
				rpcErr = map[string]interface{}{
					"code":    -32601,
					"message": "method not found",
				}
			}

			resp := map[string]interface{}{"id": req.ID}
			if rpcErr != nil {
				resp["error"] = rpcErr
			} else {
				resp["result"] = result
			}
			rawResp, err := json.Marshal(resp)
			require.NoError(t, err)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, rawResp))
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient(t *testing.T) {
	server := newTestNode(t)
	defer server.Close()

	client, err := rpc.NewClient(wsURL(server))
	require.NoError(t, err)
	defer client.Close()

	t.Run("list utxos", func(t *testing.T) {
		utxos, err := client.ListUtxos("vanity:qq0sender")
		require.NoError(t, err)
		require.Len(t, utxos, 1)
		require.Equal(t, "aa00", utxos[0].TransactionID)
		require.Equal(t, uint64(50000), utxos[0].Value)
		require.Equal(t, "vanity:qq0sender", utxos[0].OwnerAddress)
	})

	t.Run("sign transaction", func(t *testing.T) {
		signed, err := client.SignTransaction([]byte("raw"), node.SignOptions{})
		require.NoError(t, err)
		require.Equal(t, []byte("signed"), signed)
	})

	t.Run("submit transaction", func(t *testing.T) {
		txid, err := client.SubmitTransaction([]byte("signed"))
		require.NoError(t, err)
		require.Equal(t, "cafe00", txid)
	})

	t.Run("transaction status", func(t *testing.T) {
		status, err := client.GetTransactionStatus("cafe00")
		require.NoError(t, err)
		require.True(t, status.Confirmed)
	})
}

func TestClientRPCError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req := wsRequest{}
			require.NoError(t, json.Unmarshal(raw, &req))
			resp := map[string]interface{}{
				"id": req.ID,
				"error": map[string]interface{}{
					"code":    -32000,
					"message": "transaction already in mempool",
				},
			}
			rawResp, err := json.Marshal(resp)
			require.NoError(t, err)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, rawResp))
		}
	}))
	defer server.Close()

	client, err := rpc.NewClient(wsURL(server))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SubmitTransaction([]byte("signed"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "transaction already in mempool")
}

func TestClientShutdown(t *testing.T) {
	server := newTestNode(t)
	defer server.Close()

	client, err := rpc.NewClient(wsURL(server))
	require.NoError(t, err)
	client.Close()

	_, err = client.SubmitTransaction([]byte("signed"))
	require.ErrorIs(t, err, rpc.ErrClientShutdown)
}
