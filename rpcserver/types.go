package rpcserver

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      interface{}   `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      interface{}   `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error.  It implements the error
// interface so handlers can return it directly and have the server surface
// the code and message verbatim.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error satisfies the error interface.
func (e *JSONRPCError) Error() string {
	return e.Message
}

// rpcError returns a new JSONRPCError with the given code and message.
func rpcError(code int, message string) *JSONRPCError {
	return &JSONRPCError{Code: code, Message: message}
}

// Bitcoin-style application error codes.  These are stable across releases:
// callers key retry and display behavior off them.
const (
	ErrRPCMiscError           = -1
	ErrRPCInvalidAddressOrKey = -5
	ErrRPCInvalidParameter    = -8
)

// JSON-RPC 2.0 protocol error codes.
const (
	ErrRPCParse          = -32700
	ErrRPCInvalidRequest = -32600
	ErrRPCMethodNotFound = -32601
	ErrRPCInternal       = -32603
)

// BlockInfo represents block information for RPC responses.  Tx lists the
// transaction ids in block order, so the coinbase is always at index 0.
type BlockInfo struct {
	Hash       string   `json:"hash"`
	Height     int32    `json:"height"`
	Version    int32    `json:"version"`
	PrevBlock  string   `json:"previousblockhash"`
	MerkleRoot string   `json:"merkleroot"`
	Timestamp  int64    `json:"time"`
	Bits       uint32   `json:"bits"`
	Nonce      uint32   `json:"nonce"`
	Tx         []string `json:"tx"`
}

// BlockchainInfo represents blockchain information.
type BlockchainInfo struct {
	Chain         string `json:"chain"`
	Blocks        int32  `json:"blocks"`
	BestBlockHash string `json:"bestblockhash"`
}

// TxOutSetInfo represents the aggregate view of the UTXO set.
type TxOutSetInfo struct {
	Height       int32   `json:"height"`
	BestBlock    string  `json:"bestblock"`
	TxOuts       uint64  `json:"txouts"`
	Transactions uint64  `json:"transactions"`
	TotalAmount  float64 `json:"total_amount"`
}

// ScriptPubKeyInfo describes a transaction output script.
type ScriptPubKeyInfo struct {
	Hex     string `json:"hex"`
	Address string `json:"address,omitempty"`
}

// VinInfo describes a transaction input.
type VinInfo struct {
	Coinbase string `json:"coinbase,omitempty"`
	Txid     string `json:"txid,omitempty"`
	Vout     uint32 `json:"vout,omitempty"`
	Sequence uint32 `json:"sequence"`
}

// VoutInfo describes a transaction output.
type VoutInfo struct {
	Value        float64          `json:"value"`
	N            uint32           `json:"n"`
	ScriptPubKey ScriptPubKeyInfo `json:"scriptPubKey"`
}

// RawTransactionInfo is the verbose result of getrawtransaction.
type RawTransactionInfo struct {
	Hex       string     `json:"hex"`
	Txid      string     `json:"txid"`
	Version   int32      `json:"version"`
	LockTime  uint32     `json:"locktime"`
	Vin       []VinInfo  `json:"vin"`
	Vout      []VoutInfo `json:"vout"`
	BlockHash string     `json:"blockhash,omitempty"`
}

// TxOutResult is the result of gettxout.
type TxOutResult struct {
	BestBlock     string           `json:"bestblock"`
	Confirmations int32            `json:"confirmations"`
	Value         float64          `json:"value"`
	ScriptPubKey  ScriptPubKeyInfo `json:"scriptPubKey"`
	Coinbase      bool             `json:"coinbase"`
}
