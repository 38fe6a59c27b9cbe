package rpcserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Bitcoin-Clashic/clashicd/blockchain"
)

// maxRequestSize bounds the size of an accepted request body.
const maxRequestSize = 10 * 1024 * 1024

// Server represents the RPC server.  It serves the chainstate-facing subset
// of the JSON-RPC interface; the genesis initializer has already run by the
// time Start is called, so every handler observes a fully resolved genesis
// connection state.
type Server struct {
	chain  *blockchain.BlockChain
	addr   string
	server *http.Server
}

// NewServer creates a new RPC server for the given chain.
func NewServer(chain *blockchain.BlockChain, addr string) *Server {
	return &Server{
		chain: chain,
		addr:  addr,
	}
}

// Start starts the RPC server.  It blocks until the server is closed.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// RPC methods
	mux.HandleFunc("/", s.handleRequest)

	// Health check
	mux.HandleFunc("/health", s.healthHandler)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    s.addr,
		Handler: s.enableCORS(mux),
	}

	s.server = server

	logrus.Infof("RPC server listening on %s", s.addr)
	return server.ListenAndServe()
}

// Stop stops the RPC server.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// healthHandler handles health check requests.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	timestamp := time.Now().Format(time.RFC3339)
	fmt.Fprintf(w, `{"status":"ok","height":%d,"timestamp":"%s"}`, s.chain.Height(), timestamp)
}

// enableCORS adds CORS headers to allow browser access.
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleRequest handles JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, nil, rpcError(ErrRPCParse, "Parse error"))
		return
	}

	if req.JSONRPC != "2.0" {
		sendError(w, req.ID, rpcError(ErrRPCInvalidRequest, "Invalid JSON-RPC version"))
		return
	}

	result, err := s.handleMethod(&req)
	if err != nil {
		var rpcErr *JSONRPCError
		if !errors.As(err, &rpcErr) {
			logrus.WithField("method", req.Method).Errorf("RPC handler failed: %v", err)
			rpcErr = rpcError(ErrRPCInternal, err.Error())
		}
		sendError(w, req.ID, rpcErr)
		return
	}

	sendResponse(w, req.ID, result)
}

// handleMethod routes the request to the appropriate handler.
func (s *Server) handleMethod(req *JSONRPCRequest) (interface{}, error) {
	rpcRequests.WithLabelValues(req.Method).Inc()

	result, err := s.dispatch(req)
	if err != nil {
		rpcErrors.WithLabelValues(req.Method).Inc()
	}
	return result, err
}

func (s *Server) dispatch(req *JSONRPCRequest) (interface{}, error) {
	switch req.Method {
	case "getblockcount":
		return s.getBlockCount(req.Params)
	case "getbestblockhash":
		return s.getBestBlockHash(req.Params)
	case "getblockhash":
		return s.getBlockHash(req.Params)
	case "getblock":
		return s.getBlock(req.Params)
	case "getblockchaininfo":
		return s.getBlockchainInfo(req.Params)
	case "gettxoutsetinfo":
		return s.getTxOutSetInfo(req.Params)
	case "getrawtransaction":
		return s.getRawTransaction(req.Params)
	case "gettxout":
		return s.getTxOut(req.Params)
	default:
		return nil, rpcError(ErrRPCMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// sendResponse sends a successful JSON-RPC response.
func sendResponse(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// sendError sends an error JSON-RPC response.
func sendError(w http.ResponseWriter, id interface{}, rpcErr *JSONRPCError) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
