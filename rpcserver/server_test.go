package rpcserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func doRPC(t *testing.T, s *Server, body string) *JSONRPCResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.handleRequest(rec, req)

	var resp JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, rec.Body.String())
	}
	return &resp
}

func TestHandleRequestGenesisCoinbaseError(t *testing.T) {
	s := newTestServer(t, false)
	txid := s.chain.GenesisCoinbaseTxID()

	resp := doRPC(t, s, `{"jsonrpc":"2.0","method":"getrawtransaction","params":["`+txid.String()+`"],"id":1}`)

	if resp.Error == nil {
		t.Fatalf("expected an error response, got result %v", resp.Result)
	}
	if resp.Error.Code != ErrRPCInvalidAddressOrKey {
		t.Errorf("error code = %d, want %d", resp.Error.Code, ErrRPCInvalidAddressOrKey)
	}
	wantMsg := "The genesis block coinbase is not considered an ordinary " +
		"transaction and cannot be retrieved"
	if resp.Error.Message != wantMsg {
		t.Errorf("error message is %q, want %q", resp.Error.Message, wantMsg)
	}
}

func TestHandleRequestGetBlockCount(t *testing.T) {
	s := newTestServer(t, true)

	resp := doRPC(t, s, `{"jsonrpc":"2.0","method":"getblockcount","params":[],"id":1}`)
	if resp.Error != nil {
		t.Fatalf("getblockcount failed: %v", resp.Error)
	}
	if count, ok := resp.Result.(float64); !ok || count != 0 {
		t.Errorf("result = %v, want 0", resp.Result)
	}
}

func TestHandleRequestRejectsBadVersion(t *testing.T) {
	s := newTestServer(t, false)

	resp := doRPC(t, s, `{"jsonrpc":"1.0","method":"getblockcount","params":[],"id":1}`)
	if resp.Error == nil || resp.Error.Code != ErrRPCInvalidRequest {
		t.Errorf("response = %+v, want invalid request error", resp)
	}
}

func TestHandleRequestRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t, false)

	resp := doRPC(t, s, `{"jsonrpc":`)
	if resp.Error == nil || resp.Error.Code != ErrRPCParse {
		t.Errorf("response = %+v, want parse error", resp)
	}
}

func TestHandleRequestRejectsGet(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.handleRequest(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var payload struct {
		Status string `json:"status"`
		Height int32  `json:"height"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("health body is not valid JSON: %v", err)
	}
	if payload.Status != "ok" || payload.Height != 0 {
		t.Errorf("health payload = %+v", payload)
	}
}
