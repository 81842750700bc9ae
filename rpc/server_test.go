package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/indexer"
	"github.com/tolelom/tolchain/internal/testutil"
	"github.com/tolelom/tolchain/ledger"
)

func newTestServer(t *testing.T, authToken string) *Server {
	t.Helper()
	store := testutil.NewLedgerStore()
	weights, err := ledger.NewRepWeights(store)
	if err != nil {
		t.Fatalf("NewRepWeights: %v", err)
	}
	idx := indexer.New(testutil.NewMemDB(), events.NewEmitter())
	handler := NewHandler(store, weights, &stubProcessor{}, idx, "tolchain-test")
	srv := NewServer("127.0.0.1:0", handler, authToken)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func postJSON(t *testing.T, url string, body, token string) (*http.Response, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, parsed
}

func TestServerDispatchesValidRequest(t *testing.T) {
	srv := newTestServer(t, "")
	url := "http://" + srv.Addr().String() + "/"

	_, resp := postJSON(t, url, `{"jsonrpc":"2.0","id":1,"method":"representative_weight","params":{"representative":"`+core.EncodeAccount(core.Account{})+`"}}`, "")
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestServerRejectsNonPostMethod(t *testing.T) {
	srv := newTestServer(t, "")
	url := "http://" + srv.Addr().String() + "/"

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestServerRejectsMissingAuthToken(t *testing.T) {
	srv := newTestServer(t, "secret")
	url := "http://" + srv.Addr().String() + "/"

	httpResp, resp := postJSON(t, url, `{"jsonrpc":"2.0","id":1,"method":"representative_weight","params":{"representative":"tol_x"}}`, "")
	if httpResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", httpResp.StatusCode, http.StatusUnauthorized)
	}
	if resp.Error == nil || resp.Error.Code != CodeUnauthorized {
		t.Fatalf("expected CodeUnauthorized, got %+v", resp.Error)
	}
}

func TestServerAcceptsCorrectAuthToken(t *testing.T) {
	srv := newTestServer(t, "secret")
	url := "http://" + srv.Addr().String() + "/"

	_, resp := postJSON(t, url, `{"jsonrpc":"2.0","id":1,"method":"representative_weight","params":{"representative":"`+core.EncodeAccount(core.Account{})+`"}}`, "secret")
	if resp.Error != nil {
		t.Fatalf("unexpected error with correct token: %+v", resp.Error)
	}
}

func TestServerRejectsWrongJSONRPCVersion(t *testing.T) {
	srv := newTestServer(t, "")
	url := "http://" + srv.Addr().String() + "/"

	_, resp := postJSON(t, url, `{"jsonrpc":"1.0","id":1,"method":"representative_weight"}`, "")
	if resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected CodeInvalidRequest, got %+v", resp.Error)
	}
}

func TestServerRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, "")
	url := "http://" + srv.Addr().String() + "/"

	_, resp := postJSON(t, url, `not json`, "")
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("expected CodeParseError, got %+v", resp.Error)
	}
}
