package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gnolang/asymptote/internal"
	"github.com/gnolang/asymptote/internal/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

const fibJSON = `{
  "kind": "recursive",
  "procedure": "fib",
  "ast": {"type": "Program", "body": [
    {"type": "ProcDef", "name": "fib", "params": ["n"], "line": 1, "body": [
      {"type": "If", "line": 2,
       "cond": {"type": "Binary", "op": "<=", "left": {"type": "Identifier", "name": "n"}, "right": {"type": "Number", "value": 1}},
       "then": [{"type": "Return", "line": 3, "value": {"type": "Identifier", "name": "n"}}]},
      {"type": "Return", "line": 4, "value": {"type": "Binary", "op": "+",
        "left": {"type": "Call", "name": "fib", "args": [{"type": "Binary", "op": "-", "left": {"type": "Identifier", "name": "n"}, "right": {"type": "Number", "value": 1}}]},
        "right": {"type": "Call", "name": "fib", "args": [{"type": "Binary", "op": "-", "left": {"type": "Identifier", "name": "n"}, "right": {"type": "Number", "value": 2}}]}}}
    ]}
  ]}
}`

const bsearchGo = `package search

func find(a []int, lo, hi, x int) int {
	if lo > hi {
		return -1
	}
	mid := (lo + hi) / 2
	if a[mid] == x {
		return mid
	}
	if a[mid] < x {
		return find(a, mid+1, hi, x)
	} else {
		return find(a, lo, mid-1, x)
	}
}
`

func newTestServer() *Server {
	return New(internal.NewEngine(internal.Options{}), nil)
}

func post(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type analyzeBody struct {
	RequestID string `json:"requestId"`
	Results   []struct {
		Procedure string `json:"procedure"`
		Kind      string `json:"kind"`
		Mode      string `json:"mode"`
		Totals    struct {
			BigO     string `json:"bigO"`
			BigOmega string `json:"bigOmega"`
			BigTheta string `json:"bigTheta"`
		} `json:"totals"`
		Failure *struct {
			Code string `json:"code"`
		} `json:"failure"`
	} `json:"results"`
}

func TestHealth(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(t, s, "/v1/analyze", AnalyzeRequest{Filename: "fib.json", Source: fibJSON})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body analyzeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, w.Header().Get(requestIDHeader), body.RequestID)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "fib", body.Results[0].Procedure)
	assert.Equal(t, "recursive", body.Results[0].Kind)
	assert.Equal(t, "1.618ⁿ", body.Results[0].Totals.BigTheta)
}

func TestAnalyzeGoSourceAllModes(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(t, s, "/v1/analyze", AnalyzeRequest{Filename: "search.go", Source: bsearchGo, Mode: "all"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body analyzeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	res := body.Results[0]
	assert.Equal(t, "all", res.Mode)
	assert.Equal(t, "log n", res.Totals.BigO)
	assert.Equal(t, "1", res.Totals.BigOmega)
	assert.Empty(t, res.Totals.BigTheta)
}

func TestAnalyzeMethodOverride(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(t, s, "/v1/analyze", AnalyzeRequest{Filename: "fib.json", Source: fibJSON, Method: "master"})
	require.Equal(t, http.StatusOK, w.Code)

	var body analyzeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	require.NotNil(t, body.Results[0].Failure)
	assert.Equal(t, string(types.CodeInvalidPreferredMethod), body.Results[0].Failure.Code)
}

func TestAnalyzeRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   any
		status int
		code   types.Code
	}{
		{"not json", "garbage", http.StatusBadRequest, types.CodeInvalidInput},
		{"missing source", AnalyzeRequest{Filename: "fib.json"}, http.StatusBadRequest, types.CodeInvalidInput},
		{"unsupported file", AnalyzeRequest{Filename: "fib.py", Source: "x"}, http.StatusBadRequest, types.CodeInvalidInput},
		{"path in filename", AnalyzeRequest{Filename: "../fib.json", Source: fibJSON}, http.StatusBadRequest, types.CodeInvalidInput},
		{"bad mode", AnalyzeRequest{Filename: "fib.json", Source: fibJSON, Mode: "median"}, http.StatusBadRequest, types.CodeInvalidInput},
		{"bad method", AnalyzeRequest{Filename: "fib.json", Source: fibJSON, Method: "guess"}, http.StatusBadRequest, types.CodeInvalidInput},
		{"broken ast", AnalyzeRequest{Filename: "fib.json", Source: `{"type": `}, http.StatusUnprocessableEntity, types.CodeInvalidInput},
		{"broken go", AnalyzeRequest{Filename: "x.go", Source: "package"}, http.StatusUnprocessableEntity, types.CodeInvalidInput},
	}
	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, s, "/v1/analyze", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.code), resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(AnalyzeRequest{Filename: "fib.json", Source: fibJSON})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(data))
	req.Header.Set(requestIDHeader, "trace-42")
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, req)

	assert.Equal(t, "trace-42", w.Header().Get(requestIDHeader))
	assert.Contains(t, w.Body.String(), `"requestId":"trace-42"`)
}

func TestTree(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	w := post(t, s, "/v1/tree", TreeRequest{Filename: "fib.json", Source: fibJSON, Depth: 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TreeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.DOT, "digraph recursion {"))
	assert.Equal(t, 2+4, strings.Count(resp.DOT, "->"))

	w = post(t, s, "/v1/tree", TreeRequest{Filename: "fib.json", Source: fibJSON, Depth: 20})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, s, "/v1/tree", TreeRequest{Filename: "fib.json", Source: fibJSON, Procedure: "other"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(types.CodeNoRecursiveCallFound))
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	post(t, s, "/v1/analyze", AnalyzeRequest{Filename: "fib.json", Source: fibJSON})
	post(t, s, "/v1/analyze", AnalyzeRequest{Filename: "fib.py", Source: "x"})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	out := w.Body.String()
	assert.Contains(t, out, `asymptote_http_requests_total{route="/v1/analyze",status="200"} 1`)
	assert.Contains(t, out, `asymptote_http_requests_total{route="/v1/analyze",status="400"} 1`)
	assert.Contains(t, out, `asymptote_analyses_total{kind="recursive",mode="worst"} 1`)
	assert.Contains(t, out, `asymptote_analysis_failures_total{code="InvalidInput"} 1`)
}

func TestListenAndServe(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestServer().ListenAndServe(ctx, addr) }()

	client := &http.Client{Timeout: time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	client.CloseIdleConnections()
}
