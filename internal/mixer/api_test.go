package mixer

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *Mixer) {
	t.Helper()
	m, _ := newTestMixer(t, 4)
	return NewServer(m, zerolog.Nop()), m
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestDepositEndpoint(t *testing.T) {
	srv, m := newTestServer(t)
	handler := srv.Handler()

	var hooked []DepositEvent
	srv.OnDeposit(func(ev DepositEvent) { hooked = append(hooked, ev) })

	rec := postJSON(t, handler, "/deposit", DepositRequest{Commitment: "11", Value: "100"})
	require.Equal(t, http.StatusOK, rec.Code)
	var ev DepositEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "11", ev.Commitment)
	assert.Equal(t, uint64(0), ev.LeafIndex)
	require.Len(t, hooked, 1)
	assert.Equal(t, ev, hooked[0])
	assert.Equal(t, uint64(1), m.NextLeafIndex())

	// Wrong denomination and duplicates map onto distinct statuses.
	rec = postJSON(t, handler, "/deposit", DepositRequest{Commitment: "12", Value: "99"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = postJSON(t, handler, "/deposit", DepositRequest{Commitment: "11", Value: "100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = postJSON(t, handler, "/deposit", DepositRequest{Commitment: "xyz", Value: "100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, hooked, 1)
}

func TestWithdrawEndpoint(t *testing.T) {
	srv, m := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/deposit", DepositRequest{Commitment: "11", Value: "100"})
	require.Equal(t, http.StatusOK, rec.Code)

	recipient := big.NewInt(42)
	good := WithdrawRequest{
		Proof:         hex.EncodeToString(recipient.Bytes()),
		Root:          m.Root().String(),
		NullifierHash: "7",
		Recipient:     recipient.String(),
	}

	// Wrong proof bytes fail verification.
	bad := good
	bad.Proof = hex.EncodeToString([]byte("nope"))
	rec = postJSON(t, handler, "/withdraw", bad)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Stale root.
	bad = good
	bad.Root = "123456"
	rec = postJSON(t, handler, "/withdraw", bad)
	assert.Equal(t, http.StatusGone, rec.Code)

	// Non-hex proof is a transport error, not a protocol one.
	bad = good
	bad.Proof = "zz"
	rec = postJSON(t, handler, "/withdraw", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, handler, "/withdraw", good)
	require.Equal(t, http.StatusOK, rec.Code)

	// Replay is a state conflict.
	rec = postJSON(t, handler, "/withdraw", good)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRootAndEventsEndpoints(t *testing.T) {
	srv, m := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/deposit", DepositRequest{Commitment: "11", Value: "100"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/root", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var root RootResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &root))
	assert.Equal(t, m.Root().String(), root.Root)
	assert.Equal(t, uint64(1), root.NextLeafIndex)

	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var events []DepositEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "11", events[0].Commitment)
}

func TestDepositRequiresPost(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/deposit", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
