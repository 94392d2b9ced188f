package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/charity-raffle/internal/metrics"
	"github.com/R3E-Network/charity-raffle/raffle"
)

const (
	testFee     = int64(100)
	testJackpot = int64(1000)
	testFunder  = "funder-1"
	testAccount = "raffle-pool"
)

func newTestServer(t *testing.T) (*Server, *raffle.Engine, *raffle.MockTreasury) {
	t.Helper()

	treasury := raffle.NewMockTreasury()
	treasury.Credit(testAccount, testJackpot)
	treasury.Credit(testFunder, 100_000)

	engine, err := raffle.New(raffle.Config{
		EntranceFee: testFee,
		// entry window elapses immediately so upkeep is exercisable
		Duration: time.Nanosecond,
		Funder:   testFunder,
		Charities: [raffle.NumCharities]raffle.Address{
			"charity-red", "charity-green", "charity-blue",
		},
	}, testAccount, treasury, raffle.NewMockCoordinator(), nil)
	require.NoError(t, err)
	engine.WithStore(raffle.NewMemoryStore())

	return New(engine, raffle.NewMemoryStore(), metrics.New(), nil), engine, treasury
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func enterPlayer(t *testing.T, srv *Server, treasury *raffle.MockTreasury, entrant string, charity int) {
	t.Helper()

	treasury.Credit(raffle.Address(entrant), testFee)
	rec := doJSON(t, srv, http.MethodPost, "/entries", map[string]any{
		"entrant": entrant,
		"charity": charity,
		"fee":     testFee,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "open", body["state"])
}

func TestServer_EnterValidation(t *testing.T) {
	srv, _, treasury := newTestServer(t)
	treasury.Credit("player-1", testFee)

	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"underpaid", map[string]any{"entrant": "player-1", "charity": 1, "fee": testFee - 1}, http.StatusBadRequest},
		{"bad charity", map[string]any{"entrant": "player-1", "charity": 4, "fee": testFee}, http.StatusBadRequest},
		{"missing entrant", map[string]any{"charity": 1, "fee": testFee}, http.StatusBadRequest},
		{"unknown field", map[string]any{"entrant": "player-1", "charity": 1, "fee": testFee, "extra": 1}, http.StatusBadRequest},
		{"accepted", map[string]any{"entrant": "player-1", "charity": 1, "fee": testFee}, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/entries", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_UpkeepRefusedWithoutEntrants(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/upkeep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["needed"])

	rec = doJSON(t, srv, http.MethodPost, "/upkeep", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_FullCycle(t *testing.T) {
	srv, engine, treasury := newTestServer(t)

	enterPlayer(t, srv, treasury, "player-1", 1)
	enterPlayer(t, srv, treasury, "player-2", 1)
	enterPlayer(t, srv, treasury, "player-3", 2)

	rec := doJSON(t, srv, http.MethodGet, "/tallies", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	requestID := decodeBody(t, rec)["request_id"].(string)
	require.NotEmpty(t, requestID)
	assert.Equal(t, raffle.StateCalculating, engine.State())

	// entries are refused while the draw is pending
	treasury.Credit("latecomer", testFee)
	rec = doJSON(t, srv, http.MethodPost, "/entries", map[string]any{
		"entrant": "latecomer", "charity": 1, "fee": testFee,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// word 0 = 4 selects index 4 mod 3 = 1
	rec = doJSON(t, srv, http.MethodPost, "/randomness/fulfill", map[string]any{
		"request_id": requestID,
		"words":      []string{"4", "10", "20", "30"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody(t, rec)
	assert.Equal(t, "player-2", result["winner"])
	assert.Equal(t, float64(1), result["charity_winner"])
	assert.Equal(t, float64(testJackpot), result["jackpot"])
	assert.Equal(t, raffle.StateClosed, engine.State())

	rec = doJSON(t, srv, http.MethodGet, "/winners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	winners := decodeBody(t, rec)
	assert.Equal(t, "player-2", winners["recent_winner"])
	assert.Equal(t, float64(2), winners["highest_donation"])

	// stale redelivery is rejected
	rec = doJSON(t, srv, http.MethodPost, "/randomness/fulfill", map[string]any{
		"request_id": requestID,
		"words":      []string{"4", "10", "20", "30"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_FulfillRejectsMalformedWords(t *testing.T) {
	srv, _, treasury := newTestServer(t)
	enterPlayer(t, srv, treasury, "player-1", 1)

	rec := doJSON(t, srv, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	requestID := decodeBody(t, rec)["request_id"].(string)

	rec = doJSON(t, srv, http.MethodPost, "/randomness/fulfill", map[string]any{
		"request_id": requestID,
		"words":      []string{"4", "not-a-number", "20", "30"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/randomness/fulfill", map[string]any{
		"request_id": requestID,
		"words":      []string{"4", "10"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Escrow(t *testing.T) {
	srv, _, treasury := newTestServer(t)

	// escrow before closure
	rec := doJSON(t, srv, http.MethodPost, "/escrow/fund", map[string]any{"funder": testFunder})
	assert.Equal(t, http.StatusConflict, rec.Code)

	enterPlayer(t, srv, treasury, "player-1", 3)
	enterPlayer(t, srv, treasury, "player-2", 3)
	rec = doJSON(t, srv, http.MethodPost, "/upkeep", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	requestID := decodeBody(t, rec)["request_id"].(string)
	rec = doJSON(t, srv, http.MethodPost, "/randomness/fulfill", map[string]any{
		"request_id": requestID,
		"words":      []string{"0", "1", "2", "3"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// only the funder may fund
	rec = doJSON(t, srv, http.MethodPost, "/escrow/fund", map[string]any{"funder": "impostor"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/escrow/fund", map[string]any{"funder": testFunder})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPost, "/escrow/release", map[string]any{"funder": testFunder})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// second release has nothing escrowed
	rec = doJSON(t, srv, http.MethodPost, "/escrow/release", map[string]any{"funder": testFunder})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_TransferFailureMapsToBadGateway(t *testing.T) {
	srv, _, treasury := newTestServer(t)

	treasury.Credit("player-1", testFee)
	treasury.FailTransferTo["charity-red"] = true
	rec := doJSON(t, srv, http.MethodPost, "/entries", map[string]any{
		"entrant": "player-1", "charity": 1, "fee": testFee,
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_StateAndEntrants(t *testing.T) {
	srv, _, treasury := newTestServer(t)
	enterPlayer(t, srv, treasury, "player-1", 2)

	rec := doJSON(t, srv, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody(t, rec)
	assert.Equal(t, "open", state["state"])
	assert.Equal(t, float64(1), state["entrants"])
	assert.Equal(t, float64(testJackpot), state["balance"])

	rec = doJSON(t, srv, http.MethodGet, "/entrants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entrants := decodeBody(t, rec)["entrants"].([]any)
	require.Len(t, entrants, 1)
	assert.Equal(t, "player-1", entrants[0])
}
