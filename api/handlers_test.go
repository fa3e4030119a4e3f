package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ehslabs/labledger/api"
	"github.com/ehslabs/labledger/ledger"
	"github.com/ehslabs/labledger/ledger/store"

	// Register the reagent families for URL resolution.
	_ "github.com/ehslabs/labledger/reagents"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	clock := ledger.NewManualClock(time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC))
	engine := ledger.NewService(store.NewTxMemory(), clock, zerolog.Nop())
	router := api.NewRouter(engine, api.NewAuthenticator(testSecret), zerolog.Nop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, sub, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, api.Claims{
		Name: sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/reagents/mm_reagents/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reagents/mm_reagents/", "not-a-jwt", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_HealthzIsOpen(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_CreateUseHistoryFlow(t *testing.T) {
	// GIVEN: An authenticated lab tech
	// WHEN: Creating a reagent batch, drawing volume, reading history
	// THEN: Every step round-trips with the right status codes

	srv := newTestServer(t)
	token := signToken(t, "tina", "lab_tech")
	base := srv.URL + "/api/reagents/mm_reagents"

	resp := doJSON(t, http.MethodPost, base+"/", token, map[string]any{
		"key":              "MM-2025-001",
		"name":             "Matrix modifier",
		"initial_quantity": 250.0,
		"unit":             "ml",
		"attributes":       map[string]string{"concentration": "1%"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		ID       string  `json:"id"`
		Quantity float64 `json:"quantity"`
		Active   bool    `json:"active"`
	}](t, resp)
	require.NotEmpty(t, created.ID)
	require.Equal(t, 250.0, created.Quantity)
	require.True(t, created.Active)

	resp = doJSON(t, http.MethodPatch, base+"/"+created.ID+"/quantity", token, map[string]any{
		"delta":  -60.0,
		"reason": "digestion batch 14",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	change := decode[struct {
		NewQuantity float64 `json:"new_quantity"`
	}](t, resp)
	require.Equal(t, 190.0, change.NewQuantity)

	resp = doJSON(t, http.MethodGet, base+"/"+created.ID+"/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]struct {
		Kind      string  `json:"kind"`
		Remaining float64 `json:"remaining"`
	}](t, resp)
	require.Len(t, entries, 2)
	require.Equal(t, "quantity_changed", entries[0].Kind)
	require.Equal(t, 190.0, entries[0].Remaining)
	require.Equal(t, "created", entries[1].Kind)

	resp = doJSON(t, http.MethodGet, base+"/"+created.ID+"/verify", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verify := decode[struct {
		Consistent bool `json:"consistent"`
	}](t, resp)
	require.True(t, verify.Consistent)
}

func TestAPI_ErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	tech := signToken(t, "tina", "lab_tech")
	readOnly := signToken(t, "ron", "read_only")
	base := srv.URL + "/api/reagents/mm_reagents"

	// read_only creating: 403
	resp := doJSON(t, http.MethodPost, base+"/", readOnly, map[string]any{
		"key": "X-1", "name": "x", "initial_quantity": 1.0, "unit": "ml",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// missing required fields: 400
	resp = doJSON(t, http.MethodPost, base+"/", tech, map[string]any{"name": "no key"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown id: 404
	resp = doJSON(t, http.MethodGet, base+"/no-such-id", tech, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// unknown family, and a family under the wrong domain: 404
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reagents/bogus_family/", tech, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/standards/mm_reagents/", tech, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	created := doJSON(t, http.MethodPost, base+"/", tech, map[string]any{
		"key": "MM-1", "name": "Batch", "initial_quantity": 10.0, "unit": "ml",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	batch := decode[struct {
		ID string `json:"id"`
	}](t, created)

	// duplicate key: 409
	resp = doJSON(t, http.MethodPost, base+"/", tech, map[string]any{
		"key": "MM-1", "name": "Again", "initial_quantity": 1.0, "unit": "ml",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// overdraw: 409
	resp = doJSON(t, http.MethodPatch, base+"/"+batch.ID+"/quantity", tech, map[string]any{
		"delta": -999.0, "reason": "overdraw",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// deactivate needs manager: 403, then manager succeeds and a further
	// mutation conflicts
	resp = doJSON(t, http.MethodPost, base+"/"+batch.ID+"/deactivate", tech, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	mgr := signToken(t, "mark", "manager")
	resp = doJSON(t, http.MethodPost, base+"/"+batch.ID+"/deactivate", mgr, map[string]any{"reason": "expired"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPatch, base+"/"+batch.ID+"/quantity", tech, map[string]any{
		"delta": -1.0, "reason": "late draw",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_UpdateFieldsAndNoOp(t *testing.T) {
	srv := newTestServer(t)
	tech := signToken(t, "tina", "lab_tech")
	base := srv.URL + "/api/reagents/pb_reagents"

	created := doJSON(t, http.MethodPost, base+"/", tech, map[string]any{
		"key": "PB-1", "name": "Lead digest reagent", "initial_quantity": 100.0, "unit": "ml",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	batch := decode[struct {
		ID string `json:"id"`
	}](t, created)

	resp := doJSON(t, http.MethodPut, base+"/"+batch.ID, tech, map[string]any{
		"name": "Lead digest reagent v2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[struct {
		Changed int  `json:"changed_fields"`
		NoOp    bool `json:"no_changes"`
	}](t, resp)
	require.Equal(t, 1, updated.Changed)
	require.False(t, updated.NoOp)

	resp = doJSON(t, http.MethodPut, base+"/"+batch.ID, tech, map[string]any{
		"name": "Lead digest reagent v2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	noop := decode[struct {
		Changed int  `json:"changed_fields"`
		NoOp    bool `json:"no_changes"`
	}](t, resp)
	require.Equal(t, 0, noop.Changed)
	require.True(t, noop.NoOp)
}

func TestAPI_ListFamilies(t *testing.T) {
	srv := newTestServer(t)
	token := signToken(t, "ron", "read_only")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/families", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	families := decode[[]struct {
		ID     string `json:"id"`
		Domain string `json:"domain"`
	}](t, resp)

	found := false
	for _, f := range families {
		if f.ID == "mm_reagents" && f.Domain == "reagents" {
			found = true
		}
	}
	require.True(t, found, "mm_reagents should be registered")
}

func TestAPI_UnknownRoleDegradesToReadOnly(t *testing.T) {
	srv := newTestServer(t)
	token := signToken(t, "eve", "superuser")
	base := srv.URL + "/api/reagents/mm_reagents"

	// Reads work, writes are forbidden.
	resp := doJSON(t, http.MethodGet, base+"/", token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/", token, map[string]any{
		"key": "X", "name": "x", "initial_quantity": 1.0, "unit": "ml",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
