package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/warp/pkg/adapters/memory"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/pipeline"
	"github.com/aretw0/warp/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalog struct {
	stock map[string]int
}

type emptyCtx = pipeline.Context[pipeline.Empty, *catalog]

var (
	testKeys = domain.NewRegistry()
	keyQty   = domain.MustCreateKey[int](testKeys, "qty", nil)
)

func reserve(params map[string]any) (pipeline.Executor, error) {
	svc := &catalog{stock: map[string]int{"book": 3}}
	p := pipeline.Init(svc, pipeline.WithName("reserve"), pipeline.WithParams(params))
	return pipeline.ThenSet(p, keyQty, func(c *emptyCtx) (int, error) {
		var req struct {
			SKU string `mapstructure:"sku"`
			Qty int    `mapstructure:"qty"`
		}
		if err := c.DecodeParams(&req); err != nil {
			return 0, err
		}
		if req.Qty <= 0 {
			return 0, domain.NewValidationError("qty", "must be positive")
		}
		if _, ok := c.Services().stock[req.SKU]; !ok {
			return 0, domain.NotFound("sku %s", req.SKU)
		}
		return req.Qty, nil
	}), nil
}

func exploding(map[string]any) (pipeline.Executor, error) {
	return pipeline.Then(pipeline.Init(&catalog{}), func(*emptyCtx) (int, error) {
		return 0, errors.New("dial tcp 10.0.0.7:5432: connection refused")
	}), nil
}

func newTestServer() (*Server, *memory.Store) {
	store := memory.NewStore()
	routes := map[string]Route{
		"reserve": {
			Build:  reserve,
			View:   &domain.ViewSelector{SuccessView: "reserved", ErrorView: "form"},
			Params: schema.Schema{"sku": schema.String(), "qty": schema.Int()},
		},
		"exploding": {Build: exploding},
		"broken": {Build: func(map[string]any) (pipeline.Executor, error) {
			return nil, domain.NewValidationError("params", "missing")
		}},
	}
	s := NewServer(routes, WithRunStore(store), WithVersion("1.2.3"))
	ids := 0
	s.newID = func() string {
		ids++
		return "run-" + string(rune('0'+ids))
	}
	return s, store
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestExecute_Success(t *testing.T) {
	s, _ := newTestServer()
	h := s.Routes()

	w, out := do(t, h, http.MethodPost, "/pipelines/reserve", `{"sku":"book","qty":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "run-1", out["run_id"])
	assert.Equal(t, map[string]any{"kind": "named", "name": "reserved"}, out["view"])
	model := out["model"].(map[string]any)
	assert.Equal(t, float64(2), model["qty"])
	assert.Equal(t, false, model["isError"])
	assert.Nil(t, out["error"])
}

func TestExecute_ValidationRendersErrorView(t *testing.T) {
	s, _ := newTestServer()

	w, out := do(t, s.Routes(), http.MethodPost, "/pipelines/reserve", `{"sku":"book","qty":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "form", out["view"].(map[string]any)["name"])
	assert.Equal(t, "validation", out["error"].(map[string]any)["class"])
	assert.Equal(t, "qty: must be positive", out["error"].(map[string]any)["message"])
}

func TestExecute_StatusFailure(t *testing.T) {
	s, store := newTestServer()

	w, out := do(t, s.Routes(), http.MethodPost, "/pipelines/reserve", `{"sku":"lamp","qty":1}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "status", out["error"].(map[string]any)["class"])
	assert.Equal(t, "form", out["view"].(map[string]any)["name"])

	// The recorded failure is kept as a run.
	m, err := store.Load(t.Context(), out["run_id"].(string))
	require.NoError(t, err)
	assert.True(t, m.IsError())
}

func TestExecute_OtherFailureHidesDetails(t *testing.T) {
	s, _ := newTestServer()

	w, out := do(t, s.Routes(), http.MethodPost, "/pipelines/exploding", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	e := out["error"].(map[string]any)
	assert.Equal(t, "other", e["class"])
	assert.NotContains(t, e["message"], "10.0.0.7")
	assert.Nil(t, out["model"])
}

func TestExecute_RequestErrors(t *testing.T) {
	s, _ := newTestServer()
	h := s.Routes()

	w, _ := do(t, h, http.MethodPost, "/pipelines/unknown", "{}")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, h, http.MethodPost, "/pipelines/reserve", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := do(t, h, http.MethodPost, "/pipelines/broken", "{}")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation", out["error"].(map[string]any)["class"])
}

func TestRuns(t *testing.T) {
	s, _ := newTestServer()
	h := s.Routes()

	_, out := do(t, h, http.MethodPost, "/pipelines/reserve", `{"sku":"book","qty":1}`)
	id := out["run_id"].(string)

	w, model := do(t, h, http.MethodGet, "/runs/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), model["qty"])

	w, list := do(t, h, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{id}, list["runs"])

	w, _ = do(t, h, http.MethodDelete, "/runs/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = do(t, h, http.MethodGet, "/runs/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRuns_WithoutStore(t *testing.T) {
	h := NewHandler(map[string]Route{})
	w, _ := do(t, h, http.MethodGet, "/runs/x", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestInfoAndPipelines(t *testing.T) {
	s, _ := newTestServer()
	h := s.Routes()

	_, info := do(t, h, http.MethodGet, "/info", "")
	assert.Equal(t, "1.2.3", info["version"])

	_, list := do(t, h, http.MethodGet, "/pipelines", "")
	assert.Equal(t, []any{"broken", "exploding", "reserve"}, list["pipelines"])

	_, desc := do(t, h, http.MethodGet, "/pipelines/reserve", "")
	assert.Equal(t, "reserve", desc["name"])
	assert.Equal(t, map[string]any{"sku": "string", "qty": "int"}, desc["params"])

	_, desc = do(t, h, http.MethodGet, "/pipelines/exploding", "")
	assert.Equal(t, map[string]any{}, desc["params"])

	w, _ := do(t, h, http.MethodGet, "/pipelines/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, h, http.MethodOptions, "/pipelines/reserve", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
