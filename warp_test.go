package warp_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/warp"
	"github.com/aretw0/warp/internal/config"
	"github.com/aretw0/warp/pkg/adapters/memory"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/persistence/middleware"
	"github.com/aretw0/warp/pkg/script"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func TestRuntime_InMemory(t *testing.T) {
	rt, err := warp.New(config.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	s, err := script.New("double", "return params.n * 2")
	require.NoError(t, err)

	m, err := rt.ScriptPipeline(s, map[string]any{"n": 21}).Execute(context.Background())
	require.NoError(t, err)
	v, _ := domain.Get(m, script.ResultKey)
	assert.Equal(t, 42, v)

	assert.Equal(t, 1, testutil.CollectAndCount(rt.Registry, "warp_pipeline_executions_total"))
}

func TestRuntime_DatabaseAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.DatabaseDSN = ":memory:"
	cfg.RedisAddr = mr.Addr()

	rt, err := warp.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	_, err = rt.DB.Exec(`CREATE TABLE audit (entry TEXT)`)
	require.NoError(t, err)

	s, err := script.New("audit", "return 'ok'")
	require.NoError(t, err)

	p := rt.ScriptPipeline(s, nil)
	assert.True(t, p.Transactional())

	m, err := p.Execute(context.Background())
	require.NoError(t, err)

	id := "run-1"
	require.NoError(t, rt.Store.Save(context.Background(), id, m))
	assert.True(t, mr.Exists(cfg.RedisPrefix+"run:"+id))
	assert.False(t, mr.Exists(cfg.RedisPrefix+"lock:audit"), "the lock is released after the execution")
}

func TestRuntime_ProtectedRunStore(t *testing.T) {
	cfg := config.Default()
	cfg.RunKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	cfg.MaskKeys = []string{"password"}

	underlying := memory.NewStore()
	rt, err := warp.New(cfg, warp.WithRunStore(underlying))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	ctx := context.Background()
	m := domain.NewModel()
	m.Set("user", "ana")
	m.Set("password", "hunter2")
	require.NoError(t, rt.Store.Save(ctx, "run-1", m))

	raw, err := underlying.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{middleware.EncryptedField}, raw.Keys())

	loaded, err := rt.Store.Load(ctx, "run-1")
	require.NoError(t, err)
	user, _ := loaded.Value("user")
	password, _ := loaded.Value("password")
	assert.Equal(t, "ana", user)
	assert.Equal(t, middleware.Mask, password)
}

func TestRuntime_SerializeRuns(t *testing.T) {
	cfg := config.Default()
	cfg.SerializeRuns = true
	rt, err := warp.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.IsType(t, &memory.Locker{}, rt.Locker)

	s, err := script.New("one", "return 1")
	require.NoError(t, err)
	p := rt.ScriptPipeline(s, nil)
	require.True(t, p.Transactional())

	m, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, m.IsError())
	assert.Equal(t, 1, testutil.CollectAndCount(rt.Registry, "warp_pipeline_transactions_total"))
}

func TestRuntime_RedisUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := warp.New(cfg)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestRuntime_ScriptRoutes(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"greet.lua": "-- @param name string\nreturn \"hello \" .. params.name",
		"guard.lua": `fail_status(403, "forbidden")`,
		"notes.txt": "ignored",
	})

	rt, err := warp.New(config.Default())
	require.NoError(t, err)

	routes, err := rt.ScriptRoutes(dir)
	require.NoError(t, err)
	assert.Len(t, routes, 2)

	h := rt.Handler(routes).Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pipelines/greet", strings.NewReader(`{"name":"warp"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"result":"hello warp"`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pipelines/greet", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "name: required")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pipelines/greet", nil))
	assert.JSONEq(t, `{"name":"greet","params":{"name":"string"}}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pipelines/guard", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err = rt.ScriptRoutes(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadScripts_ReportsBrokenFiles(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"ok.lua":     "return 1",
		"broken.lua": "return (",
	})

	_, err := warp.LoadScripts(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.lua")
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(warp.Version))
}

func TestExamples_Load(t *testing.T) {
	cfg, err := config.Load(filepath.Join("examples", "warp.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.SerializeRuns)
	assert.Equal(t, []string{"password", "^card_"}, cfg.MaskKeys)

	scripts, err := warp.LoadScripts(cfg.ScriptsDir)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "checkout", scripts[0].Name())
	assert.Equal(t, "int", scripts[0].Params()["qty"].Name())
}
