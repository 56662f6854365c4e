package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoMatch/internal/config"
	"GoMatch/internal/patternset"
	"GoMatch/internal/storage"
	"GoMatch/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *Manager) {
	t.Helper()
	mgr := NewManager(quietLogger())
	h := NewHandler(mgr, config.Default().Scan, quietLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mgr
}

func doJSON(t *testing.T, method, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestManager_CreateGetDelete(t *testing.T) {
	mgr := NewManager(quietLogger())

	inst, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)
	assert.Equal(t, 9, inst.Matcher.Len())

	_, err = mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	assert.ErrorIs(t, err, ErrPatternSetExists)

	got, err := mgr.Get("classic")
	require.NoError(t, err)
	assert.Same(t, inst, got)
	assert.Equal(t, []string{"classic"}, mgr.List())

	require.NoError(t, mgr.Delete("classic"))
	assert.ErrorIs(t, mgr.Delete("classic"), ErrPatternSetNotFound)
	_, err = mgr.Get("classic")
	assert.ErrorIs(t, err, ErrPatternSetNotFound)
}

func TestManager_CreateInvalid(t *testing.T) {
	mgr := NewManager(quietLogger())

	_, err := mgr.Create(&patternset.Definition{Name: "empty"}, SourceAPI)
	assert.ErrorIs(t, err, patternset.ErrNoPatterns)
	assert.Empty(t, mgr.List())
}

func TestManager_LoadDir(t *testing.T) {
	testutil.WithTempDir(t, func(dir string) {
		testutil.WritePatternFile(t, dir, "colors.txt", "# colors\nred\nblue\tBLUE\n")
		testutil.WritePatternFile(t, dir, "cities.yaml", `
name: cities
content: tokens
patterns:
  - text: new york
  - text: paris
`)

		mgr := NewManager(quietLogger())
		require.NoError(t, mgr.LoadDir(dir))
		assert.Equal(t, []string{"cities", "colors"}, mgr.List())

		inst, err := mgr.Get("colors")
		require.NoError(t, err)
		assert.Equal(t, SourceFile, inst.Source)
		assert.Equal(t, 2, inst.Matcher.Len())
	})
}

func TestManager_InfoCounters(t *testing.T) {
	mgr := NewManager(quietLogger())
	inst, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)

	inst.RecordScan(3)
	inst.RecordScan(2)

	info := inst.Info()
	assert.Equal(t, int64(2), info["scans"])
	assert.Equal(t, int64(5), info["hits"])
	assert.Equal(t, patternset.ContentBytes, info["content"])
}

func TestHandler_Lifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/patternsets", testutil.ClassicDefinition("classic"))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "classic", body["name"])
	assert.Equal(t, float64(9), body["pattern_count"])

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/patternsets", testutil.ClassicDefinition("classic"))
	assert.Equal(t, http.StatusConflict, status)

	status, body = doJSON(t, http.MethodGet, srv.URL+"/patternsets", nil)
	require.Equal(t, http.StatusOK, status)
	sets := body["patternsets"].([]interface{})
	require.Len(t, sets, 1)
	assert.Equal(t, "classic", sets[0].(map[string]interface{})["name"])

	status, body = doJSON(t, http.MethodGet, srv.URL+"/patternsets/classic", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["patterns"], 9)

	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/patternsets/classic", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/patternsets/classic", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/patternsets/classic", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_CreateRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/patternsets", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/patternsets", map[string]interface{}{
		"name":    "bad",
		"content": "pixels",
		"patterns": []map[string]string{
			{"text": "x"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"].(map[string]interface{})["message"], "unknown content type")
}

func TestHandler_Scan(t *testing.T) {
	srv, mgr := newTestServer(t)
	_, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/patternsets/classic/scan", map[string]interface{}{
		"text":    "he she himan",
		"summary": true,
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(7), body["total_hits"])
	assert.Equal(t, false, body["truncated"])

	hits := body["hits"].([]interface{})
	first := hits[0].(map[string]interface{})
	assert.Equal(t, "he", first["pattern"])
	assert.Equal(t, float64(0), first["start"])
	assert.Equal(t, float64(2), first["end"])

	top := body["top_patterns"].([]interface{})
	assert.Equal(t, "he", top[0].(map[string]interface{})["pattern"])
	assert.Equal(t, float64(2), top[0].(map[string]interface{})["count"])

	inst, _ := mgr.Get("classic")
	assert.Equal(t, int64(1), inst.Info()["scans"])
	assert.Equal(t, int64(7), inst.Info()["hits"])
}

func TestHandler_ScanTokens(t *testing.T) {
	srv, mgr := newTestServer(t)
	_, err := mgr.Create(testutil.PhraseDefinition("places"), SourceAPI)
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/patternsets/places/scan", map[string]interface{}{
		"text": "Flying from New  York City",
	})
	require.Equal(t, http.StatusOK, status, body)

	var got []string
	for _, h := range body["hits"].([]interface{}) {
		got = append(got, h.(map[string]interface{})["pattern"].(string))
	}
	assert.Equal(t, []string{"new york", "york", "new york city"}, got)
}

func TestHandler_ScanMatchLimit(t *testing.T) {
	srv, mgr := newTestServer(t)
	_, err := mgr.Create(&patternset.Definition{
		Name:     "a",
		Patterns: []patternset.Pattern{{Text: "a"}},
	}, SourceAPI)
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/patternsets/a/scan", map[string]interface{}{
		"text":        strings.Repeat("a", 100),
		"max_matches": 5,
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["truncated"])
	assert.Equal(t, float64(5), body["total_hits"])
}

func TestHandler_ScanTooLarge(t *testing.T) {
	mgr := NewManager(quietLogger())
	_, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)

	scan := config.Default().Scan
	scan.MaxInputBytes = 16
	h := NewHandler(mgr, scan, quietLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/patternsets/classic/scan", map[string]interface{}{
		"text": strings.Repeat("x", 17),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/patternsets/classic/scan", map[string]interface{}{
		"text": strings.Repeat("x", 1000),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

func TestHandler_ScanEscapedTextAtLimit(t *testing.T) {
	mgr := NewManager(quietLogger())
	_, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)

	scan := config.Default().Scan
	scan.MaxInputBytes = 4096
	h := NewHandler(mgr, scan, quietLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Each control byte is sent as \u0001, so the body is about 24KiB.
	text := strings.Repeat("\x01", 4095) + "h"
	status, out := doJSON(t, http.MethodPost, srv.URL+"/patternsets/classic/scan", map[string]interface{}{
		"text": text,
	})
	require.Equal(t, http.StatusOK, status, "%v", out)

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/patternsets/classic/scan", map[string]interface{}{
		"text": text + "\x01",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

func TestHandler_ScanUnknownSet(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/patternsets/missing/scan", map[string]interface{}{
		"text": "anything",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_Lookup(t *testing.T) {
	srv, mgr := newTestServer(t)
	_, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/patternsets/classic/lookup?text=her", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, true, body["is_prefix"])

	status, body = doJSON(t, http.MethodGet, srv.URL+"/patternsets/classic/lookup?text=hima", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["found"])
	assert.Equal(t, true, body["is_prefix"])

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/patternsets/classic/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_PrettyOutput(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/patternsets?pretty=true")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"patternsets\"")
}

func TestHandler_ConcurrentScans(t *testing.T) {
	srv, mgr := newTestServer(t)
	_, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, _ := json.Marshal(map[string]string{"text": "ushers and his hermit himan"})
			resp, err := http.Post(srv.URL+"/patternsets/classic/scan", "application/json", bytes.NewReader(data))
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- io.ErrUnexpectedEOF
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	inst, _ := mgr.Get("classic")
	assert.Equal(t, int64(16), inst.Info()["scans"])
}

func TestHandler_DeleteDuringUse(t *testing.T) {
	srv, mgr := newTestServer(t)
	inst, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)

	status, _ := doJSON(t, http.MethodDelete, srv.URL+"/patternsets/classic", nil)
	require.Equal(t, http.StatusOK, status)

	// A reference taken before the delete keeps working.
	hits, err := inst.Scan(nil, "she")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestHandler_MultiScan(t *testing.T) {
	srv, mgr := newTestServer(t)
	_, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)
	_, err = mgr.Create(testutil.PhraseDefinition("places"), SourceAPI)
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/scan", map[string]interface{}{
		"text": "she moved to new york",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "success", body["status"])

	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "classic", results[0].(map[string]interface{})["name"])
	assert.Equal(t, "places", results[1].(map[string]interface{})["name"])

	status, body = doJSON(t, http.MethodPost, srv.URL+"/scan", map[string]interface{}{
		"text":        "she",
		"patternsets": []string{"classic", "missing"},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "partial", body["status"])
	assert.Len(t, body["errors"], 1)

	status, body = doJSON(t, http.MethodPost, srv.URL+"/scan", map[string]interface{}{
		"text":        "she",
		"patternsets": []string{"missing"},
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "error", body["status"])
}

func TestHandler_MultiScanNoSets(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/scan", map[string]interface{}{"text": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestManager_PersistsAPISets(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStore(dir)
	require.NoError(t, err)

	mgr := NewManager(quietLogger())
	mgr.SetStore(store)

	inst, err := mgr.Create(testutil.ClassicDefinition("classic"), SourceAPI)
	require.NoError(t, err)
	assert.NotEmpty(t, inst.Checksum)
	assert.True(t, store.Exists("classic"))

	// A fresh process sees the set again, still owned by the API.
	reloaded := NewManager(quietLogger())
	reloaded.SetStore(store)
	require.NoError(t, reloaded.LoadDir(dir))
	again, err := reloaded.Get("classic")
	require.NoError(t, err)
	assert.Equal(t, inst.Matcher.Patterns(), again.Matcher.Patterns())
	assert.Equal(t, SourceAPI, again.Source)
	assert.Equal(t, inst.Checksum, again.Checksum)

	// Deleting after the restart is durable.
	require.NoError(t, reloaded.Delete("classic"))
	assert.False(t, store.Exists("classic"))
}

func TestManager_DeleteKeepsDeployedFiles(t *testing.T) {
	dir := t.TempDir()
	shipped := testutil.WritePatternFile(t, dir, "shipped.yaml", "patterns:\n  - text: red\n")
	colors := testutil.WritePatternFile(t, dir, "colors.txt", "blue\n")
	store, err := storage.NewStore(dir)
	require.NoError(t, err)

	mgr := NewManager(quietLogger())
	mgr.SetStore(store)
	require.NoError(t, mgr.LoadDir(dir))

	inst, err := mgr.Get("shipped")
	require.NoError(t, err)
	assert.Equal(t, SourceFile, inst.Source)
	assert.Empty(t, inst.Checksum)

	require.NoError(t, mgr.Delete("shipped"))
	require.NoError(t, mgr.Delete("colors"))
	assert.FileExists(t, shipped)
	assert.FileExists(t, colors)

	// The deployed sets come back with the next load.
	again := NewManager(quietLogger())
	again.SetStore(store)
	require.NoError(t, again.LoadDir(dir))
	assert.Equal(t, []string{"colors", "shipped"}, again.List())
}

func TestManager_CreateDoesNotOverwriteDeployedFile(t *testing.T) {
	dir := t.TempDir()
	// The file name and the set name differ, so the API sees no conflict.
	shipped := testutil.WritePatternFile(t, dir, "other.yaml", "name: renamed\npatterns:\n  - text: red\n")
	store, err := storage.NewStore(dir)
	require.NoError(t, err)

	mgr := NewManager(quietLogger())
	mgr.SetStore(store)
	require.NoError(t, mgr.LoadDir(dir))

	_, err = mgr.Create(testutil.ClassicDefinition("other"), SourceAPI)
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Equal(t, []string{"renamed"}, mgr.List())

	data, err := os.ReadFile(shipped)
	require.NoError(t, err)
	assert.Contains(t, string(data), "renamed")
}
