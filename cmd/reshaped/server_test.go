package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(t *testing.T) *serverState {
	t.Helper()
	dir := t.TempDir()
	spec := `[{"operation":"modify-overwrite","spec":{"rating":"=abs"}}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.json"), []byte(spec), 0o644))

	state, err := newServerState(context.Background(), dir, false)
	require.NoError(t, err)
	return state
}

func TestHandleSpecs(t *testing.T) {
	state := testState(t)

	rec := httptest.NewRecorder()
	state.handleSpecs(rec, httptest.NewRequest(http.MethodGet, "/api/specs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"ratings"}, names)
}

func TestHandleTransformNamed(t *testing.T) {
	state := testState(t)

	body := strings.NewReader(`{"rating": -4.5}`)
	rec := httptest.NewRecorder()
	state.handleTransformNamed(rec, httptest.NewRequest(http.MethodPost, "/api/transform/ratings", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 4.5, result["rating"])
}

func TestHandleTransformNamedMissingSpec(t *testing.T) {
	state := testState(t)

	rec := httptest.NewRecorder()
	state.handleTransformNamed(rec, httptest.NewRequest(http.MethodPost, "/api/transform/nope", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTransformInline(t *testing.T) {
	state := testState(t)

	body := strings.NewReader(`{
		"chain": [{"operation":"modify-default","spec":{"status":"new"}}],
		"input": {"id": 1}
	}`)
	rec := httptest.NewRecorder()
	state.handleTransform(rec, httptest.NewRequest(http.MethodPost, "/api/transform", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "new", result["status"])
	assert.Equal(t, float64(1), result["id"])
}

func TestHandleTransformInlineRejectsBadChain(t *testing.T) {
	state := testState(t)

	body := strings.NewReader(`{"chain": [{"operation":"unknown","spec":{}}], "input": {}}`)
	rec := httptest.NewRecorder()
	state.handleTransform(rec, httptest.NewRequest(http.MethodPost, "/api/transform", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSpecPutStoresAndServes(t *testing.T) {
	state := testState(t)

	spec := `[{"operation":"modify-overwrite","spec":{"name":"=toUpper"}}]`
	rec := httptest.NewRecorder()
	state.handleSpec(rec, httptest.NewRequest(http.MethodPut, "/api/specs/upper", strings.NewReader(spec)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	state.handleTransformNamed(rec, httptest.NewRequest(http.MethodPost, "/api/transform/upper", strings.NewReader(`{"name":"bob"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "BOB", result["name"])
}

func TestHandleSpecPutRejectsInvalid(t *testing.T) {
	state := testState(t)

	rec := httptest.NewRecorder()
	state.handleSpec(rec, httptest.NewRequest(http.MethodPut, "/api/specs/bad", strings.NewReader("not a spec")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
