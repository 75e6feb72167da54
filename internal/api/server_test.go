package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/refgen/internal/scheme"
)

// runeScheme encodes each rune as its code point.
type runeScheme struct{}

func (runeScheme) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (runeScheme) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		b.WriteRune(rune(id))
	}
	return b.String(), nil
}

type garbageScheme struct{ runeScheme }

func (garbageScheme) Decode([]int) (string, error) { return "\x00", nil }

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	reg := scheme.NewRegistry()
	require.NoError(t, reg.Register(scheme.CL100KBase, runeScheme{}))
	require.NoError(t, reg.Register("runes", runeScheme{}))
	require.NoError(t, reg.Register("garbage", garbageScheme{}))

	e := echo.New()
	NewServer(reg, []string{scheme.CL100KBase}).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndSchemes(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)

	rec = doJSON(t, e, http.MethodGet, "/v1/schemes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got SchemesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{scheme.CL100KBase, "garbage", "runes"}, got.Schemes)
}

func TestFixturesUsesDefaultSchemes(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/fixtures", `{"input":"a,b"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got FixtureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 10, got.MaxTokens)
	require.Len(t, got.Records, 1)
	r := got.Records[0]
	assert.Equal(t, scheme.CL100KBase, r.Scheme)
	assert.Equal(t, []int{'a', ',', 'b'}, r.Output)
	assert.Equal(t, []int{'a', ',', 'b'}, r.OutputMaxTokens)
	assert.Equal(t, []string{"a,b", "[97, 44, 98]", "[97, 44, 98]"}, r.Row)
}

func TestFixturesExplicitSchemesAndMaxTokens(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/fixtures", `{"input":"hello","schemes":["runes","cl100k_base"],"max_tokens":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got FixtureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Records, 2)
	assert.Equal(t, "runes", got.Records[0].Scheme)
	assert.Equal(t, []int{'h', 'e'}, got.Records[0].OutputMaxTokens)
	assert.Equal(t, scheme.CL100KBase, got.Records[1].Scheme)
}

func TestFixturesEmptyInputIsValid(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/fixtures", `{"input":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"output":[]`)
}

func TestFixturesErrors(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid json", "{", http.StatusBadRequest},
		{"missing input", `{}`, http.StatusBadRequest},
		{"unknown field", `{"input":"x","prompt":"y"}`, http.StatusBadRequest},
		{"negative max tokens", `{"input":"x","max_tokens":-1}`, http.StatusBadRequest},
		{"unknown scheme", `{"input":"x","schemes":["nope"]}`, http.StatusNotFound},
		{"no prefix", `{"input":"x","schemes":["garbage"]}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		rec := doJSON(t, e, http.MethodPost, "/v1/fixtures", tc.body)
		assert.Equal(t, tc.code, rec.Code, "%s: %s", tc.name, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"error"`, tc.name)
	}
}

func TestModelFixture(t *testing.T) {
	t.Parallel()
	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/v1/models/gpt-4-0613/fixture", `{"input":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got FixtureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Records, 1)
	assert.Equal(t, scheme.CL100KBase, got.Records[0].Scheme)

	rec = doJSON(t, e, http.MethodPost, "/v1/models/llama/fixture", `{"input":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// gpt-4o maps to o200k_base, which this registry does not hold.
	rec = doJSON(t, e, http.MethodPost, "/v1/models/gpt-4o/fixture", `{"input":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/models/gpt-4/fixture", `{"input":"hi","schemes":["runes"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// countingScheme counts Encode calls.
type countingScheme struct {
	runeScheme
	encodes *atomic.Int64
}

func (c countingScheme) Encode(text string) ([]int, error) {
	c.encodes.Add(1)
	return c.runeScheme.Encode(text)
}

func TestFixturesReuseCachedRecords(t *testing.T) {
	t.Parallel()
	var encodes atomic.Int64
	reg := scheme.NewRegistry()
	require.NoError(t, reg.Register("counting", countingScheme{encodes: &encodes}))
	e := echo.New()
	NewServer(reg, []string{"counting"}).Register(e)

	for range 3 {
		rec := doJSON(t, e, http.MethodPost, "/v1/fixtures", `{"input":"abc"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, int64(1), encodes.Load())

	// A different bound is a different record.
	rec := doJSON(t, e, http.MethodPost, "/v1/fixtures", `{"input":"abc","max_tokens":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got FixtureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []int{97}, got.Records[0].OutputMaxTokens)
	assert.Equal(t, int64(2), encodes.Load())
}
