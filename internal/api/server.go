// Package api serves fixture records over HTTP.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/refgen/internal/fixture"
	"github.com/samcharles93/refgen/internal/scheme"
)

const (
	// maxInputBytes bounds request bodies.
	maxInputBytes = 1 << 20
	// recordCacheSize is the number of fixture records kept across requests.
	recordCacheSize = 4096
)

// Registry is the subset of scheme.Registry the server needs.
type Registry interface {
	Get(name string) (scheme.Scheme, error)
	Names() []string
}

type recordKey struct {
	scheme    string
	maxTokens int
	input     string
}

type Server struct {
	registry         Registry
	defaultSchemes   []string
	defaultMaxTokens int
	records          *lru.Cache[recordKey, fixture.Record]
}

// NewServer builds a server. Requests that name no schemes use
// defaultSchemes.
func NewServer(registry Registry, defaultSchemes []string) *Server {
	records, _ := lru.New[recordKey, fixture.Record](recordCacheSize)
	return &Server{
		registry:         registry,
		defaultSchemes:   defaultSchemes,
		defaultMaxTokens: fixture.DefaultMaxTokens,
		records:          records,
	}
}

// build returns the cached record for (name, input, maxTokens) or computes it.
// Failures are not cached.
func (s *Server) build(name string, sch scheme.Scheme, input string, maxTokens int) (fixture.Record, error) {
	key := recordKey{scheme: name, maxTokens: maxTokens, input: input}
	if rec, ok := s.records.Get(key); ok {
		return rec, nil
	}
	rec, err := fixture.Build(sch, input, maxTokens)
	if err != nil {
		return fixture.Record{}, err
	}
	s.records.Add(key, rec)
	return rec, nil
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/schemes", s.handleListSchemes)
	e.POST("/v1/fixtures", s.handleFixtures)
	e.POST("/v1/models/:model/fixture", s.handleModelFixture)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSchemes(c *echo.Context) error {
	return c.JSON(http.StatusOK, SchemesResponse{Schemes: s.registry.Names()})
}

func (s *Server) handleFixtures(c *echo.Context) error {
	req, err := decodeJSON[FixtureRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	names := req.Schemes
	if len(names) == 0 {
		names = s.defaultSchemes
	}
	return s.writeRecords(c, req, names)
}

func (s *Server) handleModelFixture(c *echo.Context) error {
	model := c.Param("model")
	name, err := scheme.SchemeForModel(model)
	if err != nil {
		return writeNotFound(c, err.Error())
	}
	req, err := decodeJSON[FixtureRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if len(req.Schemes) > 0 {
		return writeBadRequest(c, "schemes may not be set when a model is given")
	}
	return s.writeRecords(c, req, []string{name})
}

func (s *Server) writeRecords(c *echo.Context, req FixtureRequest, names []string) error {
	if req.Input == nil {
		return writeBadRequest(c, "input is required")
	}
	maxTokens := s.defaultMaxTokens
	if req.MaxTokens != nil {
		if *req.MaxTokens < 0 {
			return writeBadRequest(c, "max_tokens must be >= 0")
		}
		maxTokens = *req.MaxTokens
	}

	resp := FixtureResponse{MaxTokens: maxTokens, Records: make([]FixtureRecord, 0, len(names))}
	for _, name := range names {
		sch, err := s.registry.Get(name)
		if err != nil {
			return writeNotFound(c, err.Error())
		}
		rec, err := s.build(name, sch, *req.Input, maxTokens)
		if errors.Is(err, fixture.ErrNoPrefix) {
			return writeError(c, http.StatusUnprocessableEntity, "no_prefix_error", err.Error())
		}
		if err != nil {
			return writeError(c, http.StatusInternalServerError, "server_error", name+": "+err.Error())
		}
		resp.Records = append(resp.Records, FixtureRecord{
			Scheme:          name,
			Input:           rec.Input,
			Output:          rec.Output,
			OutputMaxTokens: rec.Truncated,
			Row:             rec.Row(),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r, maxInputBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, errors.New("request body is empty")
		}
		return out, err
	}
	return out, nil
}
