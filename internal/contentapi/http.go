package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/xeipuuv/gojsonschema"
)

// HTTPSource fetches entities from the remote content API over HTTP.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// WithAPIKey sets a bearer token sent with every request.
func WithAPIKey(key string) HTTPOption {
	return func(s *HTTPSource) {
		s.apiKey = key
	}
}

// NewHTTPSource creates a content source against the given API base URL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Course(ctx context.Context, id string) (Course, error) {
	var c Course
	if err := s.fetch(ctx, "/api/cursos/"+url.PathEscape(id), compiledCourseSchema, &c); err != nil {
		return Course{}, fmt.Errorf("curso %s: %w", id, err)
	}
	return c, nil
}

func (s *HTTPSource) Subject(ctx context.Context, id string) (Subject, error) {
	var m Subject
	if err := s.fetch(ctx, "/api/materias/"+url.PathEscape(id), compiledSubjectSchema, &m); err != nil {
		return Subject{}, fmt.Errorf("materia %s: %w", id, err)
	}
	return m, nil
}

func (s *HTTPSource) Module(ctx context.Context, id string) (Module, error) {
	var m Module
	if err := s.fetch(ctx, "/api/modulos/"+url.PathEscape(id), compiledModuleSchema, &m); err != nil {
		return Module{}, fmt.Errorf("modulo %s: %w", id, err)
	}
	return m, nil
}

func (s *HTTPSource) fetch(ctx context.Context, path string, schema *gojsonschema.Schema, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	doc, err := firstDocument(body)
	if err != nil {
		return err
	}
	if err := validateEntity(schema, doc); err != nil {
		return err
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// firstDocument normalizes the API's one-or-many response shapes to a
// single object: a bare object passes through, an array yields its first
// element, an empty array means the id has no record.
func firstDocument(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if trimmed[0] != '[' {
		return json.RawMessage(trimmed), nil
	}
	var many []json.RawMessage
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(many) == 0 {
		return nil, ErrNotFound
	}
	return many[0], nil
}
