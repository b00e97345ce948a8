// Package testing provides test utilities for relic.
package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/zoobzio/relic"
)

// ResponseCapture wraps httptest.ResponseRecorder with convenient access methods.
type ResponseCapture struct {
	*httptest.ResponseRecorder
}

// NewResponseCapture creates a new ResponseCapture.
func NewResponseCapture() *ResponseCapture {
	return &ResponseCapture{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

// StatusCode returns the recorded status code.
func (r *ResponseCapture) StatusCode() int {
	return r.Code
}

// BodyBytes returns the response body as bytes.
func (r *ResponseCapture) BodyBytes() []byte {
	return r.Body.Bytes()
}

// BodyString returns the response body as a string.
func (r *ResponseCapture) BodyString() string {
	return r.Body.String()
}

// DecodeJSON decodes the response body into the provided value.
func (r *ResponseCapture) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body.Bytes(), v)
}

// ContentType returns the Content-Type header value.
func (r *ResponseCapture) ContentType() string {
	return r.Header().Get("Content-Type")
}

// RequestBuilder provides a fluent interface for building test requests.
type RequestBuilder struct {
	method  string
	path    string
	body    io.Reader
	headers map[string]string
	ctx     context.Context
}

// NewRequestBuilder creates a new RequestBuilder with the given method and path.
func NewRequestBuilder(method, path string) *RequestBuilder {
	return &RequestBuilder{
		method:  method,
		path:    path,
		headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

// WithBody sets the request body from a reader.
func (b *RequestBuilder) WithBody(body io.Reader) *RequestBuilder {
	b.body = body
	return b
}

// WithJSON sets the request body as JSON-encoded data and the matching
// Content-Type.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("rtesting: failed to marshal JSON: %v", err))
	}
	b.body = bytes.NewReader(data)
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithForm sets the request body as form-encoded values and the matching
// Content-Type.
func (b *RequestBuilder) WithForm(values url.Values) *RequestBuilder {
	b.body = strings.NewReader(values.Encode())
	b.headers["Content-Type"] = "application/x-www-form-urlencoded"
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithAccept sets the Accept header.
func (b *RequestBuilder) WithAccept(mime string) *RequestBuilder {
	b.headers["Accept"] = mime
	return b
}

// WithContext sets the request context.
func (b *RequestBuilder) WithContext(ctx context.Context) *RequestBuilder {
	b.ctx = ctx
	return b
}

// Build creates the http.Request.
func (b *RequestBuilder) Build() *http.Request {
	req := httptest.NewRequest(b.method, b.path, b.body)
	req = req.WithContext(b.ctx)
	for key, value := range b.headers {
		req.Header.Set(key, value)
	}
	return req
}

// TestEngine creates a pre-configured engine for testing.
func TestEngine(resources ...relic.Resource) *relic.Engine {
	engine := relic.NewEngine(relic.DefaultConfig().WithHost("localhost").WithPort(0))
	if len(resources) > 0 {
		engine.WithResources(resources...)
	}
	return engine
}

// TestEngineWithAuth creates an engine with the given identity extractor.
func TestEngineWithAuth(extractor relic.IdentityExtractor, resources ...relic.Resource) *relic.Engine {
	return TestEngine(resources...).WithIdentityExtractor(extractor)
}

// ServeRequest is a convenience function that executes a request against an engine.
func ServeRequest(engine *relic.Engine, method, path string, body any) *ResponseCapture {
	builder := NewRequestBuilder(method, path)
	if body != nil {
		builder.WithJSON(body)
	}
	req := builder.Build()

	capture := NewResponseCapture()
	engine.Router().ServeHTTP(capture, req)
	return capture
}

// ServeRequestWithHeaders executes a request with custom headers.
func ServeRequestWithHeaders(engine *relic.Engine, method, path string, body any, headers map[string]string) *ResponseCapture {
	builder := NewRequestBuilder(method, path)
	if body != nil {
		builder.WithJSON(body)
	}
	for key, value := range headers {
		builder.WithHeader(key, value)
	}
	req := builder.Build()

	capture := NewResponseCapture()
	engine.Router().ServeHTTP(capture, req)
	return capture
}

// MockIdentity implements relic.Identity for testing.
type MockIdentity struct {
	id    string
	roles []string
}

// NewMockIdentity creates a new MockIdentity with the given ID.
func NewMockIdentity(id string) *MockIdentity {
	return &MockIdentity{
		id:    id,
		roles: make([]string, 0),
	}
}

// ID returns the identity ID.
func (m *MockIdentity) ID() string { return m.id }

// HasRole checks if the identity has the given role.
func (m *MockIdentity) HasRole(role string) bool {
	for _, r := range m.roles {
		if r == role {
			return true
		}
	}
	return false
}

// Roles returns the identity roles.
func (m *MockIdentity) Roles() []string { return m.roles }

// WithRoles sets the roles.
func (m *MockIdentity) WithRoles(roles ...string) *MockIdentity {
	m.roles = roles
	return m
}

// Extractor returns an IdentityExtractor that always yields this identity.
func (m *MockIdentity) Extractor() relic.IdentityExtractor {
	return func(_ *http.Request) (relic.Identity, error) {
		return m, nil
	}
}

// AssertStatus asserts the response has the expected status code.
func AssertStatus(t testing.TB, capture *ResponseCapture, expected int) {
	t.Helper()
	if capture.StatusCode() != expected {
		t.Errorf("expected status %d, got %d (body: %s)", expected, capture.StatusCode(), capture.BodyString())
	}
}

// AssertJSON asserts the response body matches the expected value when decoded as JSON.
func AssertJSON(t testing.TB, capture *ResponseCapture, expected any) {
	t.Helper()
	expectedBytes, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected value: %v", err)
	}
	actualBytes := capture.BodyBytes()

	var expectedMap, actualMap any
	err = json.Unmarshal(expectedBytes, &expectedMap)
	if err != nil {
		t.Fatalf("failed to unmarshal expected JSON: %v", err)
	}
	err = json.Unmarshal(actualBytes, &actualMap)
	if err != nil {
		t.Fatalf("failed to unmarshal actual JSON: %v", err)
	}

	expectedNorm, err := json.Marshal(expectedMap)
	if err != nil {
		t.Fatalf("failed to normalize expected JSON: %v", err)
	}
	actualNorm, err := json.Marshal(actualMap)
	if err != nil {
		t.Fatalf("failed to normalize actual JSON: %v", err)
	}

	if !bytes.Equal(expectedNorm, actualNorm) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedNorm, actualNorm)
	}
}

// AssertErrorTitle asserts the response carries the standard error
// envelope with the given title.
func AssertErrorTitle(t testing.TB, capture *ResponseCapture, expectedTitle string) {
	t.Helper()
	var resp struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := capture.DecodeJSON(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Title != expectedTitle {
		t.Errorf("expected error title %q, got %q", expectedTitle, resp.Title)
	}
}

// AssertContentType asserts the response has the expected Content-Type.
func AssertContentType(t testing.TB, capture *ResponseCapture, expected string) {
	t.Helper()
	if capture.ContentType() != expected {
		t.Errorf("expected Content-Type %q, got %q", expected, capture.ContentType())
	}
}
