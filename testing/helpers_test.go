package testing

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/zoobzio/relic"
)

type echoResource struct{}

func (e *echoResource) Routes() map[string]relic.Route {
	return map[string]relic.Route{"/echo": {}}
}

func (e *echoResource) OnGet(req *relic.Request) (any, error) {
	message := req.Header.Get("X-Message")
	if message == "" {
		message = "hello"
	}
	return map[string]any{"message": message}, nil
}

func TestResponseCapture(t *testing.T) {
	capture := NewResponseCapture()
	capture.WriteHeader(http.StatusCreated)
	capture.Write([]byte(`{"message":"test"}`))

	if capture.StatusCode() != http.StatusCreated {
		t.Errorf("expected status 201, got %d", capture.StatusCode())
	}

	if capture.BodyString() != `{"message":"test"}` {
		t.Errorf("unexpected body: %s", capture.BodyString())
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := capture.DecodeJSON(&resp); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if resp.Message != "test" {
		t.Errorf("expected message 'test', got %q", resp.Message)
	}
}

func TestResponseCapture_ContentType(t *testing.T) {
	capture := NewResponseCapture()
	capture.Header().Set("Content-Type", "application/json")
	capture.WriteHeader(http.StatusOK)

	if capture.ContentType() != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", capture.ContentType())
	}
}

func TestResponseCapture_BodyBytes(t *testing.T) {
	capture := NewResponseCapture()
	capture.WriteHeader(http.StatusOK)
	capture.Write([]byte(`{"data":"test"}`))

	bodyBytes := capture.BodyBytes()
	if string(bodyBytes) != `{"data":"test"}` {
		t.Errorf("expected body bytes, got %s", string(bodyBytes))
	}
}

func TestRequestBuilder(t *testing.T) {
	req := NewRequestBuilder("POST", "/users").
		WithHeader("Authorization", "Bearer token").
		WithHeader("X-Custom", "value").
		Build()

	if req.Method != "POST" {
		t.Errorf("expected method POST, got %s", req.Method)
	}
	if req.URL.Path != "/users" {
		t.Errorf("expected path /users, got %s", req.URL.Path)
	}
	if req.Header.Get("Authorization") != "Bearer token" {
		t.Errorf("expected Authorization header, got %q", req.Header.Get("Authorization"))
	}
	if req.Header.Get("X-Custom") != "value" {
		t.Errorf("expected X-Custom header, got %q", req.Header.Get("X-Custom"))
	}
}

func TestRequestBuilder_WithJSON(t *testing.T) {
	type input struct {
		Name string `json:"name"`
	}

	req := NewRequestBuilder("POST", "/users").
		WithJSON(input{Name: "test"}).
		Build()

	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content-type, got %q", req.Header.Get("Content-Type"))
	}

	body := make([]byte, 100)
	n, _ := req.Body.Read(body)

	if string(body[:n]) != `{"name":"test"}` {
		t.Errorf("unexpected body: %s", string(body[:n]))
	}
}

func TestRequestBuilder_WithForm(t *testing.T) {
	req := NewRequestBuilder("POST", "/feedback").
		WithForm(url.Values{"message": {"hi"}}).
		Build()

	if req.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Errorf("expected form content-type, got %q", req.Header.Get("Content-Type"))
	}

	body := make([]byte, 100)
	n, _ := req.Body.Read(body)

	if string(body[:n]) != "message=hi" {
		t.Errorf("unexpected body: %s", string(body[:n]))
	}
}

func TestRequestBuilder_WithBody(t *testing.T) {
	req := NewRequestBuilder("POST", "/data").
		WithBody(bytes.NewReader([]byte("raw data"))).
		Build()

	body := make([]byte, 100)
	n, _ := req.Body.Read(body)

	if string(body[:n]) != "raw data" {
		t.Errorf("unexpected body: %s", string(body[:n]))
	}
}

func TestRequestBuilder_WithAccept(t *testing.T) {
	req := NewRequestBuilder("GET", "/data").
		WithAccept("application/yaml").
		Build()

	if req.Header.Get("Accept") != "application/yaml" {
		t.Errorf("expected Accept header, got %q", req.Header.Get("Accept"))
	}
}

func TestRequestBuilder_WithContext(t *testing.T) {
	type contextKey string
	key := contextKey("test")
	ctx := context.WithValue(context.Background(), key, "value")

	req := NewRequestBuilder("GET", "/test").
		WithContext(ctx).
		Build()

	if req.Context().Value(key) != "value" {
		t.Error("context value not preserved")
	}
}

func TestMockIdentity(t *testing.T) {
	identity := NewMockIdentity("user-123").
		WithRoles("admin", "user")

	if identity.ID() != "user-123" {
		t.Errorf("expected ID 'user-123', got %q", identity.ID())
	}
	if !identity.HasRole("admin") {
		t.Error("expected HasRole('admin') to be true")
	}
	if identity.HasRole("superuser") {
		t.Error("expected HasRole('superuser') to be false")
	}
}

func TestMockIdentity_Roles(t *testing.T) {
	identity := NewMockIdentity("user").WithRoles("admin", "moderator")

	roles := identity.Roles()
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	if roles[0] != "admin" || roles[1] != "moderator" {
		t.Errorf("unexpected roles: %v", roles)
	}
}

func TestMockIdentity_Extractor(t *testing.T) {
	identity := NewMockIdentity("user-9").WithRoles("viewer")

	extracted, err := identity.Extractor()(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extracted.ID() != "user-9" {
		t.Errorf("expected extracted identity 'user-9', got %q", extracted.ID())
	}
}

func TestTestEngine(t *testing.T) {
	engine := TestEngine()
	if engine == nil {
		t.Fatal("expected engine, got nil")
	}
}

func TestTestEngineWithAuth(t *testing.T) {
	identity := NewMockIdentity("test-user")
	engine := TestEngineWithAuth(identity.Extractor())
	if engine == nil {
		t.Fatal("expected engine, got nil")
	}
}

func TestServeRequest(t *testing.T) {
	engine := TestEngine(&echoResource{})

	capture := ServeRequest(engine, "GET", "/echo", nil)

	if capture.StatusCode() != http.StatusOK {
		t.Errorf("expected status 200, got %d", capture.StatusCode())
	}

	var resp struct {
		Message string `json:"message"`
	}
	capture.DecodeJSON(&resp)
	if resp.Message != "hello" {
		t.Errorf("expected message 'hello', got %q", resp.Message)
	}
}

func TestServeRequestWithHeaders(t *testing.T) {
	engine := TestEngine(&echoResource{})

	headers := map[string]string{"X-Message": "custom"}
	capture := ServeRequestWithHeaders(engine, "GET", "/echo", nil, headers)

	var resp struct {
		Message string `json:"message"`
	}
	capture.DecodeJSON(&resp)
	if resp.Message != "custom" {
		t.Errorf("expected message 'custom', got %q", resp.Message)
	}
}

func TestAssertStatus_Success(t *testing.T) {
	capture := NewResponseCapture()
	capture.WriteHeader(http.StatusCreated)

	// Should not panic or fail for matching status
	AssertStatus(t, capture, http.StatusCreated)
}

func TestAssertJSON_Success(t *testing.T) {
	capture := NewResponseCapture()
	capture.WriteHeader(http.StatusOK)
	capture.Write([]byte(`{"name":"test","count":42}`))

	expected := map[string]any{
		"name":  "test",
		"count": float64(42),
	}

	// Should not panic or fail for matching JSON
	AssertJSON(t, capture, expected)
}

func TestAssertErrorTitle_Success(t *testing.T) {
	capture := NewResponseCapture()
	capture.WriteHeader(http.StatusNotFound)
	capture.Write([]byte(`{"title":"Not Found","description":"no such thing"}`))

	// Should not panic or fail for matching title
	AssertErrorTitle(t, capture, "Not Found")
}

func TestAssertContentType_Success(t *testing.T) {
	capture := NewResponseCapture()
	capture.Header().Set("Content-Type", "application/json")
	capture.WriteHeader(http.StatusOK)

	// Should not panic or fail for matching type
	AssertContentType(t, capture, "application/json")
}

func TestDecodeJSON(t *testing.T) {
	capture := NewResponseCapture()
	capture.WriteHeader(http.StatusOK)
	capture.Write([]byte(`{"name":"test","count":42}`))

	var result struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := capture.DecodeJSON(&result); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if result.Name != "test" {
		t.Errorf("expected name 'test', got %q", result.Name)
	}
	if result.Count != 42 {
		t.Errorf("expected count 42, got %d", result.Count)
	}
}
