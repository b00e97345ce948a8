package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/zoobzio/relic"
)

// userRecord is the stored user shape.
type userRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// userStore is an in-memory store backing the CRUD scenario.
type userStore struct {
	mu     sync.RWMutex
	users  map[string]*userRecord
	nextID int
}

func newUserStore() *userStore {
	return &userStore{
		users:  make(map[string]*userRecord),
		nextID: 1,
	}
}

func (s *userStore) Create(name, email string) *userRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &userRecord{
		ID:    fmt.Sprintf("user-%d", s.nextID),
		Name:  name,
		Email: email,
	}
	s.nextID++
	s.users[user.ID] = user
	return user
}

func (s *userStore) Get(id string) *userRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

func (s *userStore) Update(id, name, email string) *userRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[id]
	if user == nil {
		return nil
	}
	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	return user
}

func (s *userStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[id]; exists {
		delete(s.users, id)
		return true
	}
	return false
}

func (s *userStore) List() []*userRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*userRecord, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users
}

// usersResource exposes the store as a complete CRUD surface.
type usersResource struct {
	store *userStore
}

func (u *usersResource) Routes() map[string]relic.Route {
	return map[string]relic.Route{
		"/users":      {},
		"/users/{id}": {Suffix: "ByID"},
	}
}

func (u *usersResource) Docs() map[string]string {
	return map[string]string{
		"OnGet": "List users.\n\n:response 200: User collection",
		"OnPost": "Create a user.\n\n" +
			":param str name: [required, in=body] Display name\n" +
			":param str email: [required, in=body] Contact address\n" +
			":response 201: Created user",
		"OnGetByID": ":param str id: [in=path] User ID\n" +
			":response 200: The user\n" +
			":response 404: No such user",
		"OnPutByID": ":param str id: [in=path] User ID\n" +
			":param str name: [optional, in=body] New name\n" +
			":param str email: [optional, in=body] New address\n" +
			":response 200: Updated user\n" +
			":response 404: No such user",
		"OnDeleteByID": ":param str id: [in=path] User ID\n" +
			":response 200: Deletion result\n" +
			":response 404: No such user",
	}
}

func (u *usersResource) OnGet(_ *relic.Request) (any, error) {
	users := u.store.List()
	return map[string]any{"users": users, "total": len(users)}, nil
}

func (u *usersResource) OnPost(req *relic.Request) (any, error) {
	return u.store.Create(req.String("name"), req.String("email")), nil
}

func (u *usersResource) OnGetByID(req *relic.Request) (any, error) {
	user := u.store.Get(req.String("id"))
	if user == nil {
		return nil, relic.NotFound("user not found")
	}
	return user, nil
}

func (u *usersResource) OnPutByID(req *relic.Request) (any, error) {
	user := u.store.Update(req.String("id"), req.String("name"), req.String("email"))
	if user == nil {
		return nil, relic.NotFound("user not found")
	}
	return user, nil
}

func (u *usersResource) OnDeleteByID(req *relic.Request) (any, error) {
	if !u.store.Delete(req.String("id")) {
		return nil, relic.NotFound("user not found")
	}
	return map[string]any{"deleted": true}, nil
}

// gatedResource requires the configured roles on GET.
type gatedResource struct {
	path  string
	roles []string
}

func (g *gatedResource) Routes() map[string]relic.Route {
	return map[string]relic.Route{g.path: {}}
}

func (g *gatedResource) Auth() map[string][]string {
	return map[string][]string{"get": g.roles}
}

func (g *gatedResource) OnGet(req *relic.Request) (any, error) {
	return map[string]any{"id": req.Identity.ID()}, nil
}

// projectsResource declares constrained body parameters for the
// validation scenario.
type projectsResource struct{}

func (p *projectsResource) Routes() map[string]relic.Route {
	return map[string]relic.Route{"/projects": {}}
}

func (p *projectsResource) Docs() map[string]string {
	return map[string]string{
		"OnPost": ":param str name: [required, in=body] Project name\n" +
			":param int priority: [required, in=body, min=1, max=5] Priority\n" +
			":param str visibility: [optional, in=body, enum=visibilities, default=private] Visibility",
	}
}

func (p *projectsResource) ResolveEnum(name string) []string {
	if name == "visibilities" {
		return []string{"private", "internal", "public"}
	}
	return nil
}

func (p *projectsResource) OnPost(req *relic.Request) (any, error) {
	return map[string]any{
		"name":       req.String("name"),
		"priority":   req.Int("priority"),
		"visibility": req.String("visibility"),
	}, nil
}

// failuresResource maps a path parameter to error kinds.
type failuresResource struct{}

func (f *failuresResource) Routes() map[string]relic.Route {
	return map[string]relic.Route{"/failures/{kind}": {}}
}

func (f *failuresResource) Docs() map[string]string {
	return map[string]string{
		"OnGet": ":param str kind: [in=path] Failure kind",
	}
}

func (f *failuresResource) OnGet(req *relic.Request) (any, error) {
	switch req.String("kind") {
	case "not-found":
		return nil, relic.NotFound("resource not found")
	case "bad-request":
		return nil, relic.BadRequest("invalid request")
	case "conflict":
		return nil, relic.ErrConflict
	default:
		return map[string]any{"id": "ok"}, nil
	}
}

// trackedResource reports when its handler runs.
type trackedResource struct {
	record func(string)
}

func (tr *trackedResource) Routes() map[string]relic.Route {
	return map[string]relic.Route{"/tracked": {}}
}

func (tr *trackedResource) OnGet(_ *relic.Request) (any, error) {
	tr.record("handler")
	return map[string]any{"id": "ok"}, nil
}

// lookupResource echoes its optional query parameters.
type lookupResource struct{}

func (l *lookupResource) Routes() map[string]relic.Route {
	return map[string]relic.Route{"/lookup": {}}
}

func (l *lookupResource) Docs() map[string]string {
	return map[string]string{
		"OnGet": ":param str q: [optional] Search terms\n" +
			":param str limit: [optional] Page size\n" +
			":param str offset: [optional] Page offset",
	}
}

func (l *lookupResource) OnGet(req *relic.Request) (any, error) {
	return map[string]any{
		"q":      req.String("q"),
		"limit":  req.String("limit"),
		"offset": req.String("offset"),
	}, nil
}

// TestRealWorld_CRUDOperations tests a complete CRUD workflow.
func TestRealWorld_CRUDOperations(t *testing.T) {
	engine := newEngine().WithResources(&usersResource{store: newUserStore()})

	t.Run("Create", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"name": "John Doe", "email": "john@example.com"})
		req := httptest.NewRequest("POST", "/users", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var user userRecord
		json.Unmarshal(w.Body.Bytes(), &user)
		if user.ID == "" {
			t.Error("expected user ID")
		}
		if user.Name != "John Doe" {
			t.Errorf("expected name 'John Doe', got %q", user.Name)
		}
	})

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users", nil)
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}

		var list struct {
			Users []userRecord `json:"users"`
			Total int          `json:"total"`
		}
		json.Unmarshal(w.Body.Bytes(), &list)
		if list.Total != 1 {
			t.Errorf("expected 1 user, got %d", list.Total)
		}
	})

	t.Run("Get", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users/user-1", nil)
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var user userRecord
		json.Unmarshal(w.Body.Bytes(), &user)
		if user.ID != "user-1" {
			t.Errorf("expected ID 'user-1', got %q", user.ID)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users/nonexistent", nil)
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("Update", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"name": "Jane Doe"})
		req := httptest.NewRequest("PUT", "/users/user-1", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var user userRecord
		json.Unmarshal(w.Body.Bytes(), &user)
		if user.Name != "Jane Doe" {
			t.Errorf("expected name 'Jane Doe', got %q", user.Name)
		}
		if user.Email != "john@example.com" {
			t.Errorf("expected email unchanged, got %q", user.Email)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/users/user-1", nil)
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}

		var result struct {
			Deleted bool `json:"deleted"`
		}
		json.Unmarshal(w.Body.Bytes(), &result)
		if !result.Deleted {
			t.Error("expected deleted=true")
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/users/user-1", nil)
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

// TestRealWorld_AuthenticationFlow tests authentication scenarios.
func TestRealWorld_AuthenticationFlow(t *testing.T) {
	validTokens := map[string]*tokenIdentity{
		"token-admin": {id: "admin-1", roles: []string{"admin", "user"}},
		"token-user":  {id: "user-1", roles: []string{"user"}},
	}

	engine := newEngine().
		WithIdentityExtractor(func(r *http.Request) (relic.Identity, error) {
			token := r.Header.Get("Authorization")
			if identity, ok := validTokens[token]; ok {
				return identity, nil
			}
			return nil, fmt.Errorf("invalid token")
		}).
		WithResources(
			&endpointResource{path: "/public", id: "public-data"},
			&gatedResource{path: "/protected", roles: []string{"user"}},
			&gatedResource{path: "/admin", roles: []string{"admin"}},
		)

	t.Run("PublicNoAuth", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/public", nil)
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("ProtectedNoAuth", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("ProtectedWithAuth", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "token-user")
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp struct {
			ID string `json:"id"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.ID != "user-1" {
			t.Errorf("expected ID 'user-1', got %q", resp.ID)
		}
	})

	t.Run("AdminWithUserToken", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "token-user")
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("AdminWithAdminToken", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "token-admin")
		w := httptest.NewRecorder()
		engine.Router().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}

// TestRealWorld_ValidationErrors tests parameter violations under
// strict resolution.
func TestRealWorld_ValidationErrors(t *testing.T) {
	config := relic.DefaultConfig().WithHost("localhost").WithPort(0).WithStrictParams()
	engine := relic.NewEngine(config).WithResources(&projectsResource{})

	tests := []struct {
		name       string
		input      map[string]any
		wantStatus int
	}{
		{
			name:       "MissingName",
			input:      map[string]any{"priority": 3},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "MissingPriority",
			input:      map[string]any{"name": "Alpha"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "PriorityOutOfRange",
			input:      map[string]any{"name": "Alpha", "priority": 9},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "PriorityWrongType",
			input:      map[string]any{"name": "Alpha", "priority": "high"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "BadVisibility",
			input:      map[string]any{"name": "Alpha", "priority": 3, "visibility": "secret"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "ValidInput",
			input:      map[string]any{"name": "Alpha", "priority": 3},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.input)
			req := httptest.NewRequest("POST", "/projects", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			engine.Router().ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

// TestRealWorld_ErrorResponses tests structured error responses.
func TestRealWorld_ErrorResponses(t *testing.T) {
	engine := newEngine().WithResources(&failuresResource{})

	tests := []struct {
		kind        string
		wantStatus  int
		wantTitle   string
		wantMessage string
	}{
		{"not-found", http.StatusNotFound, "Not Found", "resource not found"},
		{"bad-request", http.StatusBadRequest, "Bad Request", "invalid request"},
		{"conflict", http.StatusConflict, "Conflict", ""},
		{"none", http.StatusOK, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/failures/"+tt.kind, nil)
			w := httptest.NewRecorder()
			engine.Router().ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}

			if tt.wantTitle != "" {
				var resp struct {
					Title       string `json:"title"`
					Description string `json:"description"`
				}
				json.Unmarshal(w.Body.Bytes(), &resp)
				if resp.Title != tt.wantTitle {
					t.Errorf("expected title %q, got %q", tt.wantTitle, resp.Title)
				}
				if resp.Description != tt.wantMessage {
					t.Errorf("expected description %q, got %q", tt.wantMessage, resp.Description)
				}
			}
		})
	}
}

// TestRealWorld_MiddlewareChain tests a realistic middleware chain.
func TestRealWorld_MiddlewareChain(t *testing.T) {
	var order []string
	var mu sync.Mutex

	addToOrder := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	engine := newEngine()

	engine.WithMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addToOrder("logging-start")
			next.ServeHTTP(w, r)
			addToOrder("logging-end")
		})
	})

	engine.WithMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addToOrder("recovery-start")
			next.ServeHTTP(w, r)
			addToOrder("recovery-end")
		})
	})

	engine.WithResources(&trackedResource{record: addToOrder})

	req := httptest.NewRequest("GET", "/tracked", nil)
	w := httptest.NewRecorder()
	engine.Router().ServeHTTP(w, req)

	expected := []string{
		"logging-start",
		"recovery-start",
		"handler",
		"recovery-end",
		"logging-end",
	}

	if len(order) != len(expected) {
		t.Errorf("expected %d middleware calls, got %d: %v", len(expected), len(order), order)
		return
	}

	for i, exp := range expected {
		if order[i] != exp {
			t.Errorf("position %d: expected %q, got %q", i, exp, order[i])
		}
	}
}

// TestRealWorld_QueryParameters tests query parameter handling.
func TestRealWorld_QueryParameters(t *testing.T) {
	engine := newEngine().WithResources(&lookupResource{})

	type lookupOutput struct {
		Query  string `json:"q"`
		Limit  string `json:"limit"`
		Offset string `json:"offset"`
	}

	tests := []struct {
		name   string
		url    string
		expect lookupOutput
	}{
		{
			name:   "AllParams",
			url:    "/lookup?q=test&limit=10&offset=20",
			expect: lookupOutput{Query: "test", Limit: "10", Offset: "20"},
		},
		{
			name:   "PartialParams",
			url:    "/lookup?q=test",
			expect: lookupOutput{Query: "test", Limit: "", Offset: ""},
		},
		{
			name:   "NoParams",
			url:    "/lookup",
			expect: lookupOutput{Query: "", Limit: "", Offset: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			w := httptest.NewRecorder()
			engine.Router().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", w.Code)
			}

			var resp lookupOutput
			json.Unmarshal(w.Body.Bytes(), &resp)

			if resp != tt.expect {
				t.Errorf("expected %+v, got %+v", tt.expect, resp)
			}
		})
	}
}
