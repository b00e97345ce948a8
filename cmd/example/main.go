package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/zoobzio/relic"
)

// User is the stored user shape, published as the "user" component.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Users serves the user directory.
type Users struct {
	mu     sync.Mutex
	byID   map[int]User
	nextID int
}

// NewUsers seeds the directory with a few entries.
func NewUsers() *Users {
	return &Users{
		byID: map[int]User{
			1: {ID: 1, Name: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0100"},
			2: {ID: 2, Name: "Alan Turing", Email: "alan@example.com"},
			3: {ID: 3, Name: "Grace Hopper", Email: "grace@example.com"},
		},
		nextID: 4,
	}
}

func (u *Users) Routes() map[string]relic.Route {
	return map[string]relic.Route{
		"/users":      {},
		"/users/{id}": {Suffix: "ByID"},
	}
}

func (u *Users) Docs() map[string]string {
	return map[string]string{
		"OnGet": `List users.

Returns the directory, optionally restricted to specific IDs.

:param list[int] ids: [optional] Restrict to these user IDs
:param int limit: [optional, min=1, max=100, default=25] Page size
:response 200 user: Matching users
:return [json, yaml]:`,

		"OnPost": `Create a user.

:param str name: [required, in=body] Display name
:param str email: [required, in=body] Contact address
:param str phone: [optional, in=body, default=unlisted] Phone number
:response 201 user: Created user
:response 409: Duplicate email`,

		"OnGetByID": `Fetch one user.

:param int id: [in=path] User ID
:response 200 user: The user
:response 404: No such user
:return [json, yaml]:`,

		"OnDeleteByID": `Remove a user.

:param int id: [in=path] User ID
:response 204: Removed
:response 404: No such user`,
	}
}

func (u *Users) Auth() map[string][]string {
	return map[string][]string{"delete": {"admin"}}
}

func (u *Users) Tags() []string {
	return []string{"users"}
}

func (u *Users) OnGet(req *relic.Request) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	wanted := make(map[int64]bool)
	for _, v := range req.Slice("ids") {
		if id, ok := v.(int64); ok {
			wanted[id] = true
		}
	}

	out := make([]User, 0, len(u.byID))
	for _, user := range u.byID {
		if len(wanted) > 0 && !wanted[int64(user.ID)] {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if limit := int(req.Int("limit")); limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (u *Users) OnPost(req *relic.Request) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	email := req.String("email")
	for _, user := range u.byID {
		if user.Email == email {
			return nil, relic.Conflict("a user with this email already exists")
		}
	}

	user := User{
		ID:    u.nextID,
		Name:  req.String("name"),
		Email: email,
		Phone: req.String("phone"),
	}
	u.nextID++
	u.byID[user.ID] = user
	return user, nil
}

func (u *Users) OnGetByID(req *relic.Request) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	id := int(req.Int("id"))
	user, ok := u.byID[id]
	if !ok {
		return nil, relic.NotFound(fmt.Sprintf("no user with id %d", id))
	}
	return user, nil
}

func (u *Users) OnDeleteByID(req *relic.Request) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	id := int(req.Int("id"))
	if _, ok := u.byID[id]; !ok {
		return nil, relic.NotFound(fmt.Sprintf("no user with id %d", id))
	}
	delete(u.byID, id)
	return nil, nil
}

// Server describes one machine in the inventory, published as the
// "server" component.
type Server struct {
	Name string `json:"name"`
	Cpus int    `json:"cpus"`
	Role string `json:"role"`
}

// Servers reports the machine inventory.
type Servers struct {
	inventory []Server
}

func (s *Servers) Routes() map[string]relic.Route {
	return map[string]relic.Route{
		"/servers":               {},
		"/servers/by-cpu/{cpus}": {Suffix: "ByCpu"},
	}
}

func (s *Servers) Docs() map[string]string {
	return map[string]string{
		"OnGet": `List servers.

:param str role: [enum=roles] Role filter
:response 200 server: Matching servers`,

		"OnGetByCpu": `List servers with at least the given CPU count.

:param int cpus: [in=path] Minimum CPU count
:response 200 server: Matching servers`,
	}
}

func (s *Servers) ResolveEnum(name string) []string {
	if name == "roles" {
		return []string{"web", "db", "cache"}
	}
	return nil
}

func (s *Servers) Tags() []string {
	return []string{"servers"}
}

func (s *Servers) OnGet(req *relic.Request) (any, error) {
	if !req.Has("role") {
		return s.inventory, nil
	}
	role := req.String("role")
	out := make([]Server, 0)
	for _, server := range s.inventory {
		if server.Role == role {
			out = append(out, server)
		}
	}
	return out, nil
}

func (s *Servers) OnGetByCpu(req *relic.Request) (any, error) {
	minCpus := int(req.Int("cpus"))
	out := make([]Server, 0)
	for _, server := range s.inventory {
		if server.Cpus >= minCpus {
			out = append(out, server)
		}
	}
	return out, nil
}

// Feedback accepts a form-encoded message.
type Feedback struct{}

func (f *Feedback) Routes() map[string]relic.Route {
	return map[string]relic.Route{"/feedback": {}}
}

func (f *Feedback) Docs() map[string]string {
	return map[string]string{
		"OnPost": `Submit feedback.

:param str message: [required, in=form] Feedback text
:param str email: [optional, in=form] Reply address
:accepts [form]:
:response 202: Accepted`,
	}
}

func (f *Feedback) OnPost(req *relic.Request) (any, error) {
	log.Printf("feedback from %q: %s", req.String("email"), req.String("message"))
	return nil, nil
}

// Health is the liveness probe.
type Health struct {
	started time.Time
}

func (h *Health) Routes() map[string]relic.Route {
	return map[string]relic.Route{"/health": {}}
}

func (h *Health) Docs() map[string]string {
	return map[string]string{
		"OnGet": ":response 200: Service is healthy",
	}
}

func (h *Health) OnGet(_ *relic.Request) (any, error) {
	return map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}, nil
}

// demoIdentity carries a fixed ID and role set.
type demoIdentity struct {
	id    string
	roles []string
}

func (d *demoIdentity) ID() string { return d.id }

func (d *demoIdentity) HasRole(role string) bool {
	for _, r := range d.roles {
		if r == role {
			return true
		}
	}
	return false
}

// identityFromHeader trusts a demo bearer token: "Bearer admin" gets
// the admin role, anything else is a plain user.
func identityFromHeader(r *http.Request) (relic.Identity, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return nil, fmt.Errorf("missing bearer token")
	}
	if token == "admin" {
		return &demoIdentity{id: "admin", roles: []string{"admin"}}, nil
	}
	return &demoIdentity{id: token, roles: []string{"user"}}, nil
}

func main() {
	config := relic.DefaultConfig().
		WithPort(8081)

	inventory := []Server{
		{Name: "web-1", Cpus: 4, Role: "web"},
		{Name: "web-2", Cpus: 4, Role: "web"},
		{Name: "db-1", Cpus: 16, Role: "db"},
		{Name: "cache-1", Cpus: 8, Role: "cache"},
	}

	engine := relic.NewEngine(config).
		WithIdentityExtractor(identityFromHeader).
		WithResources(
			NewUsers(),
			&Servers{inventory: inventory},
			&Feedback{},
			&Health{started: time.Now()},
		).
		WithComponents(
			relic.Component[User]("user"),
			relic.Component[Server]("server"),
		).
		WithSpec(&relic.EngineSpec{
			Info: relic.Info{
				Title:       "Inventory API",
				Version:     "1.0.0",
				Description: "Example relic HTTP API",
			},
			Tags: []relic.Tag{
				{Name: "users", Description: "User directory"},
				{Name: "servers", Description: "Machine inventory"},
			},
			Servers: []relic.Server{
				{URL: "http://localhost:8081", Description: "Local development"},
			},
			SecurityScheme: "bearerAuth",
		})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		fmt.Printf("Listening on :%d (interactive docs at /docs, press Ctrl+C to stop)\n", config.Port)
		serverErrors <- engine.Start() // Blocks until the server stops
	}()

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		log.Fatalf("server error: %v", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := engine.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}

		fmt.Println("Shutdown complete")
	}
}
