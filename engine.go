package relic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zoobzio/capitan"
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/relic/middleware"
)

// Engine hosts resources over HTTP. Registration compiles each
// resource's annotations into operation descriptors; the compiled
// registry then serves both request dispatch and document generation.
type Engine struct {
	config              *EngineConfig
	server              *http.Server
	chiRouter           chi.Router
	registry            *Registry
	spec                *EngineSpec
	extractor           IdentityExtractor
	ctx                 context.Context
	cancel              context.CancelFunc
	defaultHandlersOnce sync.Once
}

// NewEngine creates a new Engine with the given configuration.
// If config is nil, uses DefaultConfig.
func NewEngine(config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Create Chi router
	r := chi.NewRouter()

	e := &Engine{
		config:    config,
		chiRouter: r,
		registry:  NewRegistry(),
		spec:      DefaultEngineSpec(),
		ctx:       ctx,
		cancel:    cancel,
	}

	if config.EnableCORS {
		r.Use(middleware.CORS(nil))
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	e.server = &http.Server{
		Addr:         addr,
		Handler:      e.chiRouter,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	// Emit engine created event
	capitan.Emit(ctx, EngineCreated,
		HostKey.Field(config.Host),
		PortKey.Field(config.Port),
	)

	return e
}

// WithMiddleware adds global middleware to the engine and returns the
// engine for chaining. Must be called before WithResources; chi rejects
// middleware added after routes exist.
func (e *Engine) WithMiddleware(middleware ...func(http.Handler) http.Handler) *Engine {
	for _, mw := range middleware {
		e.chiRouter.Use(mw)
	}
	return e
}

// WithResources registers resources and binds their operations to
// routes, returning the engine for chaining. Registration failures
// (handler method with the wrong signature, duplicate route and verb,
// resource without matching methods) are programming errors and panic
// at startup.
func (e *Engine) WithResources(resources ...Resource) *Engine {
	// Ensure default handlers are registered first (only once)
	e.ensureDefaultHandlers()

	for _, res := range resources {
		bound, err := e.registry.Register(res)
		if err != nil {
			panic("relic: " + err.Error())
		}

		for _, b := range bound {
			verb := strings.ToUpper(b.Spec.Operation)
			e.chiRouter.Method(verb, b.Route, e.adaptHandler(newOperationHandler(b, e)))

			capitan.Emit(e.ctx, OperationCompiled,
				OperationIDKey.Field(b.Spec.OperationID),
				MethodKey.Field(verb),
				RouteKey.Field(b.Route),
			)
			for _, entry := range b.Skipped {
				capitan.Emit(e.ctx, AnnotationSkipped,
					OperationIDKey.Field(b.Spec.OperationID),
					EntryKey.Field(entry),
				)
			}
		}

		// Emit resource registered event
		capitan.Emit(e.ctx, ResourceRegistered,
			ResourceKey.Field(resourceName(res)),
			OperationCountKey.Field(len(bound)),
		)
	}
	return e
}

// WithComponents registers named schema components for document
// generation and returns the engine for chaining.
func (e *Engine) WithComponents(components ...ComponentSpec) *Engine {
	for _, c := range components {
		e.registry.AddComponent(c)
	}
	return e
}

// WithIdentityExtractor sets the extractor consulted on every request.
// Operations that declare roles reject requests whose extraction fails.
func (e *Engine) WithIdentityExtractor(extractor IdentityExtractor) *Engine {
	e.extractor = extractor
	return e
}

// WithSpec overrides the document metadata (info, tags, servers,
// security scheme) and returns the engine for chaining.
func (e *Engine) WithSpec(spec *EngineSpec) *Engine {
	if spec != nil {
		e.spec = spec
	}
	return e
}

// Router exposes the underlying chi router, for tests and for mounting
// the engine inside a larger server.
func (e *Engine) Router() chi.Router {
	e.ensureDefaultHandlers()
	return e.chiRouter
}

// Registry exposes the compiled operation registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ensureDefaultHandlers sets up the OpenAPI document and docs page routes (once).
func (e *Engine) ensureDefaultHandlers() {
	e.defaultHandlersOnce.Do(func() {
		e.registerDefaultHandlers()
	})
}

// registerDefaultHandlers sets up the OpenAPI document and docs page routes.
func (e *Engine) registerDefaultHandlers() {
	if e.config.SpecPath != "" {
		// JSON document
		e.chiRouter.Get(e.config.SpecPath, func(w http.ResponseWriter, _ *http.Request) {
			doc := e.GenerateOpenAPI(e.spec.Info)

			// Marshal to pretty-printed JSON.
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				http.Error(w, "failed to generate OpenAPI document", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
		})

		// YAML variant alongside the JSON document
		yamlPath := strings.TrimSuffix(e.config.SpecPath, ".json") + ".yaml"
		e.chiRouter.Get(yamlPath, func(w http.ResponseWriter, _ *http.Request) {
			doc := e.GenerateOpenAPI(e.spec.Info)

			data, err := yaml.Marshal(doc)
			if err != nil {
				http.Error(w, "failed to generate OpenAPI document", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/yaml")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
		})
	}

	if e.config.DocsPath != "" && e.config.SpecPath != "" {
		specPath := e.config.SpecPath
		e.chiRouter.Get(e.config.DocsPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)

			html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>API Documentation</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
    <script id="api-reference" data-url="%s"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`, specPath)

			w.Write([]byte(html))
		})
	}
}

// GenerateOpenAPI builds the OpenAPI document for the registered
// operations and components.
func (e *Engine) GenerateOpenAPI(info Info) *OpenAPI {
	return buildDocument(e.registry, info, e.spec)
}

// adaptHandler converts an operationHandler to http.HandlerFunc.
func (*Engine) adaptHandler(h *operationHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		startTime := time.Now()

		// Emit request received event
		capitan.Emit(ctx, RequestReceived,
			MethodKey.Field(r.Method),
			PathKey.Field(r.URL.Path),
			OperationIDKey.Field(h.op.OperationID),
		)

		// Handler processes and writes response
		status, err := h.Process(ctx, r, w)

		// Calculate duration
		durationMs := time.Since(startTime).Milliseconds()

		// Emit request completion event
		if err != nil {
			capitan.Emit(ctx, RequestFailed,
				MethodKey.Field(r.Method),
				PathKey.Field(r.URL.Path),
				OperationIDKey.Field(h.op.OperationID),
				StatusCodeKey.Field(status),
				DurationMsKey.Field(durationMs),
				ErrorKey.Field(err.Error()),
			)
		} else {
			capitan.Emit(ctx, RequestCompleted,
				MethodKey.Field(r.Method),
				PathKey.Field(r.URL.Path),
				OperationIDKey.Field(h.op.OperationID),
				StatusCodeKey.Field(status),
				DurationMsKey.Field(durationMs),
			)
		}
	}
}

// Start begins listening for HTTP requests.
// This method blocks until the server is shutdown.
func (e *Engine) Start() error {
	e.ensureDefaultHandlers()

	// Emit engine starting event
	capitan.Emit(e.ctx, EngineStarting,
		HostKey.Field(e.config.Host),
		PortKey.Field(e.config.Port),
		AddressKey.Field(e.server.Addr),
	)

	err := e.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown performs a graceful shutdown of the engine.
func (e *Engine) Shutdown(ctx context.Context) error {
	// Emit shutdown started event
	capitan.Emit(ctx, EngineShutdownStarted)

	// Shutdown HTTP server (waits for active connections to finish)
	err := e.server.Shutdown(ctx)

	// Cancel engine context
	e.cancel()

	// Emit shutdown complete event
	if err != nil {
		capitan.Emit(context.Background(), EngineShutdownComplete,
			GracefulKey.Field(false),
			ErrorKey.Field(err.Error()),
		)
	} else {
		capitan.Emit(context.Background(), EngineShutdownComplete,
			GracefulKey.Field(true),
		)
	}

	// Shutdown event system
	capitan.Shutdown()

	return err
}
