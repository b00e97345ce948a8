package relic

import "github.com/zoobzio/capitan"

// Engine lifecycle signals.
var (
	// EngineCreated is emitted when an Engine instance is created.
	// Fields: HostKey, PortKey.
	EngineCreated = capitan.NewSignal("http.engine.created", "HTTP engine instance created with configured host and port")

	// EngineStarting is emitted when the server starts listening for requests.
	// Fields: HostKey, PortKey, AddressKey.
	EngineStarting = capitan.NewSignal("http.engine.starting", "HTTP server starting to listen for requests on configured address")

	// EngineShutdownStarted is emitted when graceful shutdown is initiated.
	// Fields: none.
	EngineShutdownStarted = capitan.NewSignal("http.engine.shutdown.started", "HTTP engine graceful shutdown initiated")

	// EngineShutdownComplete is emitted when shutdown finishes.
	// Fields: GracefulKey, ErrorKey (if failed).
	EngineShutdownComplete = capitan.NewSignal("http.engine.shutdown.complete", "HTTP engine shutdown completed, graceful or with error")
)

// Registration signals.
var (
	// ResourceRegistered is emitted when a resource's operations are bound.
	// Fields: ResourceKey, OperationCountKey.
	ResourceRegistered = capitan.NewSignal("http.resource.registered", "Resource registered with engine and its operations bound to routes")

	// OperationCompiled is emitted for each operation compiled from a resource.
	// Fields: OperationIDKey, MethodKey, RouteKey.
	OperationCompiled = capitan.NewSignal("http.operation.compiled", "Annotation block compiled into operation descriptor")

	// AnnotationSkipped is emitted for each annotation entry that failed to parse.
	// Fields: OperationIDKey, EntryKey.
	AnnotationSkipped = capitan.NewSignal("http.annotation.skipped", "Malformed annotation entry skipped during descriptor compilation")
)

// Request lifecycle signals.
var (
	// RequestReceived is emitted when a request is received.
	// Fields: MethodKey, PathKey, OperationIDKey.
	RequestReceived = capitan.NewSignal("http.request.received", "HTTP request received by engine and routed to operation")

	// RequestCompleted is emitted when a request completes successfully.
	// Fields: MethodKey, PathKey, OperationIDKey, StatusCodeKey, DurationMsKey.
	RequestCompleted = capitan.NewSignal("http.request.completed", "HTTP request completed successfully with response sent")

	// RequestFailed is emitted when a request fails with an error.
	// Fields: MethodKey, PathKey, OperationIDKey, StatusCodeKey, DurationMsKey, ErrorKey.
	RequestFailed = capitan.NewSignal("http.request.failed", "HTTP request failed during processing with error")
)

// Parameter resolution signals.
var (
	// ParamMissing is emitted when a required parameter is absent from every source.
	// Fields: MethodKey, PathKey, OperationIDKey, ErrorKey.
	ParamMissing = capitan.NewSignal("http.params.missing", "Required parameter absent from query, path, and body sources")

	// ParamInvalid is emitted when a parameter value fails coercion or a strict constraint.
	// Fields: MethodKey, PathKey, OperationIDKey, ErrorKey.
	ParamInvalid = capitan.NewSignal("http.params.invalid", "Parameter value failed type coercion or constraint check")

	// ParamsResolved is emitted after successful resolution.
	// Fields: OperationIDKey, ParamCountKey.
	ParamsResolved = capitan.NewSignal("http.params.resolved", "Request parameters merged, coerced, and resolved")
)

// Media signals.
var (
	// RequestBodyInvalid is emitted when the request body cannot be decoded.
	// Fields: OperationIDKey, ErrorKey.
	RequestBodyInvalid = capitan.NewSignal("http.request.body.invalid", "Request body could not be decoded for its content type")

	// ResponseEncodeError is emitted when encoding the response fails.
	// Fields: OperationIDKey, ErrorKey.
	ResponseEncodeError = capitan.NewSignal("http.response.encode.error", "Failed to encode response body for negotiated content type")
)

// Authentication and authorization signals.
var (
	// AuthenticationFailed is emitted when identity extraction fails.
	// Fields: MethodKey, PathKey, OperationIDKey, ErrorKey.
	AuthenticationFailed = capitan.NewSignal("http.auth.failed", "Identity extraction failed for request")

	// AuthorizationDenied is emitted when the caller lacks every declared role.
	// Fields: MethodKey, PathKey, OperationIDKey, IdentityIDKey, RequiredRolesKey.
	AuthorizationDenied = capitan.NewSignal("http.authz.denied", "Authorization failed due to insufficient roles")
)

// Event field keys (primitive types only).
var (
	// Engine fields.
	HostKey    = capitan.NewStringKey("host")
	PortKey    = capitan.NewIntKey("port")
	AddressKey = capitan.NewStringKey("address")

	// Request/Response fields.
	MethodKey     = capitan.NewStringKey("method")
	PathKey       = capitan.NewStringKey("path")
	RouteKey      = capitan.NewStringKey("route")
	StatusCodeKey = capitan.NewIntKey("status_code")
	DurationMsKey = capitan.NewInt64Key("duration_ms")
	ErrorKey      = capitan.NewStringKey("error")
	GracefulKey   = capitan.NewBoolKey("graceful")

	// Descriptor fields.
	ResourceKey       = capitan.NewStringKey("resource")
	OperationIDKey    = capitan.NewStringKey("operation_id")
	OperationCountKey = capitan.NewIntKey("operation_count")
	EntryKey          = capitan.NewStringKey("entry")
	ParamCountKey     = capitan.NewIntKey("param_count")

	// Authentication/Authorization fields.
	IdentityIDKey    = capitan.NewStringKey("identity_id")
	RequiredRolesKey = capitan.NewStringKey("required_roles")
)
