package relic

import (
	"strconv"
	"strings"
)

// Parameter locations. Body and form parameters travel in the request
// body; everything else rides the URL.
const (
	InQuery = "query"
	InPath  = "path"
	InBody  = "body"
	InForm  = "form"
)

// Canonical datatype names produced by datatype resolution.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// typeNames maps declared datatype tokens to their canonical names.
// Unknown tokens resolve to string so compilation never fails on a typo.
var typeNames = map[string]string{
	"str":     TypeString,
	"string":  TypeString,
	"int":     TypeInteger,
	"integer": TypeInteger,
	"float":   TypeNumber,
	"number":  TypeNumber,
	"bool":    TypeBoolean,
	"boolean": TypeBoolean,
	"json":    TypeObject,
	"dict":    TypeObject,
	"object":  TypeObject,
	"list":    TypeArray,
	"array":   TypeArray,
}

// ParamSpec describes a single declared parameter of an operation.
// Specs are built once at registration time and never mutated afterward,
// so they are safe to read from concurrent request handlers.
type ParamSpec struct {
	Name     string `json:"name" yaml:"name"`
	Datatype string `json:"datatype" yaml:"datatype"` // as declared: "str", "list[int]", "str|int"
	Location string `json:"location" yaml:"location"`
	Required bool   `json:"required" yaml:"required"`

	// Default holds the declared default verbatim; it is coerced through
	// the same converter as request values when applied. Nil means the
	// parameter has no default.
	Default *string `json:"default,omitempty" yaml:"default,omitempty"`

	// Enum names the value set to resolve against the owning resource.
	// Min and Max are descriptive bounds; they are only enforced when
	// strict parameter checking is enabled.
	Enum string   `json:"enum,omitempty" yaml:"enum,omitempty"`
	Min  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Extra preserves unrecognized option keys verbatim.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Type returns the canonical type of the declared datatype: one of the
// Type* constants, or a pipe-joined union such as "string|integer".
func (p ParamSpec) Type() string {
	return canonicalType(p.Datatype)
}

// ItemType returns the canonical element type for array datatypes.
// "list[int]" yields "integer"; a bare "list" defaults to "string" so
// every array descriptor carries an element type. Non-arrays yield "".
func (p ParamSpec) ItemType() string {
	if p.Type() != TypeArray {
		return ""
	}
	open := strings.IndexByte(p.Datatype, '[')
	if open <= 0 {
		return TypeString
	}
	close := strings.IndexByte(p.Datatype, ']')
	if close < open {
		return TypeString
	}
	inner := strings.TrimSpace(p.Datatype[open+1 : close])
	if inner == "" {
		return TypeString
	}
	return scalarType(inner)
}

// UnionTypes returns the canonical member types of a pipe union in
// declared order, or nil when the datatype is not a union.
func (p ParamSpec) UnionTypes() []string {
	if !strings.ContainsRune(p.Datatype, '|') {
		return nil
	}
	parts := strings.Split(p.Datatype, "|")
	members := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		members = append(members, scalarType(part))
	}
	return members
}

// InRequestBody reports whether the parameter travels in the request body.
// Both body and form locations qualify.
func (p ParamSpec) InRequestBody() bool {
	return p.Location == InBody || p.Location == InForm
}

func canonicalType(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TypeString
	}
	if open := strings.IndexByte(s, '['); open > 0 {
		s = s[:open]
	}
	if strings.ContainsRune(s, '|') {
		parts := strings.Split(s, "|")
		members := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			members = append(members, scalarType(part))
		}
		if len(members) == 1 {
			return members[0]
		}
		return strings.Join(members, "|")
	}
	return scalarType(s)
}

func scalarType(name string) string {
	if t, ok := typeNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return TypeString
}

// ResponseSpec describes one declared response of an operation. Schema
// optionally names a registered component.
type ResponseSpec struct {
	Code        string `json:"code" yaml:"code"`
	Schema      string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// OperationSpec is the compiled descriptor for a single resource
// operation: one HTTP verb bound to one route, plus everything the
// annotation block declared about it. Descriptors are immutable once
// registered.
type OperationSpec struct {
	// Routing
	Operation   string `json:"operation" yaml:"operation"` // lowercase verb
	Suffix      string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	OperationID string `json:"operationId" yaml:"operationId"`

	// Documentation
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Request/Response
	Params      []ParamSpec    `json:"params,omitempty" yaml:"params,omitempty"`
	Responses   []ResponseSpec `json:"responses,omitempty" yaml:"responses,omitempty"`
	Accepts     []string       `json:"accepts,omitempty" yaml:"accepts,omitempty"`
	ReturnTypes []string       `json:"returnTypes,omitempty" yaml:"returnTypes,omitempty"`

	// Authorization. Roles is advisory metadata for access-control
	// middleware; the resolver never interprets it.
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Param returns the declared parameter with the given name.
func (o *OperationSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range o.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// BodyParams returns the declared parameters that travel in the request
// body, preserving declaration order.
func (o *OperationSpec) BodyParams() []ParamSpec {
	var body []ParamSpec
	for _, p := range o.Params {
		if p.InRequestBody() {
			body = append(body, p)
		}
	}
	return body
}

// SuccessStatus returns the status code for a successful invocation: the
// first declared 2xx response, or 200 when none is declared.
func (o *OperationSpec) SuccessStatus() int {
	for _, r := range o.Responses {
		if code, err := strconv.Atoi(r.Code); err == nil && code >= 200 && code < 300 {
			return code
		}
	}
	return 200
}

// EngineSpec contains declarative configuration for the API engine.
// This spec is serializable and represents API-level metadata
// used for OpenAPI generation and documentation.
type EngineSpec struct {
	// OpenAPI Info
	Info Info `json:"info" yaml:"info"`

	// Global Tags with descriptions
	Tags []Tag `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Servers
	Servers []Server `json:"servers,omitempty" yaml:"servers,omitempty"`

	// Security scheme applied to operations that declare roles.
	SecurityScheme string `json:"securityScheme,omitempty" yaml:"securityScheme,omitempty"`
}

// DefaultEngineSpec returns an EngineSpec with sensible defaults.
func DefaultEngineSpec() *EngineSpec {
	return &EngineSpec{
		Info: Info{
			Title:   "API",
			Version: "1.0.0",
		},
		Tags:    []Tag{},
		Servers: []Server{},
	}
}
