package relic

import (
	"context"
	"net/http"
)

// Request holds all data a handler method needs for one invocation.
// It embeds context and the underlying HTTP request for full access.
//
// Params is the product of parameter resolution: every declared
// parameter that passed required/default policy, coerced to its
// declared type, plus any undeclared keys the client sent verbatim.
// Required parameters are guaranteed present by the time a handler
// runs, so the typed getters below never need an ok result for them.
type Request struct {
	context.Context // Embedded for deadline, cancellation, values
	*http.Request   // Embedded for direct access when needed (use sparingly)

	Params    map[string]any
	Operators map[string]string // base name -> operator from "name__op" keys
	Identity  Identity          // Caller identity (NoIdentity for public endpoints)
}

// Has reports whether the parameter resolved to a value. Optional
// parameters that were absent with no default are not present.
func (r *Request) Has(name string) bool {
	_, ok := r.Params[name]
	return ok
}

// String returns the named parameter as a string, or "" when absent or
// not a string.
func (r *Request) String(name string) string {
	v, _ := r.Params[name].(string)
	return v
}

// Int returns the named parameter as an int64, or 0 when absent or not
// an integer.
func (r *Request) Int(name string) int64 {
	v, _ := r.Params[name].(int64)
	return v
}

// Float returns the named parameter as a float64, or 0 when absent or
// not a number.
func (r *Request) Float(name string) float64 {
	v, _ := r.Params[name].(float64)
	return v
}

// Bool returns the named parameter as a bool, or false when absent or
// not a boolean.
func (r *Request) Bool(name string) bool {
	v, _ := r.Params[name].(bool)
	return v
}

// Slice returns the named parameter as a slice, or nil when absent or
// not an array.
func (r *Request) Slice(name string) []any {
	v, _ := r.Params[name].([]any)
	return v
}

// Object returns the named parameter as a map, or nil when absent or
// not an object.
func (r *Request) Object(name string) map[string]any {
	v, _ := r.Params[name].(map[string]any)
	return v
}

// Operator returns the comparison operator attached to the parameter,
// or "" when the client sent it without one.
func (r *Request) Operator(name string) string {
	return r.Operators[name]
}
