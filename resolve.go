package relic

import (
	"mime/multipart"
	"strings"
)

// Comparison and membership operators recognized as "__op" suffixes on
// request keys. A suffix outside this set stays part of the name.
var operators = map[string]bool{
	"eq":      true,
	"ne":      true,
	"gt":      true,
	"gte":     true,
	"lt":      true,
	"lte":     true,
	"like":    true,
	"in":      true,
	"notin":   true,
	"between": true,
}

// arrayOperators take value lists, so they force array coercion with
// the declared scalar type as the element type.
var arrayOperators = map[string]bool{
	"in":      true,
	"notin":   true,
	"between": true,
}

// Sources holds the raw request inputs to parameter resolution, in
// merge order: query string, then path captures, then decoded body or
// form media. Later sources win on key collisions.
type Sources struct {
	Query map[string][]string
	Path  map[string]string
	Body  map[string]any
}

// Resolver applies an operation's parameter descriptors to a request.
// The zero value resolves with strict constraint checking disabled.
type Resolver struct {
	// Strict enforces enum membership and min/max bounds after
	// coercion. Off by default: declared constraints are documentation
	// unless the engine opts in.
	Strict bool
}

// Resolve merges the raw sources, extracts operator suffixes, applies
// required and default policy, and coerces every declared parameter.
// It returns the resolved parameter map, the operator map, and the
// first violation as an *HTTPError.
//
// Presence is the only test required parameters have to pass: zero,
// false, empty strings, and empty collections are all valid provided
// values. A parameter that is absent everywhere with no default is
// omitted from the resolved map when optional and rejected when
// required. Keys that no descriptor declares pass through untouched.
func (rv *Resolver) Resolve(op *OperationSpec, src Sources, enums EnumResolver) (map[string]any, map[string]string, error) {
	merged := make(map[string]any, len(src.Query)+len(src.Path)+len(src.Body))
	for k, vals := range src.Query {
		switch len(vals) {
		case 0:
		case 1:
			merged[k] = vals[0]
		default:
			elems := make([]any, len(vals))
			for i, v := range vals {
				elems[i] = v
			}
			merged[k] = elems
		}
	}
	for k, v := range src.Path {
		merged[k] = v
	}
	for k, v := range src.Body {
		merged[k] = v
	}

	ops := extractOperators(merged)

	for _, p := range op.Params {
		raw, present := merged[p.Name]
		if !present {
			if p.Default != nil {
				coerced, err := Coerce(*p.Default, p)
				if err != nil {
					return nil, nil, InvalidParam(p.Name, err)
				}
				merged[p.Name] = coerced
				continue
			}
			if p.Required {
				return nil, nil, MissingParam(p.Name)
			}
			continue
		}

		// File uploads are opaque; they pass through uncoerced.
		if _, isFile := raw.(*multipart.FileHeader); isFile {
			continue
		}

		typ, item := coerceTarget(p, arrayOperators[ops[p.Name]])
		coerced, err := coerceValue(raw, typ, item)
		if err != nil {
			return nil, nil, InvalidParam(p.Name, err)
		}
		if rv.Strict {
			if err := checkConstraints(p, coerced, enums); err != nil {
				return nil, nil, InvalidParam(p.Name, err)
			}
		}
		merged[p.Name] = coerced
	}

	return merged, ops, nil
}

// coerceTarget picks the coercion target for a parameter, forcing an
// array with the declared scalar as element type when a membership
// operator rode in on the key.
func coerceTarget(p ParamSpec, forceArray bool) (typ, item string) {
	typ = p.Type()
	item = p.ItemType()
	if forceArray && typ != TypeArray {
		item = typ
		typ = TypeArray
	}
	return typ, item
}

// extractOperators strips recognized "__op" suffixes from merged keys,
// rewriting each value under its base name and recording the operator.
func extractOperators(merged map[string]any) map[string]string {
	ops := make(map[string]string)
	type rewrite struct{ from, to string }
	var rewrites []rewrite
	for key := range merged {
		i := strings.LastIndex(key, "__")
		if i <= 0 {
			continue
		}
		if op := key[i+2:]; operators[op] {
			ops[key[:i]] = op
			rewrites = append(rewrites, rewrite{from: key, to: key[:i]})
		}
	}
	for _, rw := range rewrites {
		merged[rw.to] = merged[rw.from]
		delete(merged, rw.from)
	}
	return ops
}
