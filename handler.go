package relic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/zoobzio/capitan"
)

// operationHandler executes a single bound operation. It gathers raw
// values from the query, path, and body, resolves them against the
// operation descriptor, invokes the resource method, and encodes the
// result for the negotiated content type.
//
// Engine state is read per request so builder calls made after
// registration (identity extractor, strict mode) still apply.
type operationHandler struct {
	route  string
	op     *OperationSpec
	fn     func(*Request) (any, error)
	enums  EnumResolver
	engine *Engine
}

func newOperationHandler(bound *boundOperation, e *Engine) *operationHandler {
	h := &operationHandler{
		route:  bound.Route,
		op:     bound.Spec,
		fn:     bound.Fn,
		engine: e,
	}
	if er, ok := bound.Resource.(EnumResolver); ok {
		h.enums = er
	}
	return h
}

// Process runs the operation against a single request. It returns the
// status written and the processing error, if any. An HTTPError below
// 500 returned by the resource method counts as successful handling
// and yields a nil error.
func (h *operationHandler) Process(ctx context.Context, r *http.Request, w http.ResponseWriter) (int, error) {
	identity, err := h.identify(ctx, r)
	if err != nil {
		he := FromError(err)
		writeHTTPError(w, he)
		return he.Status, err
	}

	if err := authorize(h.op, identity); err != nil {
		he := FromError(err)
		capitan.Warn(ctx, AuthorizationDenied,
			MethodKey.Field(r.Method),
			PathKey.Field(r.URL.Path),
			OperationIDKey.Field(h.op.OperationID),
			IdentityIDKey.Field(identity.ID()),
			RequiredRolesKey.Field(strings.Join(h.op.Roles, ",")),
		)
		writeHTTPError(w, he)
		return he.Status, err
	}

	body, err := decodeRequestBody(r, h.engine.config.MaxBodySize)
	if err != nil {
		he := FromError(err)
		capitan.Error(ctx, RequestBodyInvalid,
			OperationIDKey.Field(h.op.OperationID),
			ErrorKey.Field(err.Error()),
		)
		writeHTTPError(w, he)
		return he.Status, err
	}

	src := Sources{
		Query: r.URL.Query(),
		Path:  pathParams(ctx),
		Body:  body,
	}

	resolver := &Resolver{Strict: h.engine.config.StrictParams}
	params, operators, err := resolver.Resolve(h.op, src, h.enums)
	if err != nil {
		he := FromError(err)
		signal := ParamInvalid
		if he.Title == titleMissingParam {
			signal = ParamMissing
		}
		capitan.Warn(ctx, signal,
			MethodKey.Field(r.Method),
			PathKey.Field(r.URL.Path),
			OperationIDKey.Field(h.op.OperationID),
			ErrorKey.Field(err.Error()),
		)
		writeHTTPError(w, he)
		return he.Status, err
	}

	capitan.Debug(ctx, ParamsResolved,
		OperationIDKey.Field(h.op.OperationID),
		ParamCountKey.Field(len(params)),
	)

	req := &Request{
		Context:   ctx,
		Request:   r,
		Params:    params,
		Operators: operators,
		Identity:  identity,
	}

	out, err := h.fn(req)
	if err != nil {
		he := FromError(err)
		writeHTTPError(w, he)
		if he.Status < http.StatusInternalServerError {
			// Deliberate client error from the resource method.
			return he.Status, nil
		}
		return he.Status, err
	}

	status := h.op.SuccessStatus()
	if out == nil {
		w.WriteHeader(status)
		return status, nil
	}

	token := negotiateContent(r.Header.Get("Accept"), h.op.ReturnTypes)
	data, contentType, err := marshalResponse(out, token)
	if err != nil {
		capitan.Error(ctx, ResponseEncodeError,
			OperationIDKey.Field(h.op.OperationID),
			ErrorKey.Field(err.Error()),
		)
		he := InternalServerError("")
		writeHTTPError(w, he)
		return he.Status, err
	}
	writeRaw(w, status, contentType, data)

	return status, nil
}

// identify extracts the caller identity. Extraction failures only
// reject requests on operations that declare roles; public operations
// proceed anonymously.
func (h *operationHandler) identify(ctx context.Context, r *http.Request) (Identity, error) {
	extractor := h.engine.extractor
	if extractor == nil {
		return NoIdentity{}, nil
	}
	id, err := extractor(r)
	if err != nil {
		if len(h.op.Roles) == 0 {
			return NoIdentity{}, nil
		}
		capitan.Warn(ctx, AuthenticationFailed,
			MethodKey.Field(r.Method),
			PathKey.Field(r.URL.Path),
			OperationIDKey.Field(h.op.OperationID),
			ErrorKey.Field(err.Error()),
		)
		return nil, Unauthorized("invalid credentials")
	}
	if id == nil {
		return NoIdentity{}, nil
	}
	return id, nil
}

// pathParams pulls route placeholders from the chi routing context.
func pathParams(ctx context.Context) map[string]string {
	params := make(map[string]string)
	if rctx := chi.RouteContext(ctx); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return params
}

// writeHTTPError writes the standard JSON error envelope.
func writeHTTPError(w http.ResponseWriter, he *HTTPError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.Status)
	//nolint:errchkjson // Standard practice after WriteHeader
	json.NewEncoder(w).Encode(he)
}
