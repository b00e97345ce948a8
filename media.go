package relic

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// ContentTypes maps annotation content tokens to MIME types. The
// tokens appear in :return and :accepts lists and in response content
// maps of the generated document.
var ContentTypes = map[string]string{
	"binary":  "application/octet-stream",
	"gzip":    "application/gzip",
	"json":    "application/json",
	"msgpack": "application/msgpack",
	"yaml":    "application/yaml",
	"xml":     "application/xml",
	"form":    "application/x-www-form-urlencoded",
	"html":    "text/html; charset=utf-8",
	"text":    "text/plain; charset=utf-8",
	"jpeg":    "image/jpeg",
	"png":     "image/png",
	"gif":     "image/gif",
	"*":       "*/*",
}

// binaryTokens render as a binary body schema instead of an object
// schema in the generated document.
var binaryTokens = map[string]bool{
	"binary": true,
	"gzip":   true,
	"jpeg":   true,
	"png":    true,
	"gif":    true,
}

func mimeFor(token string) string {
	if m, ok := ContentTypes[token]; ok {
		return m
	}
	return ContentTypes["json"]
}

// mediaOnly strips parameters like charset from a MIME value.
func mediaOnly(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}

// decodeRequestBody decodes the request body into a parameter source
// map according to its Content-Type. Only object-shaped media merges
// into parameter resolution: JSON arrays, scalars, and plain text
// yield nil. File parts of multipart forms surface as
// *multipart.FileHeader values under their field names.
func decodeRequestBody(r *http.Request, limit int64) (map[string]any, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return nil, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, UnsupportedMediaType("malformed Content-Type header")
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		body, err := readBody(r, limit)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, BadRequest("invalid JSON body")
		}
		m, _ := decoded.(map[string]any)
		return m, nil

	case mediaType == "application/yaml" || mediaType == "application/x-yaml" || mediaType == "text/yaml":
		body, err := readBody(r, limit)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}
		var decoded any
		if err := yaml.Unmarshal(body, &decoded); err != nil {
			return nil, BadRequest("invalid YAML body")
		}
		m, _ := decoded.(map[string]any)
		return m, nil

	case mediaType == "application/msgpack" || mediaType == "application/x-msgpack":
		body, err := readBody(r, limit)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, nil
		}
		var decoded any
		if err := msgpack.Unmarshal(body, &decoded); err != nil {
			return nil, BadRequest("invalid msgpack body")
		}
		m, _ := decoded.(map[string]any)
		return m, nil

	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, BadRequest("invalid form body")
		}
		return formToMap(r.PostForm), nil

	case strings.HasPrefix(mediaType, "multipart/"):
		mem := limit
		if mem <= 0 {
			mem = 32 << 20
		}
		if err := r.ParseMultipartForm(mem); err != nil {
			return nil, BadRequest("invalid multipart body")
		}
		out := formToMap(url.Values(r.MultipartForm.Value))
		if out == nil {
			out = make(map[string]any)
		}
		for field, headers := range r.MultipartForm.File {
			if len(headers) > 0 {
				out[field] = headers[0]
			}
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil

	case strings.HasPrefix(mediaType, "text/"):
		return nil, nil

	default:
		return nil, UnsupportedMediaType("unsupported Content-Type " + mediaType)
	}
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	reader := io.Reader(r.Body)
	if limit > 0 {
		reader = io.LimitReader(reader, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, BadRequest("failed to read request body")
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, NewHTTPError(http.StatusRequestEntityTooLarge, "request body exceeds size limit")
	}
	return body, nil
}

func formToMap(values url.Values) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, vals := range values {
		switch len(vals) {
		case 0:
		case 1:
			out[k] = vals[0]
		default:
			elems := make([]any, len(vals))
			for i, v := range vals {
				elems[i] = v
			}
			out[k] = elems
		}
	}
	return out
}

// negotiateContent picks the response token: the first declared return
// type the Accept header allows, falling back to the first declared.
func negotiateContent(accept string, returnTypes []string) string {
	if len(returnTypes) == 0 {
		return "json"
	}
	accept = strings.TrimSpace(accept)
	if accept == "" || accept == "*/*" {
		return returnTypes[0]
	}
	for _, clause := range strings.Split(accept, ",") {
		want := mediaOnly(clause)
		if want == "" {
			continue
		}
		for _, token := range returnTypes {
			if mimeMatches(want, mediaOnly(mimeFor(token))) {
				return token
			}
		}
	}
	return returnTypes[0]
}

func mimeMatches(want, have string) bool {
	if want == "*/*" || want == have {
		return true
	}
	if i := strings.IndexByte(want, '/'); i > 0 && want[i+1:] == "*" {
		return strings.HasPrefix(have, want[:i+1])
	}
	return false
}

// marshalResponse encodes v for the given content token, returning the
// payload and its Content-Type. Marshaling happens before anything is
// written so a failure can still produce an error response. Binary and
// text tokens expect []byte or string payloads and stringify anything
// else.
func marshalResponse(v any, token string) ([]byte, string, error) {
	switch token {
	case "yaml":
		data, err := yaml.Marshal(v)
		return data, mimeFor(token), err
	case "msgpack":
		data, err := msgpack.Marshal(v)
		return data, mimeFor(token), err
	case "text", "html", "binary", "gzip", "jpeg", "png", "gif":
		return rawBytes(v), mimeFor(token), nil
	default:
		data, err := json.Marshal(v)
		return data, mimeFor("json"), err
	}
}

func writeRaw(w http.ResponseWriter, status int, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(data)
}

func rawBytes(v any) []byte {
	switch b := v.(type) {
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		return []byte(stringify(v))
	}
}
