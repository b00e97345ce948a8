package relic

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Annotation grammar. A handler's doc block declares its contract with
// field lines:
//
//	:param <type> <name>: [<options>] <description>
//	:response <code> <schema>: <description>
//	:return <types>:
//	:accepts <types>:
//
// Types are scalar names (str, int, float, bool, json), typed arrays
// (list[int]), or pipe unions (str|int). Options are space or comma
// separated inside the brackets: bare flags (required, optional, enum)
// and key=value pairs (in=query, default=x, enum=name, min=0, max=10).
// Content type lists may be a single token or a bracketed list.
//
// Compilation never fails. Entries that do not parse are skipped and
// reported back to the caller.
var (
	paramPattern    = regexp.MustCompile(`^:param\s+(?P<datatype>[\[\]|\w]+)\s+(?P<name>\S+):\s*(?:\[(?P<options>[^\]]*)\])?\s*(?P<description>.*)$`)
	responsePattern = regexp.MustCompile(`^:response\s+(?P<code>\d+)\s*(?P<schema>\w+)?:\s*(?P<description>.*)$`)
	returnPattern   = regexp.MustCompile(`^:return\s*(?P<content>[^:]*):`)
	acceptsPattern  = regexp.MustCompile(`^:accepts\s*(?P<content>[^:]*):`)
	keyValuePattern = regexp.MustCompile(`^(\w+)=(\S+)$`)
	legacyInPattern = regexp.MustCompile(`^in_(\w+)$`)
)

var annotationTokens = []string{":param", ":response", ":return", ":accepts"}

// CompileDoc compiles an annotation block into an operation descriptor.
// The verb, suffix, and operation ID come from the owning method, not
// the doc text. Compilation is pure and deterministic: the same inputs
// always produce the same descriptor, and malformed entries are returned
// in skipped rather than raised.
func CompileDoc(doc, verb, suffix, operationID string) (*OperationSpec, []string) {
	op := &OperationSpec{
		Operation:   verb,
		Suffix:      suffix,
		OperationID: operationID,
		Accepts:     []string{},
		ReturnTypes: []string{"json"},
	}

	doc = cleanDoc(doc)
	op.Summary = docSummary(doc)
	op.Description = docDescription(doc)

	var skipped []string
	type namedParam struct {
		spec  ParamSpec
		entry string
	}
	var params []namedParam
	index := make(map[string]int)

	for _, entry := range annotationEntries(doc) {
		switch {
		case strings.HasPrefix(entry, ":param"):
			p, ok := parseParam(entry)
			if !ok {
				skipped = append(skipped, entry)
				continue
			}
			// Parameter names are unique per operation. A redeclared
			// name replaces the earlier one, which is reported skipped.
			if i, dup := index[p.Name]; dup {
				skipped = append(skipped, params[i].entry)
				params[i] = namedParam{spec: p, entry: entry}
				continue
			}
			index[p.Name] = len(params)
			params = append(params, namedParam{spec: p, entry: entry})

		case strings.HasPrefix(entry, ":response"):
			r, ok := parseResponse(entry)
			if !ok {
				skipped = append(skipped, entry)
				continue
			}
			op.Responses = append(op.Responses, r)

		case strings.HasPrefix(entry, ":return"):
			m := returnPattern.FindStringSubmatch(entry)
			if m == nil {
				skipped = append(skipped, entry)
				continue
			}
			if types := parseContentTokens(m[1]); len(types) > 0 {
				op.ReturnTypes = types
			}

		case strings.HasPrefix(entry, ":accepts"):
			m := acceptsPattern.FindStringSubmatch(entry)
			if m == nil {
				skipped = append(skipped, entry)
				continue
			}
			if types := parseContentTokens(m[1]); len(types) > 0 {
				op.Accepts = types
			}
		}
	}

	for _, p := range params {
		op.Params = append(op.Params, p.spec)
	}
	return op, skipped
}

// annotationEntries groups the doc block into annotation entries. An
// entry starts at a line whose first token is one of the grammar's
// field markers and continues until the next marker, with continuation
// lines joined by single spaces.
func annotationEntries(doc string) []string {
	var entries []string
	var current []string
	flush := func() {
		if current != nil {
			entries = append(entries, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if isAnnotationLine(trimmed) {
			flush()
			current = []string{trimmed}
			continue
		}
		if current != nil && trimmed != "" {
			current = append(current, trimmed)
		}
	}
	flush()
	return entries
}

func isAnnotationLine(line string) bool {
	for _, tok := range annotationTokens {
		if strings.HasPrefix(line, tok) {
			return true
		}
	}
	return false
}

func parseParam(entry string) (ParamSpec, bool) {
	m := paramPattern.FindStringSubmatch(entry)
	if m == nil {
		return ParamSpec{}, false
	}
	p := ParamSpec{
		Name:        m[2],
		Datatype:    m[1],
		Location:    InQuery,
		Description: strings.TrimSpace(m[4]),
	}
	applyOptions(&p, m[3])
	// Path segments are always present when the route matches, so path
	// parameters are required no matter what the options said.
	if p.Location == InPath {
		p.Required = true
	}
	return p, true
}

func applyOptions(p *ParamSpec, options string) {
	if strings.TrimSpace(options) == "" {
		return
	}
	// Substring semantics: any token containing "required" marks the
	// parameter required unless "optional" also appears.
	p.Required = strings.Contains(options, "required") && !strings.Contains(options, "optional")

	for _, tok := range splitOptions(options) {
		if kv := keyValuePattern.FindStringSubmatch(tok); kv != nil {
			key, value := kv[1], kv[2]
			switch key {
			case "in":
				p.Location = strings.ToLower(value)
			case "default":
				v := value
				p.Default = &v
			case "enum":
				p.Enum = value
			case "min":
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					p.Min = &f
				}
			case "max":
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					p.Max = &f
				}
			case "required", "optional":
				// handled by the substring test above
			default:
				if p.Extra == nil {
					p.Extra = make(map[string]string)
				}
				p.Extra[key] = value
			}
			continue
		}

		switch {
		case tok == "required" || tok == "optional":
		case tok == "enum":
			// Bare enum resolves against the plural of the parameter name.
			p.Enum = p.Name + "s"
		case legacyInPattern.MatchString(tok):
			p.Location = strings.ToLower(legacyInPattern.FindStringSubmatch(tok)[1])
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]string)
			}
			p.Extra[tok] = ""
		}
	}
}

func splitOptions(options string) []string {
	return strings.FieldsFunc(options, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func parseResponse(entry string) (ResponseSpec, bool) {
	m := responsePattern.FindStringSubmatch(entry)
	if m == nil {
		return ResponseSpec{}, false
	}
	return ResponseSpec{
		Code:        m[1],
		Schema:      m[2],
		Description: strings.TrimSpace(m[3]),
	}, true
}

// parseContentTokens parses a content type list: "json", "[json xml]",
// or "[json, xml]". Empty elements are dropped.
func parseContentTokens(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// docSummary returns the first prose line of the cleaned doc block.
func docSummary(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isAnnotationLine(line) {
			return ""
		}
		return line
	}
	return ""
}

// docDescription returns the paragraph after the first blank line, up
// to the first annotation marker, with runs of whitespace collapsed.
func docDescription(doc string) string {
	i := strings.Index(doc, "\n\n")
	if i < 0 {
		return ""
	}
	rest := doc[i+2:]
	if j := strings.IndexByte(rest, ':'); j >= 0 {
		rest = rest[:j]
	}
	return strings.Join(strings.Fields(rest), " ")
}

// cleanDoc normalizes a doc block the way raw string literals are
// usually written: leading and trailing blank lines removed, the first
// line's indentation stripped, and the common indentation of the
// remaining lines removed.
func cleanDoc(doc string) string {
	lines := strings.Split(doc, "\n")
	margin := -1
	for _, ln := range lines[1:] {
		trimmed := strings.TrimLeft(ln, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(ln) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	out := make([]string, 0, len(lines))
	out = append(out, strings.TrimLeft(lines[0], " \t"))
	for _, ln := range lines[1:] {
		if margin > 0 && len(ln) >= margin {
			ln = ln[margin:]
		} else if margin > 0 {
			ln = strings.TrimLeft(ln, " \t")
		}
		out = append(out, strings.TrimRight(ln, " \t"))
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
