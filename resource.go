package relic

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Resource is the unit of registration. A resource exposes handler
// methods named On<Verb> or On<Verb><Suffix> with the signature
//
//	func (u *Users) OnGet(req *relic.Request) (any, error)
//
// and maps URL templates to method suffixes so one type can serve
// several routes:
//
//	func (u *Users) Routes() map[string]relic.Route {
//		return map[string]relic.Route{
//			"/users":      {},
//			"/users/{id}": {Suffix: "ByID"},
//		}
//	}
//
// The verb comes from the method name; the suffix selects which
// methods bind to which route. OnGetByID serves GET on the route whose
// suffix is "ByID".
type Resource interface {
	Routes() map[string]Route
}

// Route binds a URL template to the resource methods carrying Suffix.
// An empty suffix binds the bare On<Verb> methods.
type Route struct {
	Suffix string
}

// DocProvider supplies annotation blocks for handler methods, keyed by
// method name. Methods without an entry compile to empty descriptors.
type DocProvider interface {
	Docs() map[string]string
}

// EnumResolver resolves a declared enum name to its allowed values.
// Resolution is late: the engine asks when the API document is built
// and, in strict mode, when a request is checked. Unknown names return
// nil.
type EnumResolver interface {
	ResolveEnum(name string) []string
}

// AuthProvider declares the roles allowed to call each verb, keyed by
// verb name (case-insensitive, "*" for all verbs). The roles land on
// the operation descriptor as advisory metadata; enforcement belongs
// to the identity layer.
type AuthProvider interface {
	Auth() map[string][]string
}

// TagProvider groups a resource's operations under documentation tags.
type TagProvider interface {
	Tags() []string
}

var methodPattern = regexp.MustCompile(`^On(Get|Put|Post|Patch|Delete)([A-Z]\w*)?$`)

// boundOperation pairs a compiled descriptor with the method serving
// it and the resource it came from.
type boundOperation struct {
	Route    string
	Spec     *OperationSpec
	Fn       func(*Request) (any, error)
	Resource Resource
	Skipped  []string
}

// discoverOperations reflects over the resource and compiles one
// operation per (route, verb) pair. A handler method with the wrong
// signature is a registration error, not a silent skip.
func discoverOperations(res Resource) ([]*boundOperation, error) {
	v := reflect.ValueOf(res)
	t := v.Type()
	typeName := resourceName(res)

	var docs map[string]string
	if dp, ok := res.(DocProvider); ok {
		docs = dp.Docs()
	}
	var auth map[string][]string
	if ap, ok := res.(AuthProvider); ok {
		auth = ap.Auth()
	}
	var tags []string
	if tp, ok := res.(TagProvider); ok {
		tags = tp.Tags()
	}

	routes := res.Routes()
	paths := make([]string, 0, len(routes))
	for path := range routes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var ops []*boundOperation
	for _, path := range paths {
		route := routes[path]
		for i := 0; i < t.NumMethod(); i++ {
			m := t.Method(i)
			match := methodPattern.FindStringSubmatch(m.Name)
			if match == nil || match[2] != route.Suffix {
				continue
			}
			fn, ok := v.Method(i).Interface().(func(*Request) (any, error))
			if !ok {
				return nil, fmt.Errorf("%s.%s: handler methods must be func(*relic.Request) (any, error)", typeName, m.Name)
			}
			verb := strings.ToLower(match[1])
			spec, skipped := CompileDoc(docs[m.Name], verb, snakeCase(match[2]), typeName+"."+m.Name)
			spec.Roles = rolesFor(auth, verb)
			spec.Tags = tags
			ops = append(ops, &boundOperation{
				Route:    path,
				Spec:     spec,
				Fn:       fn,
				Resource: res,
				Skipped:  skipped,
			})
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%s: no handler methods match its routes", typeName)
	}
	return ops, nil
}

// resourceName reports the bare type name of a resource.
func resourceName(res Resource) string {
	t := reflect.TypeOf(res)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func rolesFor(auth map[string][]string, verb string) []string {
	for k, roles := range auth {
		if strings.EqualFold(k, verb) {
			return roles
		}
	}
	return auth["*"]
}

// snakeCase converts a method suffix like "ByID" or "ByCpu" to its
// descriptor form: "by_id", "by_cpu".
func snakeCase(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			boundary := i > 0 && (!unicode.IsUpper(runes[i-1]) ||
				(i+1 < len(runes) && !unicode.IsUpper(runes[i+1])))
			if boundary {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
