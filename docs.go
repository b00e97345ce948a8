package relic

import (
	"strings"

	"github.com/zoobzio/sentinel"
)

// buildDocument projects the registry into an OpenAPI document. The
// registry is immutable by the time this runs, so the projection is
// deterministic: operations walk in route order and component names
// are sorted.
func buildDocument(reg *Registry, info Info, es *EngineSpec) *OpenAPI {
	doc := &OpenAPI{
		OpenAPI: "3.0.3",
		Info:    info,
		Paths:   make(map[string]PathItem),
		Components: &Components{
			Schemas:   make(map[string]*Schema),
			Responses: make(map[string]*Response),
		},
	}
	securityScheme := ""
	if es != nil {
		doc.Servers = es.Servers
		doc.Tags = es.Tags
		if es.SecurityScheme != "" {
			securityScheme = es.SecurityScheme
			doc.Components.SecuritySchemes = map[string]*SecurityScheme{
				securityScheme: {Type: "http", Scheme: "bearer"},
			}
		}
	}

	addErrorResponses(doc)

	// Responses that name no component fall back to this schema.
	doc.Components.Schemas["default_response"] = &Schema{
		Type:                 "object",
		AdditionalProperties: true,
	}

	processed := make(map[string]bool)
	for _, name := range reg.ComponentNames() {
		c, _ := reg.Component(name)
		doc.Components.Schemas[name] = metadataToSchema(c.Meta)
		collectRelated(doc, c.Meta, processed)
	}

	for _, bound := range reg.Operations() {
		op := bound.Spec
		var enums EnumResolver
		if er, ok := bound.Resource.(EnumResolver); ok {
			enums = er
		}

		operation := &Operation{
			OperationID: op.OperationID,
			Summary:     op.Summary,
			Description: op.Description,
			Tags:        op.Tags,
			Responses:   responsesFor(op, reg),
		}
		for _, p := range op.Params {
			if p.InRequestBody() {
				continue
			}
			operation.Parameters = append(operation.Parameters, Parameter{
				Name:        p.Name,
				In:          p.Location,
				Description: p.Description,
				Required:    p.Required,
				Schema:      paramSchema(p, enums),
			})
		}
		operation.RequestBody = requestBodyFor(op, enums)
		if len(op.Roles) > 0 && securityScheme != "" {
			operation.Security = []map[string][]string{{securityScheme: {}}}
		}

		pathItem := doc.Paths[bound.Route]
		setOperationForMethod(&pathItem, strings.ToUpper(op.Operation), operation)
		doc.Paths[bound.Route] = pathItem
	}

	return doc
}

// paramSchema builds the schema for one declared parameter, resolving
// the enum name against the owning resource at build time. Unions keep
// their pipe-joined type name; OpenAPI has no native union type and the
// original vocabulary carries through.
func paramSchema(p ParamSpec, enums EnumResolver) *Schema {
	schema := &Schema{Type: p.Type()}
	if schema.Type == TypeArray {
		schema.Items = &Schema{Type: p.ItemType()}
	}
	if p.Default != nil {
		if v, err := Coerce(*p.Default, p); err == nil {
			schema.Default = v
		} else {
			schema.Default = *p.Default
		}
	}
	schema.Minimum = p.Min
	schema.Maximum = p.Max
	if p.Enum != "" && enums != nil {
		if values := enums.ResolveEnum(p.Enum); len(values) > 0 {
			enum := make([]any, len(values))
			for i, v := range values {
				enum[i] = v
			}
			schema.Enum = enum
		}
	}
	return schema
}

// requestBodyFor builds the request body from the operation's body and
// form parameters. Binary accepts tokens document a raw upload instead
// of an object schema.
func requestBodyFor(op *OperationSpec, enums EnumResolver) *RequestBody {
	body := op.BodyParams()
	if len(body) == 0 && len(op.Accepts) == 0 {
		return nil
	}

	content := make(map[string]MediaType)
	if len(body) == 0 {
		for _, token := range op.Accepts {
			content[mediaOnly(mimeFor(token))] = MediaType{Schema: bodySchemaFor(token, nil)}
		}
		if len(content) == 0 {
			return nil
		}
		return &RequestBody{Content: content}
	}

	schema := &Schema{
		Type:       TypeObject,
		Properties: make(map[string]*Schema),
	}
	for _, p := range body {
		ps := paramSchema(p, enums)
		ps.Description = p.Description
		schema.Properties[p.Name] = ps
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}

	tokens := op.Accepts
	if len(tokens) == 0 {
		if body[0].Location == InForm {
			tokens = []string{"form"}
		} else {
			tokens = []string{"json"}
		}
	}
	for _, token := range tokens {
		content[mediaOnly(mimeFor(token))] = MediaType{Schema: bodySchemaFor(token, schema)}
	}
	return &RequestBody{
		Required: len(schema.Required) > 0,
		Content:  content,
	}
}

func bodySchemaFor(token string, object *Schema) *Schema {
	if binaryTokens[token] {
		return &Schema{Type: "string", Format: "binary"}
	}
	if object != nil {
		return object
	}
	return &Schema{Type: TypeObject}
}

// responsesFor projects the declared responses, spreading each across
// the operation's return types. A response that names no component
// references the default_response schema.
func responsesFor(op *OperationSpec, reg *Registry) map[string]Response {
	responses := make(map[string]Response, len(op.Responses))
	for _, r := range op.Responses {
		content := make(map[string]MediaType, len(op.ReturnTypes))
		for _, token := range op.ReturnTypes {
			mt := MediaType{}
			switch {
			case binaryTokens[token]:
				mt.Schema = &Schema{Type: "string", Format: "binary"}
			case r.Schema != "":
				mt.Schema = &Schema{Ref: "#/components/schemas/" + r.Schema}
			default:
				mt.Schema = &Schema{Ref: "#/components/schemas/default_response"}
			}
			content[mediaOnly(mimeFor(token))] = mt
		}
		responses[r.Code] = Response{Description: r.Description, Content: content}
	}
	if len(responses) == 0 {
		responses["200"] = Response{Description: "Success"}
	}
	return responses
}

func addErrorResponses(doc *OpenAPI) {
	doc.Components.Schemas["ErrorResponse"] = &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"title":       {Type: "string"},
			"description": {Type: "string"},
		},
		Required: []string{"title"},
	}
	canned := []struct {
		name        string
		description string
	}{
		{"BadRequest", "Bad Request"},
		{"Unauthorized", "Unauthorized"},
		{"Forbidden", "Forbidden"},
		{"NotFound", "Not Found"},
		{"UnprocessableEntity", "Unprocessable Entity"},
		{"TooManyRequests", "Too Many Requests"},
		{"InternalServerError", "Internal Server Error"},
	}
	for _, c := range canned {
		doc.Components.Responses[c.name] = &Response{
			Description: c.description,
			Content: map[string]MediaType{
				"application/json": {
					Schema: &Schema{Ref: "#/components/schemas/ErrorResponse"},
				},
			},
		}
	}
}

// collectRelated walks a component's relationships and adds the schema
// of every reachable type, so $ref targets always resolve.
func collectRelated(doc *OpenAPI, meta sentinel.ModelMetadata, processed map[string]bool) {
	if processed[meta.TypeName] {
		return
	}
	processed[meta.TypeName] = true
	for _, rel := range meta.Relationships {
		relMeta, found := sentinel.Lookup(rel.To)
		if !found {
			continue
		}
		if _, exists := doc.Components.Schemas[relMeta.TypeName]; !exists {
			doc.Components.Schemas[relMeta.TypeName] = metadataToSchema(relMeta)
		}
		collectRelated(doc, relMeta, processed)
	}
}

// metadataToSchema converts sentinel ModelMetadata to an OpenAPI Schema
func metadataToSchema(meta sentinel.ModelMetadata) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	var required []string

	for _, field := range meta.Fields {
		propName, isRequired := parseJSONTag(field)
		if propName == "-" {
			continue
		}

		schema.Properties[propName] = goTypeToSchema(field.Type)

		if isRequired {
			required = append(required, propName)
		}
	}

	if len(required) > 0 {
		schema.Required = required
	}

	return schema
}

// parseJSONTag extracts the JSON property name and determines if field is required
func parseJSONTag(field sentinel.FieldMetadata) (name string, required bool) {
	jsonTag, exists := field.Tags["json"]
	if !exists {
		// No json tag - use field name lowercased
		return strings.ToLower(field.Name), true
	}

	parts := strings.Split(jsonTag, ",")
	name = parts[0]

	if name == "" {
		// Empty name means use field name
		name = strings.ToLower(field.Name)
	}

	// Check for omitempty
	required = true
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			required = false
			break
		}
	}

	return name, required
}

// goTypeToSchema converts a Go type string to an OpenAPI Schema
func goTypeToSchema(goType string) *Schema {
	// Handle pointers
	goType = strings.TrimPrefix(goType, "*")

	// Handle arrays/slices
	if strings.HasPrefix(goType, "[]") {
		elementType := strings.TrimPrefix(goType, "[]")
		return &Schema{
			Type:  "array",
			Items: goTypeToSchema(elementType),
		}
	}

	// Handle maps
	if strings.HasPrefix(goType, "map[") {
		return &Schema{
			Type:                 "object",
			AdditionalProperties: true,
		}
	}

	// Basic type mapping
	switch goType {
	case "string":
		return &Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return &Schema{Type: "integer"}
	case "float32", "float64":
		return &Schema{Type: "number"}
	case "bool":
		return &Schema{Type: "boolean"}
	case "time.Time":
		return &Schema{Type: "string", Format: "date-time"}
	default:
		// Complex type - reference to component schema
		// Extract just the type name (remove package prefix)
		typeName := goType
		if idx := strings.LastIndex(goType, "."); idx != -1 {
			typeName = goType[idx+1:]
		}
		return &Schema{Ref: "#/components/schemas/" + typeName}
	}
}

// setOperationForMethod sets the operation on the correct method field of PathItem
func setOperationForMethod(pathItem *PathItem, method string, operation *Operation) {
	switch method {
	case "GET":
		pathItem.Get = operation
	case "POST":
		pathItem.Post = operation
	case "PUT":
		pathItem.Put = operation
	case "DELETE":
		pathItem.Delete = operation
	case "PATCH":
		pathItem.Patch = operation
	case "OPTIONS":
		pathItem.Options = operation
	case "HEAD":
		pathItem.Head = operation
	}
}
