package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// LoadOpenAPI converts the operations of an OpenAPI 3 document into
// OperationSpecs for the given backend. Output is ordered by path then
// method so repeated loads declare operations in the same order.
func LoadOpenAPI(data []byte, backend string) ([]*models.OperationSpec, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	if backend == "" {
		backend = models.BackendMeraki
	}
	return extractOperations(doc, backend), nil
}

// extractOperations extracts all operations from the OpenAPI document
func extractOperations(doc *openapi3.T, backend string) []*models.OperationSpec {
	if doc.Paths == nil {
		return nil
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var operations []*models.OperationSpec
	for _, pathPattern := range paths {
		pathItem := pathMap[pathPattern]
		if pathItem == nil {
			continue
		}

		for _, method := range models.Methods {
			op := pathItem.GetOperation(method)
			if op == nil {
				continue
			}

			id := op.OperationID
			if id == "" {
				id = fmt.Sprintf("%s_%s", strings.ToLower(method), sanitizePath(pathPattern))
			}

			description := op.Summary
			if description == "" {
				description = op.Description
			}

			spec := &models.OperationSpec{
				ID:           id,
				Backend:      backend,
				Method:       method,
				PathTemplate: pathPattern,
				Description:  description,
				Tags:         op.Tags,
			}
			if len(op.Tags) > 0 {
				spec.Section = op.Tags[0]
			}

			// Path-level parameters apply unless the operation overrides them
			params := make(map[string]*openapi3.Parameter)
			var order []string
			for _, list := range []openapi3.Parameters{pathItem.Parameters, op.Parameters} {
				for _, ref := range list {
					if ref == nil || ref.Value == nil {
						continue
					}
					key := ref.Value.In + ":" + ref.Value.Name
					if _, ok := params[key]; !ok {
						order = append(order, key)
					}
					params[key] = ref.Value
				}
			}
			for _, key := range order {
				p := params[key]
				switch p.In {
				case openapi3.ParameterInPath:
					ps := parameterFromSchema(p.Name, models.LocationPath, true, p.Schema)
					ps.Description = p.Description
					spec.PathParams = append(spec.PathParams, ps)
				case openapi3.ParameterInQuery:
					ps := parameterFromSchema(p.Name, models.LocationQuery, p.Required, p.Schema)
					ps.Description = p.Description
					spec.QueryParams = append(spec.QueryParams, ps)
				}
			}

			spec.BodyParams = extractBodyParams(op)
			operations = append(operations, spec)
		}
	}

	return operations
}

// extractBodyParams turns the top-level properties of a JSON request body into body parameters
func extractBodyParams(op *openapi3.Operation) []models.ParameterSpec {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	schema := media.Schema.Value
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]models.ParameterSpec, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		ps := parameterFromSchema(name, models.LocationBody, required[name], ref)
		if ref != nil && ref.Value != nil {
			ps.Nullable = ref.Value.Nullable
			ps.Description = ref.Value.Description
		}
		params = append(params, ps)
	}
	return params
}

func parameterFromSchema(name string, loc models.Location, required bool, ref *openapi3.SchemaRef) models.ParameterSpec {
	ps := models.ParameterSpec{
		Name:     name,
		Location: loc,
		Required: required,
		Type:     models.TypeString,
	}
	if ref == nil || ref.Value == nil {
		return ps
	}

	schema := ref.Value
	switch schemaType(schema) {
	case openapi3.TypeInteger:
		ps.Type = models.TypeInteger
	case openapi3.TypeBoolean:
		ps.Type = models.TypeBoolean
	case openapi3.TypeArray:
		ps.Type = models.TypeArray
	case openapi3.TypeObject:
		ps.Type = models.TypeObject
	}
	if len(schema.Enum) > 0 && ps.Type == models.TypeString {
		ps.Type = models.TypeEnum
		for _, v := range schema.Enum {
			ps.AllowedValues = append(ps.AllowedValues, fmt.Sprint(v))
		}
	}
	if schema.Default != nil {
		ps.Default = schema.Default
	}
	return ps
}

func schemaType(schema *openapi3.Schema) string {
	if schema.Type == nil {
		return ""
	}
	if types := schema.Type.Slice(); len(types) > 0 {
		return types[0]
	}
	return ""
}

// isOpenAPI reports whether data looks like an OpenAPI document rather than a catalog file
func isOpenAPI(data []byte) bool {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc["openapi"]
	return ok
}

// sanitizePath converts a path to a valid identifier
func sanitizePath(pathPattern string) string {
	result := strings.ReplaceAll(pathPattern, "{", "")
	result = strings.ReplaceAll(result, "}", "")
	result = strings.ReplaceAll(result, "/", "_")
	result = strings.TrimPrefix(result, "_")
	result = strings.TrimSuffix(result, "_")
	return result
}
