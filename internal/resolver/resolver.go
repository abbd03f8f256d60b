package resolver

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/prasenjit/go-meraki-mcp/internal/catalog"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Resolve validates args against spec and builds the request shape.
//
// Caller mistakes (missing, unknown or malformed arguments) come back as
// *models.ValidationError. A placeholder left in the path after
// substitution means the catalog entry itself is broken and is reported
// as *models.CatalogError.
func Resolve(spec *models.OperationSpec, args map[string]any) (*models.ResolvedRequest, error) {
	if spec == nil {
		return nil, &models.CatalogError{Reason: "resolve called without an operation"}
	}

	if err := rejectUnknown(spec, args); err != nil {
		return nil, err
	}

	req := &models.ResolvedRequest{
		Operation: spec,
		Method:    spec.Method,
	}

	path := spec.PathTemplate
	for _, p := range spec.PathParams {
		value, ok, err := resolveParam(p, args)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Path parameters are always required, so this only happens for a broken catalog entry
			continue
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(formatScalar(value)))
	}
	if left := catalog.PathPlaceholders(path); len(left) > 0 {
		return nil, &models.CatalogError{
			OperationID: spec.ID,
			Reason:      "unresolved placeholder {" + left[0] + "} in path " + spec.PathTemplate,
		}
	}
	req.Path = path

	for _, p := range spec.QueryParams {
		value, ok, err := resolveParam(p, args)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		req.Query = append(req.Query, encodeQuery(p.Name, value)...)
	}

	for _, p := range spec.BodyParams {
		raw, present := args[p.Name]
		if present && raw == nil && p.Nullable {
			if req.Body == nil {
				req.Body = make(map[string]any)
			}
			req.Body[p.Name] = nil
			continue
		}

		value, ok, err := resolveParam(p, args)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if req.Body == nil {
			req.Body = make(map[string]any)
		}
		req.Body[p.Name] = value
	}

	return req, nil
}

// resolveParam returns the coerced value of p, or ok=false when the
// parameter is optional, absent and has no default
func resolveParam(p models.ParameterSpec, args map[string]any) (any, bool, error) {
	raw, present := args[p.Name]
	if present && isBlank(raw) && (p.Location != models.LocationBody || p.Required) {
		// an empty path segment or query value is never meaningful
		present = false
	}
	if !present || raw == nil {
		if p.Required {
			return nil, false, &models.ValidationError{
				Param:    p.Name,
				Location: p.Location,
				Reason:   "missing required parameter",
				Expected: string(p.Type),
				Allowed:  p.AllowedValues,
			}
		}
		if p.Default == nil {
			return nil, false, nil
		}
		raw = p.Default
	}

	value, err := coerce(p, raw)
	if err != nil {
		verr := &models.ValidationError{
			Param:    p.Name,
			Location: p.Location,
			Reason:   "cannot convert value to " + string(p.Type),
			Expected: string(p.Type),
			Value:    raw,
		}
		if errors.Is(err, errNotAllowed) {
			verr.Reason = "value not allowed"
			verr.Expected = ""
			verr.Allowed = p.AllowedValues
		}
		return nil, false, verr
	}
	return value, true, nil
}

func isBlank(raw any) bool {
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}

func rejectUnknown(spec *models.OperationSpec, args map[string]any) error {
	var unknown []string
	for name := range args {
		if _, ok := spec.Param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)

	params := spec.Params()
	valid := make([]string, len(params))
	for i, p := range params {
		valid[i] = p.Name
	}
	return &models.ValidationError{
		Param:  unknown[0],
		Reason: "unknown parameter for " + spec.ID,
		Valid:  valid,
	}
}

// encodeQuery renders one query parameter. Arrays use the repeated
// name[]=value form the dashboard API expects.
func encodeQuery(name string, value any) []models.QueryParam {
	if items, ok := value.([]any); ok {
		out := make([]models.QueryParam, 0, len(items))
		for _, item := range items {
			out = append(out, models.QueryParam{Name: name + "[]", Value: formatScalar(item)})
		}
		return out
	}
	return []models.QueryParam{{Name: name, Value: formatScalar(value)}}
}
