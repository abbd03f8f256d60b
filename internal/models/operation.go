package models

import "strings"

// Location says where a parameter travels in the outbound request
type Location string

const (
	LocationPath  Location = "path"
	LocationQuery Location = "query"
	LocationBody  Location = "body"
)

// ParamType is the declared type of a parameter value
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeEnum    ParamType = "enum"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Valid reports whether t is one of the known parameter types
func (t ParamType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean, TypeEnum, TypeArray, TypeObject:
		return true
	}
	return false
}

// Backends an operation can be sent to
const (
	BackendMeraki = "meraki"
	BackendSelent = "selent"
)

// Methods accepted in the catalog
var Methods = []string{"GET", "POST", "PUT", "DELETE"}

// ValidMethod reports whether m is an accepted HTTP method
func ValidMethod(m string) bool {
	for _, allowed := range Methods {
		if m == allowed {
			return true
		}
	}
	return false
}

// ParameterSpec describes one parameter of an operation
type ParameterSpec struct {
	Name          string    `json:"name" yaml:"name"`
	Location      Location  `json:"location" yaml:"location"`
	Required      bool      `json:"required" yaml:"required"`
	Type          ParamType `json:"type" yaml:"type"`
	AllowedValues []string  `json:"allowedValues,omitempty" yaml:"allowedValues,omitempty"`
	Default       any       `json:"default,omitempty" yaml:"default,omitempty"`
	Nullable      bool      `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// OperationSpec describes one remote API operation
type OperationSpec struct {
	ID           string          `json:"id" yaml:"id"`
	Section      string          `json:"section" yaml:"section"`
	Backend      string          `json:"backend" yaml:"backend"`
	Method       string          `json:"method" yaml:"method"` // GET, POST, PUT, DELETE
	PathTemplate string          `json:"pathTemplate" yaml:"path"`
	PathParams   []ParameterSpec `json:"pathParams,omitempty" yaml:"pathParams,omitempty"`
	QueryParams  []ParameterSpec `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`
	BodyParams   []ParameterSpec `json:"bodyParams,omitempty" yaml:"bodyParams,omitempty"`
	Description  string          `json:"description" yaml:"description"`
	Tags         []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Idempotent reports whether the operation is a read that may be cached
func (o *OperationSpec) Idempotent() bool {
	return o.Method == "GET"
}

// Params returns all parameters in path, query, body order
func (o *OperationSpec) Params() []ParameterSpec {
	all := make([]ParameterSpec, 0, len(o.PathParams)+len(o.QueryParams)+len(o.BodyParams))
	all = append(all, o.PathParams...)
	all = append(all, o.QueryParams...)
	all = append(all, o.BodyParams...)
	return all
}

// Param finds a parameter by name
func (o *OperationSpec) Param(name string) (ParameterSpec, bool) {
	for _, p := range o.Params() {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// HasTag reports whether the operation carries tag (case-insensitive)
func (o *OperationSpec) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// OperationSummary is a lightweight version for listings
type OperationSummary struct {
	ID          string   `json:"id"`
	Section     string   `json:"section"`
	Backend     string   `json:"backend"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// Summary builds the listing view of the operation
func (o *OperationSpec) Summary() OperationSummary {
	return OperationSummary{
		ID:          o.ID,
		Section:     o.Section,
		Backend:     o.Backend,
		Method:      o.Method,
		Path:        o.PathTemplate,
		Description: o.Description,
		Tags:        o.Tags,
	}
}
