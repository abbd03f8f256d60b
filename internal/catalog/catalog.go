package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// Catalog is the read-only registry of remote operations
type Catalog struct {
	ops      []*models.OperationSpec
	byID     map[string]*models.OperationSpec
	sections []string
}

// New validates ops and builds a catalog in declaration order.
// Any inconsistency is returned as *models.CatalogError.
func New(ops []*models.OperationSpec) (*Catalog, error) {
	c := &Catalog{
		ops:  make([]*models.OperationSpec, 0, len(ops)),
		byID: make(map[string]*models.OperationSpec, len(ops)),
	}

	seenSection := make(map[string]bool)
	for i, op := range ops {
		if op == nil {
			return nil, &models.CatalogError{Reason: fmt.Sprintf("nil operation at position %d", i)}
		}
		if err := validate(op); err != nil {
			return nil, err
		}
		if _, dup := c.byID[op.ID]; dup {
			return nil, &models.CatalogError{OperationID: op.ID, Reason: "duplicate operation id"}
		}
		c.byID[op.ID] = op
		c.ops = append(c.ops, op)

		if op.Section != "" && !seenSection[op.Section] {
			seenSection[op.Section] = true
			c.sections = append(c.sections, op.Section)
		}
	}

	return c, nil
}

// PathPlaceholders returns the placeholder names of a path template in order
func PathPlaceholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

func validate(op *models.OperationSpec) error {
	fail := func(format string, args ...any) error {
		return &models.CatalogError{OperationID: op.ID, Reason: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(op.ID) == "" {
		return &models.CatalogError{Reason: fmt.Sprintf("operation %s %s has no id", op.Method, op.PathTemplate)}
	}
	if !models.ValidMethod(op.Method) {
		return fail("unsupported method %q", op.Method)
	}
	if !strings.HasPrefix(op.PathTemplate, "/") {
		return fail("path template %q must start with /", op.PathTemplate)
	}
	if strings.Count(op.PathTemplate, "{") != strings.Count(op.PathTemplate, "}") {
		return fail("unbalanced braces in path template %q", op.PathTemplate)
	}
	if strings.Contains(op.PathTemplate, "{}") {
		return fail("empty placeholder in path template %q", op.PathTemplate)
	}
	if rest := placeholderPattern.ReplaceAllString(op.PathTemplate, ""); strings.ContainsAny(rest, "{}") {
		return fail("malformed placeholder in path template %q", op.PathTemplate)
	}
	for _, name := range PathPlaceholders(op.PathTemplate) {
		if strings.TrimSpace(name) != name || name == "" {
			return fail("placeholder {%s} has surrounding spaces", name)
		}
	}

	// Placeholders and path params must pair up one to one
	placeholders := make(map[string]int)
	for _, name := range PathPlaceholders(op.PathTemplate) {
		placeholders[name]++
	}
	for name, n := range placeholders {
		if n > 1 {
			return fail("placeholder {%s} appears %d times in path template", name, n)
		}
	}

	pathParams := make(map[string]bool, len(op.PathParams))
	for _, p := range op.PathParams {
		if p.Location != models.LocationPath {
			return fail("parameter %s declared as path parameter but has location %q", p.Name, p.Location)
		}
		if !p.Required {
			return fail("path parameter %s must be required", p.Name)
		}
		if pathParams[p.Name] {
			return fail("path parameter %s declared twice", p.Name)
		}
		if placeholders[p.Name] == 0 {
			return fail("path parameter %s has no placeholder in %q", p.Name, op.PathTemplate)
		}
		pathParams[p.Name] = true
	}
	for name := range placeholders {
		if !pathParams[name] {
			return fail("placeholder {%s} has no path parameter", name)
		}
	}

	seen := make(map[string]models.Location)
	check := func(params []models.ParameterSpec, want models.Location) error {
		for _, p := range params {
			if p.Name == "" {
				return fail("%s parameter with empty name", want)
			}
			if p.Location != want {
				return fail("parameter %s declared as %s parameter but has location %q", p.Name, want, p.Location)
			}
			if !p.Type.Valid() {
				return fail("parameter %s has unknown type %q", p.Name, p.Type)
			}
			if p.Type == models.TypeEnum && len(p.AllowedValues) == 0 {
				return fail("enum parameter %s has no allowed values", p.Name)
			}
			if prev, dup := seen[p.Name]; dup {
				return fail("parameter %s declared in both %s and %s", p.Name, prev, want)
			}
			seen[p.Name] = want
		}
		return nil
	}
	if err := check(op.PathParams, models.LocationPath); err != nil {
		return err
	}
	if err := check(op.QueryParams, models.LocationQuery); err != nil {
		return err
	}
	if err := check(op.BodyParams, models.LocationBody); err != nil {
		return err
	}
	if op.Method == "GET" && len(op.BodyParams) > 0 {
		return fail("GET operation cannot declare body parameters")
	}

	return nil
}

// Lookup returns the operation with the given id
func (c *Catalog) Lookup(id string) (*models.OperationSpec, error) {
	if op, ok := c.byID[id]; ok {
		return op, nil
	}
	return nil, &models.NotFoundError{Kind: "operation", Name: id, Candidates: c.candidates(id, 5)}
}

// candidates suggests ids that look like the unknown id
func (c *Catalog) candidates(id string, limit int) []string {
	needle := strings.ToLower(strings.TrimSpace(id))
	if needle == "" {
		return nil
	}

	type scored struct {
		id    string
		score int
		pos   int
	}
	var found []scored
	for i, op := range c.ops {
		hay := strings.ToLower(op.ID)
		switch {
		case hay == needle:
			found = append(found, scored{op.ID, 3, i})
		case strings.HasPrefix(hay, needle) || strings.HasPrefix(needle, hay):
			found = append(found, scored{op.ID, 2, i})
		case strings.Contains(hay, needle) || strings.Contains(needle, hay):
			found = append(found, scored{op.ID, 1, i})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].pos < found[j].pos
	})

	if len(found) > limit {
		found = found[:limit]
	}
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.id
	}
	return out
}

// All returns every operation in declaration order
func (c *Catalog) All() []*models.OperationSpec {
	out := make([]*models.OperationSpec, len(c.ops))
	copy(out, c.ops)
	return out
}

// Len returns the number of operations
func (c *Catalog) Len() int {
	return len(c.ops)
}

// Sections returns section names in first-seen order
func (c *Catalog) Sections() []string {
	out := make([]string, len(c.sections))
	copy(out, c.sections)
	return out
}

// Merge appends extra operations whose ids are not already present in base
func Merge(base, extra []*models.OperationSpec) []*models.OperationSpec {
	seen := make(map[string]bool, len(base))
	out := make([]*models.OperationSpec, 0, len(base)+len(extra))
	for _, op := range base {
		seen[op.ID] = true
		out = append(out, op)
	}
	for _, op := range extra {
		if op == nil || seen[op.ID] {
			continue
		}
		seen[op.ID] = true
		out = append(out, op)
	}
	return out
}
