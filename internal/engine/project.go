package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Project keeps only the named fields of a decoded JSON body.
// Fields may be gjson paths such as "uplinks.0.ip"; for arrays the
// projection applies to every element. Missing fields are left out.
func Project(body any, fields []string) (any, error) {
	if body == nil || len(fields) == 0 {
		return body, nil
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	data, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	switch {
	case parsed.IsArray():
		out := make([]any, 0)
		parsed.ForEach(func(_, item gjson.Result) bool {
			if item.IsObject() {
				out = append(out, pick(item, fields))
			} else {
				out = append(out, item.Value())
			}
			return true
		})
		return out, nil
	case parsed.IsObject():
		return pick(parsed, fields), nil
	default:
		return body, nil
	}
}

// validateFields rejects field paths that use gjson modifiers or queries
func validateFields(fields []string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" || strings.ContainsAny(f, "#|@*?{}[]") {
			return &models.ValidationError{
				Param:    "fields",
				Reason:   "invalid field path",
				Value:    f,
				Expected: "dot-separated field names",
			}
		}
	}
	return nil
}

func pick(item gjson.Result, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if r := item.Get(f); r.Exists() {
			out[f] = r.Value()
		}
	}
	return out
}

func marshalBody(body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response body: %w", err)
	}
	return data, nil
}
