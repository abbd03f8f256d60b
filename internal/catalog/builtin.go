package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

//go:embed operations.yaml
var builtinYAML []byte

type catalogFile struct {
	Operations []*models.OperationSpec `yaml:"operations"`
}

// Builtin builds the catalog from the embedded operation list
func Builtin() (*Catalog, error) {
	ops, err := ParseYAML(builtinYAML)
	if err != nil {
		return nil, err
	}
	return New(ops)
}

// BuiltinOperations returns the embedded operations without building a catalog
func BuiltinOperations() ([]*models.OperationSpec, error) {
	return ParseYAML(builtinYAML)
}

// ParseYAML decodes a YAML operation list and fills implied fields:
// missing backend defaults to meraki, missing locations follow the list
// a parameter is declared in, and path parameters are always required.
func ParseYAML(data []byte) ([]*models.OperationSpec, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for _, op := range file.Operations {
		if op == nil {
			continue
		}
		if op.Backend == "" {
			op.Backend = models.BackendMeraki
		}
		fillLocation(op.PathParams, models.LocationPath)
		fillLocation(op.QueryParams, models.LocationQuery)
		fillLocation(op.BodyParams, models.LocationBody)
		for i := range op.PathParams {
			op.PathParams[i].Required = true
		}
	}

	return file.Operations, nil
}

// LoadFile reads extra operations from a YAML catalog or an OpenAPI 3 document
func LoadFile(path, backend string) ([]*models.OperationSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	if isOpenAPI(data) {
		return LoadOpenAPI(data, backend)
	}
	return ParseYAML(data)
}

func fillLocation(params []models.ParameterSpec, loc models.Location) {
	for i := range params {
		if params[i].Location == "" {
			params[i].Location = loc
		}
	}
}
