// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// LoadTokenTables reads a token-table file. The file must satisfy
// TokenTablesSchema; omitted tables fall back to the built-in defaults.
func LoadTokenTables(path string) (*TokenTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateTokenTables(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var file TokenTables
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	tables := Default()
	tables.Version = file.Version
	if len(file.Confirm) > 0 {
		tables.Confirm = file.Confirm
	}
	if len(file.Cancel) > 0 {
		tables.Cancel = file.Cancel
	}
	if len(file.Reject) > 0 {
		tables.Reject = file.Reject
	}
	if len(file.CorrectionConfirm) > 0 {
		tables.CorrectionConfirm = file.CorrectionConfirm
	}
	for kind, words := range file.Inquiry {
		tables.Inquiry[kind] = words
	}
	return tables, nil
}

// ValidateTokenTables checks raw JSON against TokenTablesSchema.
func ValidateTokenTables(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(TokenTablesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("invalid token tables: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid token tables: %s", strings.Join(msgs, "; "))
	}
	return nil
}
