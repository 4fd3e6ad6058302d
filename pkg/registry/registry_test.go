package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultTables(t *testing.T) {
	d := Default()
	assert.Contains(t, d.Confirm, "تمام")
	assert.Contains(t, d.Confirm, "👍")
	assert.Contains(t, d.Cancel, "مش عايز")
	assert.Contains(t, d.Reject, "no")
	assert.Contains(t, d.CorrectionConfirm, "ده صح")

	raw := `{"version":"1","confirm":["تمام"]}`
	assert.NoError(t, ValidateTokenTables([]byte(raw)))
}

func TestLoadTokenTables_OverridesAndDefaults(t *testing.T) {
	path := writeFile(t, `{
		"version": "2026-10",
		"confirm": ["تمام", "yep"],
		"inquiry": {"price_check": ["بكام"]}
	}`)

	tables, err := LoadTokenTables(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10", tables.Version)
	assert.Equal(t, []string{"تمام", "yep"}, tables.Confirm)
	assert.Equal(t, Default().Cancel, tables.Cancel)
	assert.Equal(t, []string{"بكام"}, tables.Inquiry[InquiryPrice])
	assert.NotEmpty(t, tables.Inquiry[InquiryLocation])
}

func TestLoadTokenTables_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing version", `{"confirm":["ok"]}`, "version"},
		{"duplicate tokens", `{"version":"1","cancel":["x","x"]}`, "invalid token tables"},
		{"empty token", `{"version":"1","reject":[""]}`, "invalid token tables"},
		{"unknown table", `{"version":"1","maybe":["x"]}`, "invalid token tables"},
		{"unknown inquiry kind", `{"version":"1","inquiry":{"weather":["x"]}}`, "invalid token tables"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTokenTables(writeFile(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadTokenTables(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
