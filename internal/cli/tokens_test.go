package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbot/pkg/registry"
)

func runValidate(t *testing.T, body string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cmd := newValidateTokensCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateTokens_ReportsCounts(t *testing.T) {
	out, err := runValidate(t, `{"version":"2026-10","confirm":["تمام","ok"],"inquiry":{"price_check":["سعر"]}}`)
	require.NoError(t, err)

	assert.Contains(t, out, "version: 2026-10")
	assert.Contains(t, out, "confirm: 2\n")
	assert.Contains(t, out, "inquiry.price_check: 1\n")
	// Omitted tables fall back to the built-in ones.
	assert.Contains(t, out, "cancel: ")
	assert.NotContains(t, out, "cancel: 0\n")
}

func TestValidateTokens_RejectsUnknownInquiryKind(t *testing.T) {
	_, err := runValidate(t, `{"version":"x","inquiry":{"weather":["مطر"]}}`)
	require.Error(t, err)
}

func TestValidateTokens_RejectsMissingVersion(t *testing.T) {
	_, err := runValidate(t, `{"confirm":["ok"]}`)
	require.Error(t, err)
}

func TestValidateTokens_MissingFile(t *testing.T) {
	cmd := newValidateTokensCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.json")})
	assert.Error(t, cmd.Execute())
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"chat", "index-catalog", "refresh-cache", "retry-leads", "validate-tokens"} {
		assert.True(t, names[want], want)
	}
	assert.NotEmpty(t, registry.Default().Confirm)
}
