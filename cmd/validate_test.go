package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidate_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pktcodec.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
pktcodec:
  output:
    format: yaml
  templates:
    - name: syn
      protocol: tcp
      flags: syn
`), 0644))

	var buf bytes.Buffer
	require.NoError(t, runValidate(path, &buf))
	assert.Equal(t, "VALID: log level info, output yaml, 1 template(s)\n", buf.String())
}

func TestRunValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pktcodec.yml")
	require.NoError(t, os.WriteFile(path, []byte("pktcodec:\n  log:\n    level: loud\n"), 0644))

	var buf bytes.Buffer
	err := runValidate(path, &buf)
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "INVALID:")
	assert.Contains(t, buf.String(), "log level loud")
}
