package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExpandCommand(t *testing.T) {
	out, err := execute(t, "expand", "steps=20,30", "weight=1", "seed=")
	require.NoError(t, err)

	want := []string{
		"steps=20 weight=1 seed=<absent>",
		"steps=30 weight=1 seed=<absent>",
	}
	if diff := cmp.Diff(want, strings.Split(strings.TrimSpace(out), "\n")); diff != "" {
		t.Errorf("expand output mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandRejectsMalformed(t *testing.T) {
	_, err := execute(t, "expand", "steps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected NAME=VALUES")
}

func TestEncodeDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.png")
	_, err := execute(t, "encode", "-o", path, "hello", "world")
	require.NoError(t, err)

	out, err := execute(t, "decode", path)
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestEncodeTerminal(t *testing.T) {
	out, err := execute(t, "encode", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "█")
}
