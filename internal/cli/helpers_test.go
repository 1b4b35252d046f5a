package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// proteinFasta writes a FASTA file with one poly-M sequence per header.
func proteinFasta(t *testing.T, lengths map[string]int) string {
	t.Helper()
	var sb strings.Builder
	for header, n := range lengths {
		sb.WriteString(">" + header + "\n")
		sb.WriteString(strings.Repeat("M", n) + "\n")
	}
	path := filepath.Join(t.TempDir(), "proteins.faa")
	writeFile(t, path, sb.String())
	return path
}
