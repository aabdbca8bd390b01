package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge"
	mmt "github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/mailmergetest"
)

type fixture struct {
	dir      string
	template string
	rows     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		template: filepath.Join(dir, "letter.docx"),
		rows:     filepath.Join(dir, "people.csv"),
	}
	letter := mmt.Docx(mmt.Paragraph("Dear {FIRST_NAME} {LAST_NAME},") + mmt.SectPr)
	require.NoError(t, os.WriteFile(f.template, letter, 0o600))
	require.NoError(t, os.WriteFile(f.rows, []byte("First_Name,Last_Name\nJohn,Smith\nJane,Doe\n"), 0o600))
	return f
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("MAILMERGE_LOG_LEVEL", "off")
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunVersionAndHelp(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mailmerge dev\n", out)

	out, _, err = runCLI(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")

	out, _, err = runCLI(t, "merge", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--separate")
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"placeholders", "--nope"}},
		{"missing template path", []string{"placeholders"}},
		{"merge without rows", []string{"merge", "-t", "x.docx"}},
		{"invalid workers", []string{"merge", "-t", "x.docx", "-r", "y.csv", "--workers", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, errUsage)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestRunPlaceholders(t *testing.T) {
	f := newFixture(t)

	out, _, err := runCLI(t, "placeholders", f.template)
	require.NoError(t, err)
	assert.Equal(t, "{FIRST_NAME}\n{LAST_NAME}\n", out)

	out, _, err = runCLI(t, "placeholders", "--json", f.template)
	require.NoError(t, err)
	var got []string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"{FIRST_NAME}", "{LAST_NAME}"}, got)
}

func TestRunPlaceholdersWithoutPlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.docx")
	require.NoError(t, os.WriteFile(path, mmt.Docx(mmt.Paragraph("Hello")), 0o600))

	_, _, err := runCLI(t, "placeholders", path)
	require.Error(t, err)
	assert.True(t, mailmerge.IsNoPlaceholdersFound(err))
	assert.Equal(t, 2, exitCode(err))
}

func TestRunMap(t *testing.T) {
	f := newFixture(t)

	out, _, err := runCLI(t, "map", "-t", f.template, "-r", f.rows, "--format", "json")
	require.NoError(t, err)
	var mapping map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &mapping))
	assert.Equal(t, map[string]string{"{FIRST_NAME}": "First_Name", "{LAST_NAME}": "Last_Name"}, mapping)

	out, _, err = runCLI(t, "map", "-t", f.template, "-r", f.rows)
	require.NoError(t, err)
	assert.Contains(t, out, "PLACEHOLDER")
	assert.Contains(t, out, "First_Name")
	assert.Contains(t, out, "John")

	out, _, err = runCLI(t, "map", "-t", f.template, "-r", f.rows, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "{FIRST_NAME}")
	assert.Contains(t, out, ": First_Name")
}

func TestRunMerge(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "merged.docx")

	stdout, _, err := runCLI(t, "merge", "-t", f.template, "-r", f.rows, "-o", out, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(2 rows)")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	paras, err := mmt.BodyParagraphs(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dear John Smith,", mmt.PageBreak, "Dear Jane Doe,"}, paras)
}

func TestRunMergeWithMappingFile(t *testing.T) {
	f := newFixture(t)
	mappingPath := filepath.Join(f.dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(mappingPath, []byte("'{FIRST_NAME}': Last_Name\n'{LAST_NAME}': First_Name\n"), 0o600))
	outDir := filepath.Join(f.dir, "letters")

	_, _, err := runCLI(t, "merge", "-t", f.template, "-r", f.rows, "-m", mappingPath, "--separate", "-o", outDir)
	require.NoError(t, err)

	want := []string{"Dear Smith John,", "Dear Doe Jane,"}
	for i, name := range []string{"document-001.docx", "document-002.docx"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		text, err := mmt.BodyText(data)
		require.NoError(t, err)
		assert.Equal(t, want[i], text)
	}
}

func TestRunMergeIncompleteMapping(t *testing.T) {
	f := newFixture(t)
	mappingPath := filepath.Join(f.dir, "mapping.json")
	require.NoError(t, os.WriteFile(mappingPath, []byte(`{"{FIRST_NAME}": "First_Name" /* last name unmapped */}`), 0o600))

	_, _, err := runCLI(t, "merge", "-t", f.template, "-r", f.rows, "-m", mappingPath, "-o", filepath.Join(f.dir, "out.docx"))
	require.Error(t, err)
	assert.True(t, mailmerge.IsIncompleteMapping(err))
	assert.Equal(t, 2, exitCode(err))
}

func TestRunConfigFile(t *testing.T) {
	f := newFixture(t)
	configPath := filepath.Join(f.dir, "mailmerge.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workers: 0\n"), 0o600))

	_, _, err := runCLI(t, "placeholders", "--config", configPath, f.template)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be positive")
	assert.Equal(t, 1, exitCode(err))
}
