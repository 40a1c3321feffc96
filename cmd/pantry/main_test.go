package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fairyhunter13/pantry-inventory-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func pantryEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	labels := filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(labels, []byte("BACKGROUND\nhoney\nwater\n"), 0o644))
	csvPath := filepath.Join(dir, "data", "constraints.csv")
	t.Setenv("LABELS_PATH", labels)
	t.Setenv("CONSTRAINTS_PATH", csvPath)
	return csvPath
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pantry version "+Version)
}

func TestConstraintsSetAndList(t *testing.T) {
	csvPath := pantryEnv(t)

	out, err := run(t, "constraints", "set", "honey", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "honey = 3")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Class,Constraint\nhoney,3\nwater,0\n", string(data))

	out, err = run(t, "constraints", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"honey", "3"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"water", "0"}, strings.Fields(lines[2]))
}

func TestConstraintsSetRejects(t *testing.T) {
	pantryEnv(t)
	_, err := run(t, "constraints", "set", "bread", "1")
	require.ErrorContains(t, err, "unknown class")

	_, err = run(t, "constraints", "set", "--", "honey", "-2")
	require.ErrorContains(t, err, "invalid constraint")

	_, err = run(t, "constraints", "set", "honey", "lots")
	require.ErrorContains(t, err, "integer")
}

func TestConstraintsSetMissingRow(t *testing.T) {
	csvPath := pantryEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(csvPath), 0o755))
	require.NoError(t, os.WriteFile(csvPath, []byte("Class,Constraint\nhoney,2\n"), 0o644))

	out, err := run(t, "constraints", "set", "water", "1")
	require.ErrorContains(t, err, "no constraint row")
	assert.NotContains(t, out, "water = 1")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Class,Constraint\nhoney,2\n", string(data))
}

func TestSnapshotRejectsFormat(t *testing.T) {
	_, err := run(t, "snapshot", "--format", "xml")
	require.ErrorContains(t, err, "unknown format")
}

func TestWriteInventoryTable(t *testing.T) {
	inv := model.Inventory{
		Sequence: 1,
		TakenAt:  time.Now(),
		Records: []model.ProductRecord{
			{Name: "honey", Amount: 1, Constraint: 3, Price: 0.69, Currency: "£", Link: "https://shop/honey"},
			{Name: "water", Amount: 2},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, writeInventoryTable(&buf, inv))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"honey", "1", "3", "2", "£0.69", "£1.38", "https://shop/honey"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"water", "2", "0", "0", "-", "-"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"2", "1.38"}, strings.Fields(lines[3]))
}
