package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inr99/academy/config"
)

func run(args ...string) (string, error) {
	cmd := root(&config.Config{}, zap.NewNop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedDryRunValidatesSamples(t *testing.T) {
	out, err := run("seed", "--dry-run", "--dir", filepath.Join("..", "..", "seeds"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "ok   ")
	assert.NotContains(t, out, "FAIL")
}

func TestSeedDryRunReportsInvalidManifest(t *testing.T) {
	dir := filepath.Join("..", "..", "internal", "seed", "testdata")
	out, err := run("seed", "--dry-run", "--dir", dir, "--file", "invalid.yaml")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL")
}

func TestSeedRejectsUnknownPolicy(t *testing.T) {
	_, err := run("seed", "--dry-run", "--policy", "overwrite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--policy must be")
}
