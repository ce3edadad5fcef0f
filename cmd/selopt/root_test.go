package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = "r = 1\nt = 2\nl = 1\nm = 16\na = 2\nf = 4\n"

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "query.txt", "0.5 0.25 0.75\n\n0.0625 0.125\n")
	cfg := writeFile(t, dir, "config.txt", testConfig)

	stdout, stderr, err := execute(t, queries, cfg)
	require.NoError(t, err, stderr)

	reports := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n"+strings.Repeat("=", 66)+"\n"+strings.Repeat("=", 66)+"\n")
	require.Len(t, reports, 2, stdout)
	assert.Contains(t, reports[0], "0.5 0.25 0.75\n")
	assert.Contains(t, reports[0], "cost: 12.25\n")
	assert.Contains(t, reports[1], "0.0625 0.125\n")
	assert.Contains(t, reports[1], "cost: 6.4375\n")
	assert.Less(t, strings.Index(stdout, "cost: 12.25"), strings.Index(stdout, "cost: 6.4375"))
	assert.Contains(t, stderr, "optimized queries")
}

func TestRunOutputAndMetrics(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "query.txt", "0.5\n0.1 0.2 0.3\n")
	cfg := writeFile(t, dir, "config.txt", testConfig)
	out := filepath.Join(dir, "out.txt")
	metricsFile := filepath.Join(dir, "selopt.prom")

	stdout, stderr, err := execute(t, queries, cfg, "-o", out, "--metrics-file", metricsFile, "--workers", "1", "--no-prune")
	require.NoError(t, err, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "cost: "))

	data, err = os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `selopt_queries_total{outcome="optimized"} 2`)
	assert.Contains(t, string(data), `selopt_splits_total{result="pruned_c"} 0`)
}

func TestRunExplain(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "query.txt", "0.0625 0.125\n")
	cfg := writeFile(t, dir, "config.txt", testConfig)

	stdout, _, err := execute(t, queries, cfg, "--explain", "table")
	require.NoError(t, err)
	assert.Contains(t, stdout, "first term: t1[o1[i]]")

	stdout, _, err = execute(t, queries, cfg, "--explain", "dot")
	require.NoError(t, err)
	assert.Contains(t, stdout, "digraph")

	_, _, err = execute(t, queries, cfg, "--explain", "svg")
	require.Error(t, err)
}

func TestRunFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "query.txt", "0.5\n")
	cfg := writeFile(t, dir, "config.txt", testConfig)

	// With a = 0 writing the answer is free: fixed cost 5 and no branch.
	stdout, _, err := execute(t, queries, cfg, "--cost-a", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cost: 5.0\n")
}

func TestRunFailedQueries(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "query.txt", "0.5\n1.5 0.2\n0.25\n")
	cfg := writeFile(t, dir, "config.txt", testConfig)

	stdout, stderr, err := execute(t, queries, cfg, "--max-predicates", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 queries")
	assert.Equal(t, 2, strings.Count(stdout, "cost: "))
	assert.Contains(t, stderr, "line=2")
}

func TestRunBadInputs(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.txt", testConfig)
	queries := writeFile(t, dir, "query.txt", "0.5\n")

	_, _, err := execute(t, queries)
	require.Error(t, err)

	_, _, err = execute(t, filepath.Join(dir, "missing.txt"), cfg)
	require.Error(t, err)

	badCfg := writeFile(t, dir, "bad.txt", "r = 1\n")
	_, _, err = execute(t, queries, badCfg)
	require.Error(t, err)
}
