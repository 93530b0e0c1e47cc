package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NATS_URL", "")

	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "semvocab version "+Version)
}

func TestRunCommandExports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemes.csv"),
		[]byte("id,format,concepts,prefLabel@en\nurn:ex:cs1,triple,defs,Sensors\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.csv"),
		[]byte("subject,predicate,object\n<urn:ex:A>,narrower,<urn:ex:B>\n<urn:ex:B>,narrower,<urn:ex:C>\n"), 0644))
	outPath := filepath.Join(t.TempDir(), "vocab.ttl")

	out, err := execute(t, "run", "--source", dir, "--export", outPath, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "success=true")
	assert.Contains(t, out, "closure:semantic")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	ttl := string(data)
	assert.Contains(t, ttl, "<urn:ex:cs1>\n    a skos:ConceptScheme ;")
	assert.Contains(t, ttl, "skos:narrowerTransitive <urn:ex:C>")
	assert.Contains(t, ttl, "skos:broader <urn:ex:A>")
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--source", t.TempDir(), "--backend", "postgres", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestExportNeedsPersistentStore(t *testing.T) {
	_, err := execute(t, "export", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent store")
}

func TestRunAndExportWithBadger(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemes.csv"), []byte("id\nurn:ex:cs1\n"), 0644))
	storeDir := filepath.Join(t.TempDir(), "store")

	_, err := execute(t, "run", "--source", dir, "--backend", "badger", "--store-dir", storeDir, "--log-level", "error")
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "semvocab.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  backend: badger\n  dir: "+storeDir+"\n"), 0644))
	out, err := execute(t, "export", "--config", cfgPath, "--format", "ntriples", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "<urn:ex:cs1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2004/02/skos/core#ConceptScheme> .")
}
