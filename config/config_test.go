package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[reader]
lazy-metadata = true

[output]
format = "yaml"

[log]
verbosity = 2
file = "dxdis.log"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := &Config{
		Reader: Reader{LazyMetadata: true},
		Output: Output{Format: FormatYAML},
		Log:    Log{Verbosity: 2, File: filepath.Join(dir, "dxdis.log")},
	}
	if diff := cmp.Diff(want, c, cmpopts.IgnoreFields(Config{}, "Path")); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if c.Path != path {
		t.Errorf("path = %q, want %q", c.Path, path)
	}
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, t.TempDir(), "[reader]\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Output.Format != FormatText || c.Reader.LazyMetadata || c.Log.Verbosity != 0 {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":    "[output\nformat = 1",
		"format":    "[output]\nformat = \"xml\"",
		"verbosity": "[log]\nverbosity = -1",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), content)
			if _, err := Load(path); err == nil || !strings.Contains(err.Error(), path) {
				t.Fatalf("err = %v, want an error naming %s", err, path)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[output]\nformat = \"cbor\"\n")
	nested := filepath.Join(root, "shaders", "ps")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c.Output.Format != FormatCBOR {
		t.Errorf("format = %q, want cbor", c.Output.Format)
	}
}
