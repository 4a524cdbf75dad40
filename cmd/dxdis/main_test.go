package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/dilithium/bitcode"
	"github.com/chazu/dilithium/bitcode/bitcodetest"
	"github.com/chazu/dilithium/dxil"
	"github.com/chazu/dilithium/dxil/dxiltest"
	"github.com/chazu/dilithium/ir"
	"github.com/chazu/dilithium/report"
)

func writeInput(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shader.dxil")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func computeShader() []byte {
	return dxiltest.Container(
		dxiltest.Part{FourCC: "SFI0", Data: dxiltest.Features(uint64(dxil.FeatureDoubles))},
		dxiltest.Part{FourCC: "DXIL", Data: dxiltest.Program(uint32(dxil.ComputeShader), 6, 2, bitcodetest.VoidMainModule())},
	)
}

func TestMissingArguments(t *testing.T) {
	if _, err := run(t); err == nil {
		t.Fatal("no error without INPUT")
	}
	if _, err := run(t, "a", "b", "c"); err == nil {
		t.Fatal("no error with three arguments")
	}
}

func TestListToStdout(t *testing.T) {
	out, err := run(t, writeInput(t, computeShader()))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"; ModuleID = 'shader.dxil'",
		"; Shader model: cs_6_2",
		"Double-precision floating point",
		"define void @main()",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListToFile(t *testing.T) {
	input := writeInput(t, bitcodetest.CountModule())
	output := filepath.Join(t.TempDir(), "out.yaml")
	stdout, err := run(t, "--format", "yaml", "--lazy-metadata", input, output)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing", stdout)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "@count") || !strings.Contains(string(data), "functions:") {
		t.Errorf("yaml output:\n%s", data)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "dxdis.toml")
	if err := os.WriteFile(cfg, []byte("[output]\nformat = \"cbor\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	input := writeInput(t, computeShader())

	out, err := run(t, "--config", cfg, input)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := report.UnmarshalCBOR([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if sum.ShaderModel != "cs_6_2" {
		t.Errorf("shader model = %q", sum.ShaderModel)
	}

	// Flags win over the file.
	out, err = run(t, "--config", cfg, "--format", "text", input)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "; ModuleID") {
		t.Errorf("text output expected, got %q", out)
	}

	if _, err := run(t, "--format", "xml", input); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestCorruptInput(t *testing.T) {
	data := computeShader()
	data[28] = 0xFF // part count
	if _, err := run(t, writeInput(t, data)); err == nil {
		t.Fatal("corrupt container accepted")
	}
}

var errDiskFull = errors.New("disk full")

// failingCloser accepts every write and fails on Close, like a file whose
// final flush does not reach the disk.
type failingCloser struct {
	bytes.Buffer
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return errDiskFull
}

func TestCloseErrorReported(t *testing.T) {
	shader, err := dxil.Load(ir.NewContext(), bitcodetest.VoidMainModule(), "m", bitcode.Options{})
	if err != nil {
		t.Fatal(err)
	}

	w := &failingCloser{}
	if err := writeAndClose(w, "text", shader); !errors.Is(err, errDiskFull) {
		t.Fatalf("err = %v, want the close error", err)
	}
	if !w.closed || w.Len() == 0 {
		t.Errorf("closed=%v, %d bytes written", w.closed, w.Len())
	}

	w = &failingCloser{}
	if err := writeAndClose(w, "xml", shader); err == nil || errors.Is(err, errDiskFull) {
		t.Errorf("err = %v, want the format error", err)
	}
	if !w.closed {
		t.Error("output left open after a write error")
	}
}
