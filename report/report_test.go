package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/chazu/dilithium/bitcode"
	bc "github.com/chazu/dilithium/bitcode/bitcodetest"
	"github.com/chazu/dilithium/dxil"
	"github.com/chazu/dilithium/dxil/dxiltest"
	"github.com/chazu/dilithium/ir"
)

func load(t *testing.T, data []byte, name string) *dxil.Shader {
	t.Helper()
	s, err := dxil.Load(ir.NewContext(), data, name, bitcode.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func pixelShader() []byte {
	return dxiltest.Container(
		dxiltest.Part{FourCC: "SFI0", Data: dxiltest.Features(uint64(dxil.FeatureWaveOps))},
		dxiltest.Part{FourCC: "OSG1", Data: dxiltest.Signature(
			dxiltest.Element{SemanticName: "SV_Target", SystemValue: 64, CompType: 3, Mask: 0xF, RWMask: 0xF},
		)},
		dxiltest.Part{FourCC: "DXIL", Data: dxiltest.Program(uint32(dxil.PixelShader), 6, 0, bc.VoidMainModule())},
	)
}

func TestListing(t *testing.T) {
	got := Listing(load(t, bc.CountModule(), "count.bc"))
	want := `; ModuleID = 'count.bc'

define i32 @count(i32 %n) {
entry:
  br label %loop

loop:
  %i = phi i32 [ 0, %entry ], [ %next, %loop ]
  %next = add i32 %i, 1
  %0 = icmp eq i32 %next, %n
  br i1 %0, label %exit, label %loop

exit:
  ret i32 %next
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing (-want +got):\n%s", diff)
	}
}

func TestListingContainer(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatText, load(t, pixelShader(), "ps.dxil")); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"; Shader model: ps_6_0\n",
		";       Wave level operations\n",
		"; Output signature:\n",
		"SV_Target",
		"define void @main() {\n0:\n  ret void\n}\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestSummary(t *testing.T) {
	sum := Summarize(load(t, pixelShader(), "ps.dxil"))
	want := &Summary{
		Module:      "ps.dxil",
		ShaderModel: "ps_6_0",
		Features:    []string{"Wave level operations"},
		Signatures: []Signature{{
			Kind: "OSG1",
			Elements: []SignatureElement{
				{Name: "SV_Target", Mask: 0xF, SystemValue: "TARGET", CompType: "float"},
			},
		}},
		Functions: []Function{{
			Name:    "@main",
			Type:    "void ()",
			Linkage: "external",
			Blocks:  []Block{{Label: "0", Instructions: []string{"ret void"}}},
		}},
	}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}

	t.Run("yaml", func(t *testing.T) {
		data, err := MarshalYAML(sum)
		if err != nil {
			t.Fatal(err)
		}
		var back Summary
		if err := yaml.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(sum, &back); diff != "" {
			t.Errorf("yaml round trip (-want +got):\n%s", diff)
		}
	})

	t.Run("cbor", func(t *testing.T) {
		first, err := MarshalCBOR(sum)
		if err != nil {
			t.Fatal(err)
		}
		second, err := MarshalCBOR(Summarize(load(t, pixelShader(), "ps.dxil")))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, second) {
			t.Error("encoding is not deterministic")
		}
		back, err := UnmarshalCBOR(first)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(sum, back); diff != "" {
			t.Errorf("cbor round trip (-want +got):\n%s", diff)
		}
	})
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, "xml", load(t, bc.VoidMainModule(), "m")); err == nil {
		t.Error("xml accepted")
	}
}
