package dxil

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/dilithium/bitcode"
	bc "github.com/chazu/dilithium/bitcode/bitcodetest"
	"github.com/chazu/dilithium/dxil/dxiltest"
	"github.com/chazu/dilithium/ir"
)

func pixelShader() []byte {
	return dxiltest.Container(
		dxiltest.Part{FourCC: "SFI0", Data: dxiltest.Features(uint64(FeatureDoubles | FeatureMinimumPrecision))},
		dxiltest.Part{FourCC: "ISG1", Data: dxiltest.Signature(
			dxiltest.Element{SemanticName: "SV_Position", SystemValue: 1, CompType: 3, Mask: 0xF, RWMask: 0x0},
			dxiltest.Element{SemanticName: "TEXCOORD", SemanticIndex: 1, CompType: 3, Register: 1, Mask: 0x3, RWMask: 0x3},
		)},
		dxiltest.Part{FourCC: "OSG1", Data: dxiltest.Signature(
			dxiltest.Element{SemanticName: "SV_Target", SystemValue: 64, CompType: 3, Mask: 0xF, RWMask: 0xF},
		)},
		dxiltest.Part{FourCC: "DXIL", Data: dxiltest.Program(uint32(PixelShader), 6, 0, bc.VoidMainModule())},
	)
}

func TestParseContainer(t *testing.T) {
	c, err := ParseContainer(pixelShader())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, p := range c.Parts {
		got = append(got, p.FourCC.String())
	}
	if diff := cmp.Diff([]string{"SFI0", "ISG1", "OSG1", "DXIL"}, got); diff != "" {
		t.Errorf("parts (-want +got):\n%s", diff)
	}
	if _, err := c.FindPart(FourCCRootSignature); !errors.Is(err, ErrPartNotFound) {
		t.Errorf("FindPart(RTS0) err = %v", err)
	}
	p, err := c.FindPart(FourCCDXIL)
	if err != nil {
		t.Fatal(err)
	}
	if p.Offset != c.Parts[3].Offset || len(p.Data) != int(p.PartSize) {
		t.Errorf("DXIL part = %+v", p.PartHeader)
	}
}

func TestInvalidContainers(t *testing.T) {
	corrupt := func(f func(b []byte) []byte) []byte { return f(pixelShader()) }
	tests := map[string][]byte{
		"short": []byte("DXBC"),
		"wrong fourcc": corrupt(func(b []byte) []byte {
			copy(b, "DXBD")
			return b
		}),
		"major version": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[20:], 2)
			return b
		}),
		"size past end": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[24:], uint32(len(b)+1))
			return b
		}),
		"part count": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[28:], 1<<20)
			return b
		}),
		"part offset": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[32:], uint32(len(b)-4))
			return b
		}),
		"part size": corrupt(func(b []byte) []byte {
			off := binary.LittleEndian.Uint32(b[32:])
			binary.LittleEndian.PutUint32(b[off+4:], uint32(len(b)))
			return b
		}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if IsValidContainer(data) {
				t.Fatal("accepted")
			}
			if _, err := ParseContainer(data); !errors.Is(err, ErrInvalidContainer) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestProgramVersion(t *testing.T) {
	v := EncodeProgramVersion(ComputeShader, 6, 5)
	if v.Kind() != ComputeShader || v.Major() != 6 || v.Minor() != 5 {
		t.Fatalf("decoded %s %d.%d", v.Kind(), v.Major(), v.Minor())
	}
	if got := v.String(); got != "cs_6_5" {
		t.Errorf("String() = %q", got)
	}
	if got := EncodeProgramVersion(ClosestHitShader, 6, 3).ShaderModel(); got != "lib_6_3" {
		t.Errorf("closest hit model = %q", got)
	}
	if got := ProgramVersion(0xFFFF0060).Kind(); got != InvalidShader {
		t.Errorf("out of range kind = %s", got)
	}
}

func TestProgramHeader(t *testing.T) {
	module := bc.VoidMainModule()
	part := dxiltest.Program(uint32(VertexShader), 6, 1, module)
	h, code, err := ParseProgramHeader(part)
	if err != nil {
		t.Fatal(err)
	}
	if h.ProgramVersion.ShaderModel() != "vs_6_1" || h.Bitcode.Magic != FourCCDXIL {
		t.Errorf("header = %+v", h)
	}
	if !cmp.Equal(code, module) {
		t.Error("bitcode does not match the embedded module")
	}

	bad := append([]byte(nil), part...)
	copy(bad[8:], "DXBC")
	if _, _, err := ParseProgramHeader(bad); !errors.Is(err, ErrInvalidProgramHeader) {
		t.Errorf("bad magic err = %v", err)
	}
	short := append([]byte(nil), part...)
	binary.LittleEndian.PutUint32(short[20:], uint32(len(part)))
	if IsValidProgramHeader(short) {
		t.Error("oversized bitcode accepted")
	}
}

func TestFeatureNames(t *testing.T) {
	f, err := ParseFeatureInfo(dxiltest.Features(uint64(FeatureDoubles | FeatureWaveOps)))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Double-precision floating point", "Wave level operations"}, f.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if _, err := ParseFeatureInfo([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidContainer) {
		t.Errorf("short SFI0 err = %v", err)
	}
}

func TestParseSignature(t *testing.T) {
	data := dxiltest.Signature(
		dxiltest.Element{SemanticName: "SV_Position", SystemValue: 1, CompType: 3, Mask: 0xF},
		dxiltest.Element{SemanticName: "COLOR", SemanticIndex: 2, CompType: 6, Register: 3, Mask: 0x7, RWMask: 0x1, MinPrecision: 1},
	)
	sig, err := ParseSignature(FourCCInputSignature, data)
	if err != nil {
		t.Fatal(err)
	}
	want := []SignatureElement{
		{SemanticName: "SV_Position", SystemValue: SVPosition, CompType: CompFloat32, Mask: 0xF},
		{SemanticName: "COLOR", SemanticIndex: 2, CompType: CompFloat16, Register: 3, Mask: 0x7, RWMask: 0x1, MinPrecision: MinPrecisionFloat16},
	}
	if diff := cmp.Diff(want, sig.Elements); diff != "" {
		t.Errorf("elements (-want +got):\n%s", diff)
	}
	if got := MaskString(0x5); got != "x z " {
		t.Errorf("MaskString = %q", got)
	}
	if SVTarget.String() != "TARGET" || SystemValue(99).String() != "SV(99)" {
		t.Error("system value names")
	}

	truncated := data[:len(data)-3]
	if _, err := ParseSignature(FourCCInputSignature, truncated); !errors.Is(err, ErrInvalidContainer) {
		t.Errorf("unterminated name err = %v", err)
	}
	binary.LittleEndian.PutUint32(data[0:], 100)
	if _, err := ParseSignature(FourCCInputSignature, data); !errors.Is(err, ErrInvalidContainer) {
		t.Errorf("oversized count err = %v", err)
	}
}

func TestExtractBitcode(t *testing.T) {
	module := bc.VoidMainModule()
	raw, err := ExtractBitcode(module)
	if err != nil || !cmp.Equal(raw, module) {
		t.Fatalf("raw input not passed through: %v", err)
	}
	noProgram := dxiltest.Container(dxiltest.Part{FourCC: "SFI0", Data: dxiltest.Features(0)})
	if _, err := ExtractBitcode(noProgram); !errors.Is(err, ErrPartNotFound) {
		t.Errorf("err = %v, want part not found", err)
	}
}

func TestLoadLLVMModule(t *testing.T) {
	for name, data := range map[string][]byte{
		"container": pixelShader(),
		"raw":       bc.VoidMainModule(),
	} {
		t.Run(name, func(t *testing.T) {
			m, err := LoadLLVMModule(ir.NewContext(), data, "shader", bitcode.Options{})
			if err != nil {
				t.Fatal(err)
			}
			if m.Size() != 1 {
				t.Fatalf("module has %d functions", m.Size())
			}
			f := m.Functions()[0]
			if f.Name() != "main" || f.IsDeclaration() || f.NumBlocks() != 1 {
				t.Fatalf("@%s: declaration=%v blocks=%d", f.Name(), f.IsDeclaration(), f.NumBlocks())
			}
			ret, ok := f.EntryBlock().Terminator().(*ir.ReturnInst)
			if !ok || ret.NumOperands() != 0 {
				t.Errorf("terminator = %v, want ret void", f.EntryBlock().Terminator())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	s, err := Load(ir.NewContext(), pixelShader(), "ps.dxil", bitcode.Options{LazyMetadata: true})
	if err != nil {
		t.Fatal(err)
	}
	if s.Container == nil || s.Program.ProgramVersion.ShaderModel() != "ps_6_0" {
		t.Fatalf("program = %s", s.Program.ProgramVersion)
	}
	if s.Features != FeatureDoubles|FeatureMinimumPrecision {
		t.Errorf("features = %#x", uint64(s.Features))
	}
	if len(s.Signatures) != 2 || s.Signatures[0].Kind != FourCCInputSignature || s.Signatures[1].Elements[0].SystemValue != SVTarget {
		t.Errorf("signatures = %+v", s.Signatures)
	}
	if s.Module.Function("main") == nil {
		t.Error("no @main")
	}

	raw, err := Load(ir.NewContext(), bc.VoidMainModule(), "raw", bitcode.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if raw.Container != nil || len(raw.Signatures) != 0 {
		t.Errorf("raw input decoded container parts: %+v", raw)
	}
}
