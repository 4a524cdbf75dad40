package report

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/chazu/dilithium/dxil"
	"github.com/chazu/dilithium/ir"
)

// Summary is the structured form of a shader written by the yaml and cbor
// formats. Instructions are rendered the same way as in the listing.
type Summary struct {
	Module        string      `yaml:"module" cbor:"1,keyasint"`
	TargetTriple  string      `yaml:"target_triple,omitempty" cbor:"2,keyasint,omitempty"`
	DataLayout    string      `yaml:"data_layout,omitempty" cbor:"3,keyasint,omitempty"`
	ShaderModel   string      `yaml:"shader_model,omitempty" cbor:"4,keyasint,omitempty"`
	Features      []string    `yaml:"features,omitempty" cbor:"5,keyasint,omitempty"`
	Signatures    []Signature `yaml:"signatures,omitempty" cbor:"6,keyasint,omitempty"`
	Globals       []Global    `yaml:"globals,omitempty" cbor:"7,keyasint,omitempty"`
	Functions     []Function  `yaml:"functions" cbor:"8,keyasint"`
	NamedMetadata []string    `yaml:"named_metadata,omitempty" cbor:"9,keyasint,omitempty"`
}

// Signature is one signature part.
type Signature struct {
	Kind     string             `yaml:"kind" cbor:"1,keyasint"`
	Elements []SignatureElement `yaml:"elements" cbor:"2,keyasint"`
}

type SignatureElement struct {
	Name         string `yaml:"name" cbor:"1,keyasint"`
	Index        uint32 `yaml:"index" cbor:"2,keyasint"`
	Register     uint32 `yaml:"register" cbor:"3,keyasint"`
	Mask         uint8  `yaml:"mask" cbor:"4,keyasint"`
	SystemValue  string `yaml:"system_value" cbor:"5,keyasint"`
	CompType     string `yaml:"comp_type" cbor:"6,keyasint"`
	MinPrecision uint32 `yaml:"min_precision,omitempty" cbor:"7,keyasint,omitempty"`
}

type Global struct {
	Name     string `yaml:"name" cbor:"1,keyasint"`
	Type     string `yaml:"type" cbor:"2,keyasint"`
	Linkage  string `yaml:"linkage" cbor:"3,keyasint"`
	Constant bool   `yaml:"constant,omitempty" cbor:"4,keyasint,omitempty"`
}

type Function struct {
	Name        string  `yaml:"name" cbor:"1,keyasint"`
	Type        string  `yaml:"type" cbor:"2,keyasint"`
	Linkage     string  `yaml:"linkage" cbor:"3,keyasint"`
	Declaration bool    `yaml:"declaration,omitempty" cbor:"4,keyasint,omitempty"`
	Blocks      []Block `yaml:"blocks,omitempty" cbor:"5,keyasint,omitempty"`
}

type Block struct {
	Label        string   `yaml:"label" cbor:"1,keyasint"`
	Instructions []string `yaml:"instructions" cbor:"2,keyasint"`
}

// Summarize collects s into a Summary.
func Summarize(s *dxil.Shader) *Summary {
	m := s.Module
	sum := &Summary{
		Module:       m.ID(),
		TargetTriple: m.TargetTriple(),
		DataLayout:   m.DataLayout(),
	}
	if s.Container != nil {
		sum.ShaderModel = s.Program.ProgramVersion.ShaderModel()
		sum.Features = s.Features.Names()
		for _, sig := range s.Signatures {
			out := Signature{Kind: sig.Kind.String()}
			for _, e := range sig.Elements {
				out.Elements = append(out.Elements, SignatureElement{
					Name:         e.SemanticName,
					Index:        e.SemanticIndex,
					Register:     e.Register,
					Mask:         e.Mask,
					SystemValue:  e.SystemValue.String(),
					CompType:     e.CompType.String(),
					MinPrecision: uint32(e.MinPrecision),
				})
			}
			sum.Signatures = append(sum.Signatures, out)
		}
	}

	p := newPrinter(m)
	for _, g := range m.Globals() {
		sum.Globals = append(sum.Globals, Global{
			Name:     p.ref(g),
			Type:     g.ValueType().String(),
			Linkage:  g.Linkage.String(),
			Constant: g.IsConstant,
		})
	}
	for _, f := range m.Functions() {
		sum.Functions = append(sum.Functions, p.summarizeFunction(f))
	}
	for _, n := range m.NamedMetadataList() {
		sum.NamedMetadata = append(sum.NamedMetadata, n.Name())
	}
	return sum
}

func (p *printer) summarizeFunction(f *ir.Function) Function {
	out := Function{
		Name:        p.ref(f),
		Type:        f.FunctionType().String(),
		Linkage:     f.Linkage.String(),
		Declaration: f.IsDeclaration(),
	}
	p.number(f)
	for _, bb := range f.Blocks() {
		b := Block{Label: p.label(bb), Instructions: []string{}}
		for _, inst := range bb.Instructions() {
			b.Instructions = append(b.Instructions, p.instruction(inst))
		}
		out.Blocks = append(out.Blocks, b)
	}
	return out
}

// cborEncMode encodes canonically so equal summaries produce equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCBOR serializes a Summary to canonical CBOR.
func MarshalCBOR(s *Summary) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalCBOR deserializes a Summary from CBOR.
func UnmarshalCBOR(data []byte) (*Summary, error) {
	var s Summary
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "report: unmarshal summary")
	}
	return &s, nil
}

// MarshalYAML serializes a Summary to YAML.
func MarshalYAML(s *Summary) ([]byte, error) {
	return yaml.Marshal(s)
}

// Formats accepted by Write.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatCBOR = "cbor"
)

// Write renders s to w in the given format.
func Write(w io.Writer, format string, s *dxil.Shader) error {
	var data []byte
	var err error
	switch format {
	case FormatText, "":
		return WriteListing(w, s)
	case FormatYAML:
		data, err = MarshalYAML(Summarize(s))
	case FormatCBOR:
		data, err = MarshalCBOR(Summarize(s))
	default:
		return errors.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding %s", format)
	}
	_, err = w.Write(data)
	return err
}
