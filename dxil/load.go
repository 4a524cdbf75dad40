package dxil

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/chazu/dilithium/bitcode"
	"github.com/chazu/dilithium/ir"
)

// IsContainer reports whether data starts with the container FourCC. It does
// not validate the rest of the container.
func IsContainer(data []byte) bool {
	return len(data) >= 4 && FourCC(binary.LittleEndian.Uint32(data)) == FourCCContainer
}

// ExtractBitcode returns the LLVM bitcode held in data. A container yields
// the payload of its DXIL part; anything else is returned unchanged for the
// bitcode reader to judge.
func ExtractBitcode(data []byte) ([]byte, error) {
	if !IsContainer(data) {
		return data, nil
	}
	c, err := ParseContainer(data)
	if err != nil {
		return nil, err
	}
	part, err := c.FindPart(FourCCDXIL)
	if err != nil {
		return nil, err
	}
	_, bc, err := ParseProgramHeader(part.Data)
	if err != nil {
		return nil, err
	}
	return bc, nil
}

// LoadLLVMModule reads a container or raw bitcode into a fully materialized
// module.
func LoadLLVMModule(ctx *ir.Context, data []byte, name string, opts bitcode.Options) (*ir.Module, error) {
	bc, err := ExtractBitcode(data)
	if err != nil {
		return nil, err
	}
	return bitcode.ParseModule(ctx, bc, name, opts)
}

// Shader is everything read from one input: the decoded container parts, if
// any, and the module.
type Shader struct {
	// Container is nil for raw bitcode input.
	Container  *Container
	Program    ProgramHeader
	Features   FeatureFlags
	Signatures []*Signature
	Module     *ir.Module
}

var signatureParts = []FourCC{FourCCInputSignature, FourCCOutputSignature, FourCCPatchConstantSig}

// Load reads data like LoadLLVMModule and also decodes the program header,
// feature flags and signatures of a container.
func Load(ctx *ir.Context, data []byte, name string, opts bitcode.Options) (*Shader, error) {
	s := &Shader{}
	bc := data
	if IsContainer(data) {
		c, err := ParseContainer(data)
		if err != nil {
			return nil, err
		}
		s.Container = c
		part, err := c.FindPart(FourCCDXIL)
		if err != nil {
			return nil, err
		}
		if s.Program, bc, err = ParseProgramHeader(part.Data); err != nil {
			return nil, err
		}
		if p, err := c.FindPart(FourCCFeatureInfo); err == nil {
			if s.Features, err = ParseFeatureInfo(p.Data); err != nil {
				return nil, err
			}
		}
		for _, code := range signatureParts {
			p, err := c.FindPart(code)
			if errors.Is(err, ErrPartNotFound) {
				continue
			}
			sig, err := ParseSignature(code, p.Data)
			if err != nil {
				return nil, err
			}
			s.Signatures = append(s.Signatures, sig)
		}
		log.Infof("%s: %s program, %d bytes of bitcode", name, s.Program.ProgramVersion, len(bc))
	}

	m, err := bitcode.ParseModule(ctx, bc, name, opts)
	if err != nil {
		return nil, err
	}
	s.Module = m
	return s, nil
}
