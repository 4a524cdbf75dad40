package dxil

import (
	"encoding/binary"
	"fmt"
)

const (
	programHeaderSize = 24
	bitcodeHeaderSize = 16
	// bitcodeHeaderOffset is where the bitcode header sits in the program
	// header.
	bitcodeHeaderOffset = 8
)

// ShaderKind is the pipeline stage a program was compiled for.
type ShaderKind uint16

const (
	PixelShader ShaderKind = iota
	VertexShader
	GeometryShader
	HullShader
	DomainShader
	ComputeShader
	Library
	RayGenerationShader
	IntersectionShader
	AnyHitShader
	ClosestHitShader
	MissShader
	CallableShader
	MeshShader
	AmplificationShader
	InvalidShader
)

var shaderKindNames = [...]string{
	"pixel", "vertex", "geometry", "hull", "domain", "compute", "library",
	"raygeneration", "intersection", "anyhit", "closesthit", "miss",
	"callable", "mesh", "amplification", "invalid",
}

// shaderModelPrefixes spell the profile of each kind. Ray tracing stages
// only exist inside libraries.
var shaderModelPrefixes = [...]string{
	"ps", "vs", "gs", "hs", "ds", "cs", "lib", "lib", "lib", "lib", "lib",
	"lib", "lib", "ms", "as", "invalid",
}

func (k ShaderKind) String() string {
	if int(k) < len(shaderKindNames) {
		return shaderKindNames[k]
	}
	return shaderKindNames[InvalidShader]
}

// ProgramVersion packs the shader kind and shader model version:
// kind<<16 | major<<4 | minor.
type ProgramVersion uint32

// EncodeProgramVersion builds a ProgramVersion.
func EncodeProgramVersion(kind ShaderKind, major, minor uint32) ProgramVersion {
	return ProgramVersion(uint32(kind)<<16 | (major&0xF)<<4 | minor&0xF)
}

func (v ProgramVersion) Kind() ShaderKind {
	k := ShaderKind(uint32(v) >> 16)
	if k > InvalidShader {
		return InvalidShader
	}
	return k
}

func (v ProgramVersion) Major() uint32 { return (uint32(v) >> 4) & 0xF }
func (v ProgramVersion) Minor() uint32 { return uint32(v) & 0xF }

// ShaderModel renders the version the way shader profiles are spelled,
// e.g. "ps_6_0".
func (v ProgramVersion) ShaderModel() string {
	return fmt.Sprintf("%s_%d_%d", shaderModelPrefixes[v.Kind()], v.Major(), v.Minor())
}

func (v ProgramVersion) String() string { return v.ShaderModel() }

// BitcodeHeader locates the LLVM bitcode inside a program part. The offset
// is relative to the start of this header.
type BitcodeHeader struct {
	Magic         FourCC
	Version       uint32
	BitcodeOffset uint32
	BitcodeSize   uint32
}

// ProgramHeader is the header of a DXIL part.
type ProgramHeader struct {
	ProgramVersion ProgramVersion
	// SizeInUint32 is the size of the part, header included, in 32-bit
	// words.
	SizeInUint32 uint32
	Bitcode      BitcodeHeader
}

func readProgramHeader(data []byte) ProgramHeader {
	return ProgramHeader{
		ProgramVersion: ProgramVersion(binary.LittleEndian.Uint32(data[0:])),
		SizeInUint32:   binary.LittleEndian.Uint32(data[4:]),
		Bitcode: BitcodeHeader{
			Magic:         FourCC(binary.LittleEndian.Uint32(data[8:])),
			Version:       binary.LittleEndian.Uint32(data[12:]),
			BitcodeOffset: binary.LittleEndian.Uint32(data[16:]),
			BitcodeSize:   binary.LittleEndian.Uint32(data[20:]),
		},
	}
}

func isValidBitcodeHeader(h BitcodeHeader, length uint64) bool {
	end := uint64(h.BitcodeOffset) + uint64(h.BitcodeSize)
	return length > bitcodeHeaderSize &&
		h.BitcodeSize > 0 &&
		length >= end &&
		h.Magic == FourCCDXIL
}

// IsValidProgramHeader reports whether data holds a program header whose
// declared size and bitcode range fit in data.
func IsValidProgramHeader(data []byte) bool {
	if len(data) < programHeaderSize {
		return false
	}
	h := readProgramHeader(data)
	length := uint64(len(data))
	return length >= uint64(h.SizeInUint32)*4 &&
		isValidBitcodeHeader(h.Bitcode, length-bitcodeHeaderOffset)
}

// ParseProgramHeader validates data and returns its header together with
// the bitcode it points at.
func ParseProgramHeader(data []byte) (ProgramHeader, []byte, error) {
	if !IsValidProgramHeader(data) {
		return ProgramHeader{}, nil, ErrInvalidProgramHeader
	}
	h := readProgramHeader(data)
	start := uint64(bitcodeHeaderOffset) + uint64(h.Bitcode.BitcodeOffset)
	end := start + uint64(h.Bitcode.BitcodeSize)
	if end > uint64(len(data)) {
		return ProgramHeader{}, nil, ErrInvalidProgramHeader
	}
	return h, data[start:end], nil
}
