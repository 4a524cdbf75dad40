// Package dxil reads DXIL containers: the part table wrapped around the
// LLVM bitcode of a compiled shader.
package dxil

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("dilithium.dxil")

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidContainer     = errors.New("invalid DXIL container")
	ErrInvalidProgramHeader = errors.New("invalid DXIL program header")
	ErrPartNotFound         = errors.New("DXIL container part not found")
)

// ---------------------------------------------------------------------------
// FourCC
// ---------------------------------------------------------------------------

// FourCC is a four character code stored little-endian.
type FourCC uint32

// MakeFourCC packs s, which must be four bytes long.
func MakeFourCC(s string) FourCC {
	return FourCC(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24)
}

func (c FourCC) String() string {
	return string([]byte{byte(c), byte(c >> 8), byte(c >> 16), byte(c >> 24)})
}

var (
	FourCCContainer        = MakeFourCC("DXBC")
	FourCCResourceDef      = MakeFourCC("RDEF")
	FourCCInputSignature   = MakeFourCC("ISG1")
	FourCCOutputSignature  = MakeFourCC("OSG1")
	FourCCPatchConstantSig = MakeFourCC("PSG1")
	FourCCShaderStatistics = MakeFourCC("STAT")
	FourCCShaderDebugInfo  = MakeFourCC("ILDB")
	FourCCShaderDebugName  = MakeFourCC("ILDN")
	FourCCFeatureInfo      = MakeFourCC("SFI0")
	FourCCPrivateData      = MakeFourCC("PRIV")
	FourCCRootSignature    = MakeFourCC("RTS0")
	FourCCDXIL             = MakeFourCC("DXIL")
	FourCCPipelineState    = MakeFourCC("PSV0")
	FourCCRuntimeData      = MakeFourCC("RDAT")
	FourCCShaderHash       = MakeFourCC("HASH")
)

// ---------------------------------------------------------------------------
// Container layout
// ---------------------------------------------------------------------------

const (
	ContainerVersionMajor = 1
	ContainerVersionMinor = 0
	// ContainerMaxSize bounds ContainerSizeInBytes.
	ContainerMaxSize = 0x80000000

	containerHeaderSize = 32
	partHeaderSize      = 8
)

// ContainerHeader is the fixed header at the start of a container. It is
// followed by PartCount offsets to the part headers.
type ContainerHeader struct {
	FourCC               FourCC
	Hash                 [16]byte
	MajorVersion         uint16
	MinorVersion         uint16
	ContainerSizeInBytes uint32
	PartCount            uint32
}

// PartHeader precedes the payload of each part.
type PartHeader struct {
	FourCC   FourCC
	PartSize uint32
}

// Part is one entry of the part table.
type Part struct {
	PartHeader
	Offset uint32
	Data   []byte
}

// Container is a parsed container whose parts alias the input buffer.
type Container struct {
	Header ContainerHeader
	Parts  []Part
}

func readContainerHeader(data []byte) (ContainerHeader, bool) {
	var h ContainerHeader
	if len(data) < containerHeaderSize {
		return h, false
	}
	h.FourCC = FourCC(binary.LittleEndian.Uint32(data[0:]))
	copy(h.Hash[:], data[4:20])
	h.MajorVersion = binary.LittleEndian.Uint16(data[20:])
	h.MinorVersion = binary.LittleEndian.Uint16(data[22:])
	h.ContainerSizeInBytes = binary.LittleEndian.Uint32(data[24:])
	h.PartCount = binary.LittleEndian.Uint32(data[28:])
	return h, true
}

func partOffset(data []byte, i uint32) uint32 {
	return binary.LittleEndian.Uint32(data[containerHeaderSize+4*uint64(i):])
}

// IsValidContainer reports whether data starts with a container whose part
// table and parts all lie within ContainerSizeInBytes.
func IsValidContainer(data []byte) bool {
	h, ok := readContainerHeader(data)
	switch {
	case !ok:
		return false
	case h.FourCC != FourCCContainer:
		return false
	case h.MajorVersion != ContainerVersionMajor:
		return false
	case uint64(h.ContainerSizeInBytes) > uint64(len(data)):
		return false
	case h.ContainerSizeInBytes > ContainerMaxSize:
		return false
	}
	size := uint64(h.ContainerSizeInBytes)
	if 4*uint64(h.PartCount)+containerHeaderSize > size {
		return false
	}
	for i := uint32(0); i < h.PartCount; i++ {
		off := uint64(partOffset(data, i))
		if off+partHeaderSize > size {
			return false
		}
		partSize := uint64(binary.LittleEndian.Uint32(data[off+4:]))
		if off+partHeaderSize+partSize > size {
			return false
		}
	}
	return true
}

// ParseContainer validates data and returns its parts in table order.
func ParseContainer(data []byte) (*Container, error) {
	if !IsValidContainer(data) {
		return nil, ErrInvalidContainer
	}
	h, _ := readContainerHeader(data)
	c := &Container{Header: h, Parts: make([]Part, 0, h.PartCount)}
	for i := uint32(0); i < h.PartCount; i++ {
		off := partOffset(data, i)
		p := Part{Offset: off}
		p.FourCC = FourCC(binary.LittleEndian.Uint32(data[off:]))
		p.PartSize = binary.LittleEndian.Uint32(data[off+4:])
		start := uint64(off) + partHeaderSize
		p.Data = data[start : start+uint64(p.PartSize)]
		c.Parts = append(c.Parts, p)
	}
	log.Debugf("container: version %d.%d, %d bytes, %d parts", h.MajorVersion, h.MinorVersion, h.ContainerSizeInBytes, h.PartCount)
	return c, nil
}

// FindPart returns the first part with the given code.
func (c *Container) FindPart(fourCC FourCC) (*Part, error) {
	for i := range c.Parts {
		if c.Parts[i].FourCC == fourCC {
			return &c.Parts[i], nil
		}
	}
	return nil, errors.Wrapf(ErrPartNotFound, "%s", fourCC)
}
