package dxil

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// SystemValue is the system-value semantic of a signature element.
type SystemValue uint32

const (
	SVUndefined                  SystemValue = 0
	SVPosition                   SystemValue = 1
	SVClipDistance               SystemValue = 2
	SVCullDistance               SystemValue = 3
	SVRenderTargetArrayIndex     SystemValue = 4
	SVViewportArrayIndex         SystemValue = 5
	SVVertexID                   SystemValue = 6
	SVPrimitiveID                SystemValue = 7
	SVInstanceID                 SystemValue = 8
	SVIsFrontFace                SystemValue = 9
	SVSampleIndex                SystemValue = 10
	SVFinalQuadEdgeTessfactor    SystemValue = 11
	SVFinalQuadInsideTessfactor  SystemValue = 12
	SVFinalTriEdgeTessfactor     SystemValue = 13
	SVFinalTriInsideTessfactor   SystemValue = 14
	SVFinalLineDetailTessfactor  SystemValue = 15
	SVFinalLineDensityTessfactor SystemValue = 16
	SVBarycentrics               SystemValue = 23
	SVShadingRate                SystemValue = 24
	SVCullPrimitive              SystemValue = 25
	SVTarget                     SystemValue = 64
	SVDepth                      SystemValue = 65
	SVCoverage                   SystemValue = 66
	SVDepthGE                    SystemValue = 67
	SVDepthLE                    SystemValue = 68
	SVStencilRef                 SystemValue = 69
	SVInnerCoverage              SystemValue = 70
)

var systemValueNames = map[SystemValue]string{
	SVUndefined:                  "NONE",
	SVPosition:                   "POS",
	SVClipDistance:               "CLIPDST",
	SVCullDistance:               "CULLDST",
	SVRenderTargetArrayIndex:     "RTINDEX",
	SVViewportArrayIndex:         "VPINDEX",
	SVVertexID:                   "VERTID",
	SVPrimitiveID:                "PRIMID",
	SVInstanceID:                 "INSTID",
	SVIsFrontFace:                "FFACE",
	SVSampleIndex:                "SAMPLE",
	SVFinalQuadEdgeTessfactor:    "QUADEDGE",
	SVFinalQuadInsideTessfactor:  "QUADINT",
	SVFinalTriEdgeTessfactor:     "TRIEDGE",
	SVFinalTriInsideTessfactor:   "TRIINT",
	SVFinalLineDetailTessfactor:  "LINEDET",
	SVFinalLineDensityTessfactor: "LINEDEN",
	SVBarycentrics:               "BARYCEN",
	SVShadingRate:                "SHDINGRATE",
	SVCullPrimitive:              "CULLPRIM",
	SVTarget:                     "TARGET",
	SVDepth:                      "DEPTH",
	SVCoverage:                   "COVERAGE",
	SVDepthGE:                    "DEPTHGE",
	SVDepthLE:                    "DEPTHLE",
	SVStencilRef:                 "STENCILREF",
	SVInnerCoverage:              "INNERCOV",
}

func (v SystemValue) String() string {
	if s, ok := systemValueNames[v]; ok {
		return s
	}
	return fmt.Sprintf("SV(%d)", uint32(v))
}

// ComponentType is the scalar type of a signature element.
type ComponentType uint32

const (
	CompUnknown ComponentType = iota
	CompUInt32
	CompSInt32
	CompFloat32
	CompUInt16
	CompSInt16
	CompFloat16
	CompUInt64
	CompSInt64
	CompFloat64
)

var componentTypeNames = [...]string{
	"unknown", "uint", "int", "float", "uint16", "int16", "fp16", "uint64",
	"int64", "double",
}

func (c ComponentType) String() string {
	if int(c) < len(componentTypeNames) {
		return componentTypeNames[c]
	}
	return fmt.Sprintf("comp(%d)", uint32(c))
}

// MinPrecision is the minimum precision hint of a signature element.
type MinPrecision uint32

const (
	MinPrecisionDefault  MinPrecision = 0
	MinPrecisionFloat16  MinPrecision = 1
	MinPrecisionFloat2_8 MinPrecision = 2
	MinPrecisionSInt16   MinPrecision = 4
	MinPrecisionUInt16   MinPrecision = 5
	MinPrecisionAny16    MinPrecision = 0xf0
	MinPrecisionAny10    MinPrecision = 0xf1
)

// SignatureElement is one row of an input, output or patch constant
// signature.
type SignatureElement struct {
	Stream        uint32
	SemanticName  string
	SemanticIndex uint32
	SystemValue   SystemValue
	CompType      ComponentType
	Register      uint32
	Mask          uint8
	// RWMask is NeverWritesMask for outputs and AlwaysReadsMask for inputs.
	RWMask       uint8
	MinPrecision MinPrecision
}

// Signature is a decoded ISG1, OSG1 or PSG1 part.
type Signature struct {
	Kind     FourCC
	Elements []SignatureElement
}

const signatureElementSize = 32

// ParseSignature decodes a signature part payload. String offsets are
// relative to the start of the payload.
func ParseSignature(kind FourCC, data []byte) (*Signature, error) {
	if len(data) < 8 {
		return nil, errors.Wrapf(ErrInvalidContainer, "%s part too short", kind)
	}
	count := uint64(binary.LittleEndian.Uint32(data[0:]))
	offset := uint64(binary.LittleEndian.Uint32(data[4:]))
	if offset+count*signatureElementSize > uint64(len(data)) {
		return nil, errors.Wrapf(ErrInvalidContainer, "%s element table out of bounds", kind)
	}

	sig := &Signature{Kind: kind, Elements: make([]SignatureElement, 0, count)}
	for i := uint64(0); i < count; i++ {
		e := data[offset+i*signatureElementSize:]
		name, err := cString(data, binary.LittleEndian.Uint32(e[4:]))
		if err != nil {
			return nil, errors.Wrapf(err, "%s element %d", kind, i)
		}
		sig.Elements = append(sig.Elements, SignatureElement{
			Stream:        binary.LittleEndian.Uint32(e[0:]),
			SemanticName:  name,
			SemanticIndex: binary.LittleEndian.Uint32(e[8:]),
			SystemValue:   SystemValue(binary.LittleEndian.Uint32(e[12:])),
			CompType:      ComponentType(binary.LittleEndian.Uint32(e[16:])),
			Register:      binary.LittleEndian.Uint32(e[20:]),
			Mask:          e[24],
			RWMask:        e[25],
			MinPrecision:  MinPrecision(binary.LittleEndian.Uint32(e[28:])),
		})
	}
	return sig, nil
}

func cString(data []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(data)) {
		return "", errors.Wrap(ErrInvalidContainer, "semantic name out of bounds")
	}
	rest := data[off:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return "", errors.Wrap(ErrInvalidContainer, "unterminated semantic name")
	}
	return string(rest[:n]), nil
}

// MaskString renders a component mask as "xyzw" with unused lanes blank.
func MaskString(mask uint8) string {
	b := []byte("    ")
	for i, c := range "xyzw" {
		if mask&(1<<i) != 0 {
			b[i] = byte(c)
		}
	}
	return string(b)
}
