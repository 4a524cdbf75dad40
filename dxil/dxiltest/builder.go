// Package dxiltest assembles DXIL containers for tests.
package dxiltest

import (
	"encoding/binary"
)

// Part is one part to place in a container.
type Part struct {
	FourCC string
	Data   []byte
}

// Container lays out parts after a version 1.0 header and its offset table.
func Container(parts ...Part) []byte {
	size := 32 + 4*len(parts)
	offsets := make([]uint32, len(parts))
	for i, p := range parts {
		offsets[i] = uint32(size)
		size += 8 + len(p.Data)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, "DXBC"...)
	buf = append(buf, make([]byte, 16)...)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(parts)))
	for _, off := range offsets {
		buf = binary.LittleEndian.AppendUint32(buf, off)
	}
	for _, p := range parts {
		buf = append(buf, p.FourCC...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Data)))
		buf = append(buf, p.Data...)
	}
	return buf
}

// Program builds a DXIL part payload around bc. The bitcode directly
// follows the 24 byte header.
func Program(kind, major, minor uint32, bc []byte) []byte {
	const headerSize = 24
	buf := make([]byte, 0, headerSize+len(bc))
	buf = binary.LittleEndian.AppendUint32(buf, kind<<16|major<<4|minor)
	buf = binary.LittleEndian.AppendUint32(buf, uint32((headerSize+len(bc)+3)/4))
	buf = append(buf, "DXIL"...)
	buf = binary.LittleEndian.AppendUint32(buf, 0x100)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(bc)))
	buf = append(buf, bc...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// Features builds an SFI0 payload.
func Features(flags uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, flags)
}

// Element is a signature row.
type Element struct {
	Stream        uint32
	SemanticName  string
	SemanticIndex uint32
	SystemValue   uint32
	CompType      uint32
	Register      uint32
	Mask          uint8
	RWMask        uint8
	MinPrecision  uint32
}

// Signature builds an ISG1, OSG1 or PSG1 payload with the semantic names
// stored after the element table.
func Signature(elems ...Element) []byte {
	const tableOffset = 8
	strOffset := tableOffset + 32*len(elems)
	var strs []byte
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(elems)))
	buf = binary.LittleEndian.AppendUint32(buf, tableOffset)
	for _, e := range elems {
		buf = binary.LittleEndian.AppendUint32(buf, e.Stream)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(strOffset+len(strs)))
		strs = append(append(strs, e.SemanticName...), 0)
		buf = binary.LittleEndian.AppendUint32(buf, e.SemanticIndex)
		buf = binary.LittleEndian.AppendUint32(buf, e.SystemValue)
		buf = binary.LittleEndian.AppendUint32(buf, e.CompType)
		buf = binary.LittleEndian.AppendUint32(buf, e.Register)
		buf = append(buf, e.Mask, e.RWMask, 0, 0)
		buf = binary.LittleEndian.AppendUint32(buf, e.MinPrecision)
	}
	return append(buf, strs...)
}
