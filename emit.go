// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
)

// RebuildOptions controls how RebuildPE lays out the emitted image.
type RebuildOptions struct {
	// StripDOSStub discards everything in the DOS header past its first 8
	// WORDs (and any Rich header overlay) and moves the NT headers up
	// immediately behind them, shrinking the file by the stub's length.
	StripDOSStub bool

	// ChangeSizeOfHeaders recomputes SizeOfHeaders from the new header
	// layout. When false, the image's existing SizeOfHeaders is kept.
	ChangeSizeOfHeaders bool

	// UpdateChecksum recalculates the Optional Header checksum over the
	// freshly emitted bytes before returning them.
	UpdateChecksum bool
}

// RebuildPE serializes the in-memory image (DOS header, Rich header
// overlay, NT headers, data directories, section table and section data)
// into a fresh byte slice, recomputing header offsets the way the file
// would be laid out by a linker. It does not itself realign sections;
// call RealignSections first if trailing padding should be trimmed.
func (pe *File) RebuildPE(opts RebuildOptions) ([]byte, error) {
	if len(pe.Sections) > MaxSectionCount {
		return nil, ErrTooManySections
	}

	dosHdrSize := uint32(binary.Size(pe.DOSHeader))
	richSize := uint32(len(pe.RichHeader.Raw))

	dos := pe.DOSHeader
	var dosWriteSize uint32
	if opts.StripDOSStub {
		dosWriteSize = 8 * 2 // first 8 WORDs
		richSize = 0
	} else {
		dosWriteSize = dosHdrSize
	}

	// Set start of PE headers: right after the (possibly truncated) DOS
	// header and whatever Rich overlay survives.
	dos.AddressOfNewEXEHeader = dosWriteSize + richSize

	numDirs := pe.numberOfRvaAndSizes()
	dirDelta := uint32(ImageNumberOfDirectoryEntries-numDirs) * uint32(binary.Size(DataDirectory{}))

	sizeOfNTHeader := pe.sizeOfNTHeader()
	sectionTableSize := uint32(len(pe.Sections)) * uint32(binary.Size(ImageSectionHeader{}))

	fileAlign := pe.fileAlignment()
	ptrToSectionData, err := alignUp(dosWriteSize+sizeOfNTHeader+richSize-dirDelta+sectionTableSize, fileAlign)
	if err != nil {
		return nil, err
	}

	if len(pe.Sections) > 0 && opts.ChangeSizeOfHeaders {
		sizeOfHeaders := Min([]uint32{ptrToSectionData, pe.Sections[0].Header.VirtualAddress})
		pe.setSizeOfHeaders(sizeOfHeaders)
	}
	pe.setSizeOfOptionalHeader(uint16(pe.sizeOfOptionalHeader()) - uint16(dirDelta))

	// Recompute PointerToRawData for every section from the new header
	// extent, in section-table order.
	ptr := ptrToSectionData
	for i := range pe.Sections {
		pe.Sections[i].Header.PointerToRawData = ptr
		ptr += pe.Sections[i].rawAligned
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, dos); err != nil {
		return nil, err
	}
	// Only the first 8 WORDs of dos were meaningful when stripping; the
	// rest of the struct was written as zero padding by binary.Write, so
	// truncate the buffer back down to dosWriteSize.
	if opts.StripDOSStub {
		buf.Truncate(int(dosWriteSize))
	}

	if richSize > 0 {
		buf.Write(pe.RichHeader.Raw)
	}

	ntBytes, err := pe.encodeNTHeader(numDirs)
	if err != nil {
		return nil, err
	}
	buf.Write(ntBytes)

	for i := range pe.Sections {
		header := pe.Sections[i].Header
		if i == len(pe.Sections)-1 {
			header.SizeOfRawData = uint32(len(pe.Sections[i].Raw))
		}
		if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
			return nil, err
		}
	}

	for i := range pe.Sections {
		s := &pe.Sections[i]
		if gap := int(s.Header.PointerToRawData) - buf.Len(); gap > 0 {
			buf.Write(make([]byte, gap))
		}
		buf.Write(s.Raw)
	}

	out := buf.Bytes()
	if opts.UpdateChecksum {
		writeChecksum(out, dosWriteSize+richSize+uint32(binary.Size(pe.NtHeader.FileHeader))+4+64)
	}

	return out, nil
}

// numberOfRvaAndSizes returns NumberOfRvaAndSizes, already clamped to 16 by
// ParseNTHeader for parsed images.
func (pe *File) numberOfRvaAndSizes() uint32 {
	if pe.Is64 {
		return pe.NtHeader.OptionalHeader.(ImageOptionalHeader64).NumberOfRvaAndSizes
	}
	return pe.NtHeader.OptionalHeader.(ImageOptionalHeader32).NumberOfRvaAndSizes
}

func (pe *File) sizeOfOptionalHeader() uint16 {
	if pe.Is64 {
		return pe.NtHeader.FileHeader.SizeOfOptionalHeader
	}
	return pe.NtHeader.FileHeader.SizeOfOptionalHeader
}

func (pe *File) setSizeOfOptionalHeader(v uint16) {
	pe.NtHeader.FileHeader.SizeOfOptionalHeader = v
}

// sizeOfNTHeader returns sizeof(Signature)+sizeof(FileHeader)+sizeof(active
// OptionalHeader variant), mirroring get_sizeof_nt_header() in the emitter
// this was ported from.
func (pe *File) sizeOfNTHeader() uint32 {
	base := uint32(4) + uint32(binary.Size(pe.NtHeader.FileHeader))
	if pe.Is64 {
		return base + uint32(binary.Size(pe.NtHeader.OptionalHeader.(ImageOptionalHeader64)))
	}
	return base + uint32(binary.Size(pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)))
}

// encodeNTHeader serializes the PE signature, file header and the active
// optional header, truncated to exactly numDirs data directory slots.
func (pe *File) encodeNTHeader(numDirs uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, pe.NtHeader.Signature); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, pe.NtHeader.FileHeader); err != nil {
		return nil, err
	}

	if pe.Is64 {
		oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader64)
		oh.NumberOfRvaAndSizes = numDirs
		full := new(bytes.Buffer)
		if err := binary.Write(full, binary.LittleEndian, oh); err != nil {
			return nil, err
		}
		dirTableOffset := full.Len() - binary.Size(oh.DataDirectory)
		buf.Write(full.Bytes()[:dirTableOffset+int(numDirs)*binary.Size(DataDirectory{})])
	} else {
		oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)
		oh.NumberOfRvaAndSizes = numDirs
		full := new(bytes.Buffer)
		if err := binary.Write(full, binary.LittleEndian, oh); err != nil {
			return nil, err
		}
		dirTableOffset := full.Len() - binary.Size(oh.DataDirectory)
		buf.Write(full.Bytes()[:dirTableOffset+int(numDirs)*binary.Size(DataDirectory{})])
	}

	return buf.Bytes(), nil
}

// writeChecksum recomputes the Optional Header checksum over out and
// patches it in place at checksumOffset, following the same DWORD-sum
// algorithm as (*File).Checksum.
func writeChecksum(out []byte, checksumOffset uint32) {
	var checksum uint64
	const max uint64 = 0x100000000

	dataLen := uint32(len(out))
	if r := dataLen % 4; r != 0 {
		padded := make([]byte, dataLen+(4-r))
		copy(padded, out)
		out = padded
		dataLen = uint32(len(out))
	}

	for i := uint32(0); i < dataLen; i += 4 {
		if i == checksumOffset {
			continue
		}
		checksum = (checksum & 0xffffffff) + uint64(binary.LittleEndian.Uint32(out[i:])) + (checksum >> 32)
		if checksum > max {
			checksum = (checksum & 0xffffffff) + (checksum >> 32)
		}
	}
	checksum = (checksum & 0xffff) + (checksum >> 16)
	checksum = checksum + (checksum >> 16)
	checksum = checksum & 0xffff
	checksum += uint64(len(out))

	if int(checksumOffset)+4 <= len(out) {
		binary.LittleEndian.PutUint32(out[checksumOffset:], uint32(checksum))
	}
}

// RebaseImage rewrites every HIGHLOW/DIR64 relocation target by the delta
// between the image's current base and newBase, then updates ImageBase
// itself. Relocations must already be parsed (pe.Relocations).
func (pe *File) RebaseImage(newBase uint64) error {
	oldBase := pe.imageBase64()
	if oldBase == newBase {
		return nil
	}

	for _, block := range pe.Relocations {
		for _, entry := range block.Entries {
			rva := block.Data.VirtualAddress + uint32(entry.Offset)
			switch entry.Type {
			case ImageRelBasedHighLow:
				raw, err := pe.SliceAtRVA(rva, 4, Raw)
				if err != nil {
					continue
				}
				old := binary.LittleEndian.Uint32(raw)
				binary.LittleEndian.PutUint32(raw, uint32(uint64(old)-oldBase+newBase))
			case ImageRelBasedDir64:
				raw, err := pe.SliceAtRVA(rva, 8, Raw)
				if err != nil {
					continue
				}
				old := binary.LittleEndian.Uint64(raw)
				binary.LittleEndian.PutUint64(raw, old-oldBase+newBase)
			}
		}
	}

	if pe.Is64 {
		oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader64)
		oh.ImageBase = newBase
		pe.NtHeader.OptionalHeader = oh
	} else {
		oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)
		oh.ImageBase = uint32(newBase)
		pe.NtHeader.OptionalHeader = oh
	}
	return nil
}
