// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// RebuildRelocations writes a fresh base relocation directory into
// section, one IMAGE_BASE_RELOCATION block per entry in relocs, each
// block's Type/Offset words packed exactly as parseRelocations expects to
// read them back. Each block is padded with an absolute (no-op) entry
// when its relocation count would leave it DWORD-misaligned.
func (pe *File) RebuildRelocations(relocs []Relocation, section *Section, offsetFromSectionStart uint32, saveToPEHeader, autoStripLastSection bool) (DataDirectory, error) {
	if !pe.sectionAttached(section) {
		return DataDirectory{}, ErrSectionIsNotAttached
	}

	start, err := alignUp(offsetFromSectionStart, 4)
	if err != nil {
		return DataDirectory{}, err
	}

	blockHeaderSize := uint32(binary.Size(ImageBaseRelocation{}))
	neededSize := start - offsetFromSectionStart
	for _, block := range relocs {
		neededSize += blockHeaderSize + uint32(len(block.Entries))*2
		if (neededSize)%4 != 0 {
			neededSize += 2
		}
	}

	isLast := section == &pe.Sections[len(pe.Sections)-1]
	if !isLast {
		aligned, err := alignUp(section.Header.SizeOfRawData, pe.fileAlignment())
		if err != nil {
			return DataDirectory{}, err
		}
		if aligned < neededSize+offsetFromSectionStart {
			return DataDirectory{}, ErrInsufficientSpace
		}
	}
	if uint32(len(section.Raw)) < neededSize+offsetFromSectionStart {
		grown := make([]byte, neededSize+offsetFromSectionStart)
		copy(grown, section.Raw)
		section.Raw = grown
	}

	pos := start
	for _, block := range relocs {
		sizeOfBlock := blockHeaderSize + uint32(len(block.Entries))*2
		if (uint32(len(block.Entries))*2)%4 != 0 {
			sizeOfBlock += 2
		}

		header := ImageBaseRelocation{
			VirtualAddress: block.Data.VirtualAddress,
			SizeOfBlock:    sizeOfBlock,
		}
		writeStruct(section.Raw[pos:], header)
		pos += blockHeaderSize

		for _, entry := range block.Entries {
			packed := uint16(entry.Type)<<12 | (entry.Offset & 0x0fff)
			binary.LittleEndian.PutUint16(section.Raw[pos:], packed)
			pos += 2
		}

		if pos%4 != 0 {
			binary.LittleEndian.PutUint16(section.Raw[pos:], 0)
			pos += 2
		}
	}

	if err := pe.recalculateSectionSizes(section, autoStripLastSection); err != nil {
		return DataDirectory{}, err
	}

	ret := DataDirectory{
		VirtualAddress: section.Header.VirtualAddress + start,
		Size:           neededSize,
	}
	if saveToPEHeader {
		pe.setDataDirectory(ImageDirectoryEntryBaseReloc, ret)
	}
	return ret, nil
}
