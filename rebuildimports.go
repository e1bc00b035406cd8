// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// ImportRebuildSettings controls how RebuildImports lays out the rebuilt
// import directory, the Import Lookup Table, the Import Address Table and
// the optional Original IAT, following the same knobs the emitter this
// was ported from exposes on its import rebuilder.
type ImportRebuildSettings struct {
	// OffsetFromSectionStart is where the import directory data starts,
	// in bytes from the destination section's raw data start.
	OffsetFromSectionStart uint32

	// BuildOriginalIAT also emits an Original IAT (a second, read-only
	// copy of the ILT) and points OriginalFirstThunk at it.
	BuildOriginalIAT bool

	// SaveIATAndOriginalIATRvas, when SetToPEHeaders is set and
	// ZeroDirectoryEntryIAT is not, writes the rebuilt IAT's range into
	// IMAGE_DIRECTORY_ENTRY_IAT. The result's IAT and OriginalIAT ranges are
	// filled in either way. The thunk arrays are always written into the
	// destination section; IAT locations already in the image are not reused.
	SaveIATAndOriginalIATRvas bool

	// FillMissingOriginalIATs controls OriginalFirstThunk when
	// BuildOriginalIAT is false: if set, OriginalFirstThunk still points at
	// the ILT (the legacy pre-bound-imports convention some loaders and
	// tools expect); if unset, OriginalFirstThunk is left zero, matching
	// linkers that only ever emit a real Original IAT or none at all.
	FillMissingOriginalIATs bool

	// SetToPEHeaders rewrites IMAGE_DIRECTORY_ENTRY_IMPORT (and, when
	// ZeroDirectoryEntryIAT is set, clears IMAGE_DIRECTORY_ENTRY_IAT) in
	// the optional header after a successful rebuild.
	SetToPEHeaders bool

	// ZeroDirectoryEntryIAT clears the image's IAT directory entry: the
	// loader only needs it to temporarily make the backing section
	// writable, and a zeroed entry disables that optimization safely.
	ZeroDirectoryEntryIAT bool

	// AutoStripLastSection shrinks the destination section back down to
	// what the rebuilt directory actually occupies, when it is the
	// image's last section.
	AutoStripLastSection bool
}

// DefaultImportRebuildSettings matches the emitter's own defaults:
// Original IAT is rebuilt, SaveIATAndOriginalIATRvas is set, and the last
// section is auto-stripped. Whether PE headers are updated and whether the
// IAT directory entry is zeroed follow the two arguments.
func DefaultImportRebuildSettings(setToPEHeaders, autoZeroDirectoryEntryIAT bool) ImportRebuildSettings {
	return ImportRebuildSettings{
		BuildOriginalIAT:          true,
		SaveIATAndOriginalIATRvas: true,
		SetToPEHeaders:            setToPEHeaders,
		ZeroDirectoryEntryIAT:     autoZeroDirectoryEntryIAT,
		AutoStripLastSection:      true,
	}
}

// ImportRebuildResult reports where the rebuild placed each table.
type ImportRebuildResult struct {
	Directory    DataDirectory
	IAT          DataDirectory
	OriginalIAT  DataDirectory
}

func thunkSize(is64 bool) uint32 {
	if is64 {
		return 8
	}
	return 4
}

func ordinalFlag(is64 bool) uint64 {
	if is64 {
		return imageOrdinalFlag64
	}
	return uint64(imageOrdinalFlag32)
}

// RebuildImports writes a fresh import directory, name/hint table, ILT,
// IAT and (optionally) Original IAT for every module in imports into
// section, at settings.OffsetFromSectionStart. section must already be
// attached to the image.
func (pe *File) RebuildImports(imports []Import, section *Section, settings ImportRebuildSettings) (ImportRebuildResult, error) {
	if !pe.sectionAttached(section) {
		return ImportRebuildResult{}, ErrSectionIsNotAttached
	}

	is64 := pe.Is64
	tsize := thunkSize(is64)
	ordFlag := ordinalFlag(is64)

	descSize := uint32(binary.Size(ImageImportDescriptor{}))
	// One null terminator descriptor ends the table.
	descTableSize := descSize * uint32(len(imports)+1)

	var namesSize, thunkTableSize uint32
	for _, imp := range imports {
		namesSize += uint32(len(imp.Name) + 1)
		thunkCount := uint32(len(imp.Functions)) + 1 // +1 null terminator
		thunkTableSize += thunkCount * tsize
		for _, fn := range imp.Functions {
			if !fn.ByOrdinal {
				// Hint (WORD) + name + NUL, rounded to an even offset.
				entry := uint32(2+len(fn.Name)+1)
				if entry%2 != 0 {
					entry++
				}
				namesSize += entry
			}
		}
	}

	iltTableSize := thunkTableSize
	iatTableSize := thunkTableSize
	originalIATSize := uint32(0)
	if settings.BuildOriginalIAT {
		originalIATSize = thunkTableSize
	}

	neededSize := descTableSize + namesSize + iltTableSize + iatTableSize + originalIATSize

	isLast := section == &pe.Sections[len(pe.Sections)-1]
	if !isLast {
		aligned, err := alignUp(section.Header.SizeOfRawData, pe.fileAlignment())
		if err != nil {
			return ImportRebuildResult{}, err
		}
		if aligned < neededSize+settings.OffsetFromSectionStart {
			return ImportRebuildResult{}, ErrInsufficientSpace
		}
	}
	if uint32(len(section.Raw)) < neededSize+settings.OffsetFromSectionStart {
		grown := make([]byte, neededSize+settings.OffsetFromSectionStart)
		copy(grown, section.Raw)
		section.Raw = grown
	}

	base := settings.OffsetFromSectionStart
	posDescs := base
	posNames := posDescs + descTableSize
	posILT := posNames + namesSize
	posIAT := posILT + iltTableSize
	posOriginalIAT := posIAT + iatTableSize

	rvaOf := func(off uint32) uint32 { return section.Header.VirtualAddress + off }

	curNames := posNames
	curILT := posILT
	curIAT := posIAT
	curOriginalIAT := posOriginalIAT

	for i, imp := range imports {
		nameRVA := rvaOf(curNames)
		copy(section.Raw[curNames:], []byte(imp.Name+"\x00"))
		curNames += uint32(len(imp.Name) + 1)

		iltStart := curILT
		iatStart := curIAT
		origStart := curOriginalIAT

		for _, fn := range imp.Functions {
			var thunkValue uint64
			if fn.ByOrdinal {
				thunkValue = ordFlag | uint64(fn.Ordinal)
			} else {
				hintNameRVA := rvaOf(curNames)
				binary.LittleEndian.PutUint16(section.Raw[curNames:], fn.Hint)
				copy(section.Raw[curNames+2:], []byte(fn.Name+"\x00"))
				entry := uint32(2+len(fn.Name)+1)
				if entry%2 != 0 {
					entry++
				}
				curNames += entry
				thunkValue = uint64(hintNameRVA)
			}

			writeThunk(section.Raw[curILT:], thunkValue, is64)
			curILT += tsize
			writeThunk(section.Raw[curIAT:], thunkValue, is64)
			curIAT += tsize
			if settings.BuildOriginalIAT {
				writeThunk(section.Raw[curOriginalIAT:], thunkValue, is64)
				curOriginalIAT += tsize
			}
		}
		// Null-terminate each module's thunk arrays.
		curILT += tsize
		curIAT += tsize
		if settings.BuildOriginalIAT {
			curOriginalIAT += tsize
		}

		desc := ImageImportDescriptor{
			Name:       nameRVA,
			FirstThunk: rvaOf(iatStart),
		}
		if settings.BuildOriginalIAT {
			desc.OriginalFirstThunk = rvaOf(origStart)
		} else if settings.FillMissingOriginalIATs {
			desc.OriginalFirstThunk = rvaOf(iltStart)
		}
		writeStruct(section.Raw[posDescs+uint32(i)*descSize:], desc)
	}
	// Final null descriptor is left zeroed by the grown buffer.

	if err := pe.recalculateSectionSizes(section, settings.AutoStripLastSection); err != nil {
		return ImportRebuildResult{}, err
	}

	result := ImportRebuildResult{
		Directory: DataDirectory{VirtualAddress: rvaOf(posDescs), Size: descTableSize},
		IAT:       DataDirectory{VirtualAddress: rvaOf(posIAT), Size: iatTableSize},
	}
	if settings.BuildOriginalIAT {
		result.OriginalIAT = DataDirectory{VirtualAddress: rvaOf(posOriginalIAT), Size: originalIATSize}
	}

	if settings.SetToPEHeaders {
		pe.setDataDirectory(ImageDirectoryEntryImport, result.Directory)
		if settings.ZeroDirectoryEntryIAT {
			pe.setDataDirectory(ImageDirectoryEntryIAT, DataDirectory{})
		} else if settings.SaveIATAndOriginalIATRvas {
			pe.setDataDirectory(ImageDirectoryEntryIAT, result.IAT)
		}
	}

	return result, nil
}

// writeThunk encodes one ILT/IAT/Original-IAT entry, 4 bytes wide for
// PE32 and 8 bytes wide for PE32+.
func writeThunk(dst []byte, value uint64, is64 bool) {
	if is64 {
		binary.LittleEndian.PutUint64(dst, value)
		return
	}
	binary.LittleEndian.PutUint32(dst, uint32(value))
}
