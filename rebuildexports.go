// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"encoding/binary"
	"sort"
)

// ExportedFunction is one function to place in a rebuilt export directory.
// Ordinal is mandatory; a function with no Name is exported by ordinal
// only, and one with a non-empty ForwardedName is emitted as a forwarder
// instead of a real function RVA.
type ExportedFunction struct {
	Ordinal       uint32
	RVA           uint32
	Name          string
	ForwardedName string
}

// ExportInfo carries the export directory header fields that are not
// derived from the function list itself.
type ExportInfo struct {
	Characteristics uint32
	MajorVersion    uint16
	MinorVersion    uint16
	TimeDateStamp   uint32
	Name            string
}

func (f ExportedFunction) hasName() bool     { return f.Name != "" }
func (f ExportedFunction) isForwarded() bool { return f.ForwardedName != "" }

// RebuildExports writes a fresh export directory into section, at
// offsetFromSectionStart bytes into its raw data. section must already be
// attached to the image (§4.C); the caller chooses autoStripLastSection to
// let the section be shrunk back down to what the new directory actually
// uses when it is the image's last section.
//
// Functions are re-sorted by ordinal; named functions are additionally
// listed, alphabetically, in the name pointer/name ordinal tables, exactly
// as the Windows loader expects to be able to binary-search them.
func (pe *File) RebuildExports(info ExportInfo, functions []ExportedFunction, section *Section, offsetFromSectionStart uint32, saveToPEHeader, autoStripLastSection bool) (DataDirectory, error) {
	if !pe.sectionAttached(section) {
		return DataDirectory{}, ErrSectionIsNotAttached
	}

	exports := make([]ExportedFunction, len(functions))
	copy(exports, functions)

	neededForStrings := uint32(len(info.Name) + 1)
	var numberOfNames uint32
	var maxOrdinal uint32
	ordinalBase := ^uint32(0)
	if len(exports) == 0 {
		ordinalBase = 0
	}

	var neededForNames, neededForForwards uint32
	seenNames := make(map[string]bool, len(exports))
	seenOrdinals := make(map[uint32]bool, len(exports))
	for _, fn := range exports {
		if fn.Ordinal > maxOrdinal {
			maxOrdinal = fn.Ordinal
		}
		if fn.Ordinal < ordinalBase {
			ordinalBase = fn.Ordinal
		}
		if seenOrdinals[fn.Ordinal] {
			return DataDirectory{}, ErrDuplicateExportedFunctionOrdinal
		}
		seenOrdinals[fn.Ordinal] = true

		if fn.hasName() {
			numberOfNames++
			neededForNames += uint32(len(fn.Name) + 1)
			if seenNames[fn.Name] {
				return DataDirectory{}, ErrDuplicateExportedFunctionName
			}
			seenNames[fn.Name] = true
		}
		if fn.isForwarded() {
			neededForForwards += uint32(len(fn.ForwardedName) + 1)
		}
	}

	sort.Slice(exports, func(i, j int) bool { return exports[i].Ordinal < exports[j].Ordinal })

	neededForStrings += neededForNames + neededForForwards
	neededForNameOrdinals := numberOfNames * 2
	neededForNameRVAs := numberOfNames * 4
	var neededForAddresses uint32
	if len(exports) > 0 {
		neededForAddresses = (maxOrdinal - ordinalBase + 1) * 4
	}

	neededSize := uint32(binary.Size(ImageExportDirectory{})) + 4
	neededSize += neededForNameOrdinals
	neededSize += neededForAddresses
	neededSize += neededForStrings
	neededSize += neededForNameRVAs

	isLast := section == &pe.Sections[len(pe.Sections)-1]
	if !isLast {
		aligned, err := alignUp(section.Header.SizeOfRawData, pe.fileAlignment())
		if err != nil {
			return DataDirectory{}, err
		}
		if len(section.Raw) == 0 || aligned < neededSize+offsetFromSectionStart {
			return DataDirectory{}, ErrInsufficientSpace
		}
	}

	if uint32(len(section.Raw)) < neededSize+offsetFromSectionStart {
		grown := make([]byte, neededSize+offsetFromSectionStart)
		copy(grown, section.Raw)
		section.Raw = grown
	}

	dirPos, err := alignUp(offsetFromSectionStart, 4)
	if err != nil {
		return DataDirectory{}, err
	}
	posNames := dirPos + uint32(binary.Size(ImageExportDirectory{})) + uint32(len(info.Name)+1)
	posNameOrdinals := posNames + neededForNames
	posForwards := posNameOrdinals + neededForNameOrdinals
	posAddresses := posForwards + neededForForwards
	posNameRVAs := posAddresses + neededForAddresses

	rvaOf := func(off uint32) uint32 { return section.Header.VirtualAddress + off }

	dir := ImageExportDirectory{
		Characteristics:       info.Characteristics,
		MajorVersion:          info.MajorVersion,
		MinorVersion:          info.MinorVersion,
		TimeDateStamp:         info.TimeDateStamp,
		NumberOfNames:         numberOfNames,
		Base:                  ordinalBase,
		AddressOfFunctions:    rvaOf(posAddresses),
		AddressOfNameOrdinals: rvaOf(posNameOrdinals),
		AddressOfNames:        rvaOf(posNameRVAs),
		Name:                  rvaOf(dirPos + uint32(binary.Size(ImageExportDirectory{}))),
	}
	if len(exports) > 0 {
		dir.NumberOfFunctions = maxOrdinal - ordinalBase + 1
	}

	writeStruct(section.Raw[dirPos:], dir)
	copy(section.Raw[dirPos+uint32(binary.Size(dir)):], []byte(info.Name+"\x00"))

	type namedOrdinal struct {
		name    string
		ordinal uint16
	}
	var sortedNames []namedOrdinal

	lastOrdinal := ordinalBase
	curAddr := posAddresses
	curForward := posForwards
	for _, fn := range exports {
		if fn.Ordinal > lastOrdinal && len(exports) > 0 {
			gap := 4 * (fn.Ordinal - lastOrdinal - 1)
			for i := uint32(0); i < gap; i++ {
				section.Raw[curAddr+i] = 0
			}
			curAddr += gap
			lastOrdinal = fn.Ordinal
		}

		if fn.hasName() {
			sortedNames = append(sortedNames, namedOrdinal{fn.Name, uint16(fn.Ordinal - ordinalBase)})
		}

		if fn.isForwarded() {
			functionRVA := rvaOf(curForward)
			binary.LittleEndian.PutUint32(section.Raw[curAddr:], functionRVA)
			curAddr += 4
			copy(section.Raw[curForward:], []byte(fn.ForwardedName+"\x00"))
			curForward += uint32(len(fn.ForwardedName) + 1)
		} else {
			binary.LittleEndian.PutUint32(section.Raw[curAddr:], fn.RVA)
			curAddr += 4
		}
	}

	sort.Slice(sortedNames, func(i, j int) bool { return sortedNames[i].name < sortedNames[j].name })

	curNames := posNames
	curNameRVAs := posNameRVAs
	curNameOrdinals := posNameOrdinals
	for _, no := range sortedNames {
		nameRVA := rvaOf(curNames)
		binary.LittleEndian.PutUint32(section.Raw[curNameRVAs:], nameRVA)
		curNameRVAs += 4

		copy(section.Raw[curNames:], []byte(no.name+"\x00"))
		curNames += uint32(len(no.name) + 1)

		binary.LittleEndian.PutUint16(section.Raw[curNameOrdinals:], no.ordinal)
		curNameOrdinals += 2
	}

	if err := pe.recalculateSectionSizes(section, autoStripLastSection); err != nil {
		return DataDirectory{}, err
	}

	ret := DataDirectory{VirtualAddress: rvaOf(offsetFromSectionStart), Size: neededSize}
	if saveToPEHeader {
		pe.setDataDirectory(ImageDirectoryEntryExport, ret)
	}
	return ret, nil
}

// sectionAttached reports whether s is one of pe.Sections by identity.
func (pe *File) sectionAttached(s *Section) bool {
	for i := range pe.Sections {
		if &pe.Sections[i] == s {
			return true
		}
	}
	return false
}

// recalculateSectionSizes grows a section's raw/virtual sizes to fit its
// current raw buffer, stripping trailing nulls first when autoStrip and s
// is the image's last section.
func (pe *File) recalculateSectionSizes(s *Section, autoStrip bool) error {
	if autoStrip && s == &pe.Sections[len(pe.Sections)-1] {
		if err := pe.RealignSections(); err != nil {
			return err
		}
	} else {
		rawAligned, err := alignUp(uint32(len(s.Raw)), pe.fileAlignment())
		if err != nil {
			return err
		}
		s.Header.SizeOfRawData = uint32(len(s.Raw))
		s.rawAligned = rawAligned
	}
	return pe.SetVirtualSize(s, Max(s.Header.VirtualSize, s.Header.SizeOfRawData))
}

// setDataDirectory writes a data directory entry back into the active
// optional header.
func (pe *File) setDataDirectory(entry ImageDirectoryEntry, dir DataDirectory) {
	if pe.Is64 {
		oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader64)
		oh.DataDirectory[entry] = dir
		pe.NtHeader.OptionalHeader = oh
		return
	}
	oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)
	oh.DataDirectory[entry] = dir
	pe.NtHeader.OptionalHeader = oh
}

// writeStruct encodes v into dst using the same little-endian layout
// structUnpack reads back.
func writeStruct(dst []byte, v interface{}) {
	var buf [256]byte
	w := sliceWriter{buf: buf[:0]}
	_ = binary.Write(&w, binary.LittleEndian, v)
	copy(dst, w.buf)
}

type sliceWriter struct{ buf []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
