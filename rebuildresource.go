// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// ResourceDataProvider returns the raw bytes backing a resource data leaf,
// keyed by the same ImageResourceDataEntry parseResourceDataEntry produced
// for it. RebuildResources calls it once per leaf, in tree order.
type ResourceDataProvider func(ImageResourceDataEntry) ([]byte, error)

// RebuildResources serializes a parsed resource tree back into section, at
// offsetFromSectionStart. Directory tables are emitted breadth-first level
// by level (root, then every subdirectory at depth 1, then depth 2, ...),
// exactly the layout resource compilers produce, followed by the data
// entry descriptors, then the name strings, then the raw resource bytes
// fetched from provide.
func (pe *File) RebuildResources(tree ResourceDirectory, provide ResourceDataProvider, section *Section, offsetFromSectionStart uint32, saveToPEHeader bool) (DataDirectory, error) {
	if !pe.sectionAttached(section) {
		return DataDirectory{}, ErrSectionIsNotAttached
	}

	dirHeaderSize := uint32(binary.Size(ImageResourceDirectory{}))
	entrySize := uint32(binary.Size(ImageResourceDirectoryEntry{}))
	dataEntrySize := uint32(binary.Size(ImageResourceDataEntry{}))

	// Level-order walk: collect every directory node and every leaf, in
	// the order their bytes will be emitted.
	type queued struct {
		dir   *ResourceDirectory
		entry *ResourceDirectoryEntry // nil for the root
	}
	var dirs []*ResourceDirectory
	var leaves []*ResourceDirectoryEntry

	level := []queued{{dir: &tree}}
	for len(level) > 0 {
		var next []queued
		for _, q := range level {
			dirs = append(dirs, q.dir)
			for i := range q.dir.Entries {
				e := &q.dir.Entries[i]
				if e.IsResourceDir {
					next = append(next, queued{dir: &e.Directory, entry: e})
				} else {
					leaves = append(leaves, e)
				}
			}
		}
		level = next
	}

	dirOffset := make(map[*ResourceDirectory]uint32, len(dirs))
	pos := offsetFromSectionStart
	for _, d := range dirs {
		dirOffset[d] = pos
		pos += dirHeaderSize + uint32(len(d.Entries))*entrySize
	}

	leafOffset := make(map[*ResourceDirectoryEntry]uint32, len(leaves))
	for _, l := range leaves {
		leafOffset[l] = pos
		pos += dataEntrySize
	}

	nameOffset := make(map[*ResourceDirectoryEntry]uint32)
	walkNamed := func(d *ResourceDirectory) {
		for i := range d.Entries {
			e := &d.Entries[i]
			if e.Name != "" {
				nameOffset[e] = pos
				pos += 2 + uint32(len(e.Name))*2 // length WORD + UTF-16 chars
			}
		}
	}
	for _, d := range dirs {
		walkNamed(d)
	}

	dataStart := pos
	leafData := make([][]byte, len(leaves))
	for i, l := range leaves {
		b, err := provide(l.Data.Struct)
		if err != nil {
			return DataDirectory{}, err
		}
		leafData[i] = b
		pos += uint32(len(b))
	}

	neededSize := pos - offsetFromSectionStart
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
	if uint32(len(section.Raw)) < pos {
		grown := make([]byte, pos)
		copy(grown, section.Raw)
		section.Raw = grown
	}

	rvaOf := func(off uint32) uint32 { return section.Header.VirtualAddress + off }

	for _, d := range dirs {
		base := dirOffset[d]
		writeStruct(section.Raw[base:], d.Struct)
		entryPos := base + dirHeaderSize
		for i := range d.Entries {
			e := &d.Entries[i]
			var nameField uint32
			if e.Name != "" {
				nameField = 0x80000000 | nameOffset[e]
			} else {
				nameField = e.ID
			}
			var offsetField uint32
			if e.IsResourceDir {
				offsetField = 0x80000000 | dirOffset[&e.Directory]
			} else {
				offsetField = leafOffset[e]
			}
			writeStruct(section.Raw[entryPos:], ImageResourceDirectoryEntry{Name: nameField, OffsetToData: offsetField})
			entryPos += entrySize
		}
	}

	for i, l := range leaves {
		de := ImageResourceDataEntry{
			OffsetToData: rvaOf(dataStart),
			Size:         uint32(len(leafData[i])),
			CodePage:     l.Data.Struct.CodePage,
		}
		copy(section.Raw[dataStart:], leafData[i])
		writeStruct(section.Raw[leafOffset[l]:], de)
		dataStart += uint32(len(leafData[i]))
	}

	for _, d := range dirs {
		for i := range d.Entries {
			e := &d.Entries[i]
			if off, ok := nameOffset[e]; ok {
				binary.LittleEndian.PutUint16(section.Raw[off:], uint16(len(e.Name)))
				for j, r := range []rune(e.Name) {
					binary.LittleEndian.PutUint16(section.Raw[off+2+uint32(j)*2:], uint16(r))
				}
			}
		}
	}
	if err := pe.recalculateSectionSizes(section, false); err != nil {
		return DataDirectory{}, err
	}

	ret := DataDirectory{VirtualAddress: rvaOf(offsetFromSectionStart), Size: neededSize}
	if saveToPEHeader {
		pe.setDataDirectory(ImageDirectoryEntryResource, ret)
	}
	return ret, nil
}
