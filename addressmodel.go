// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "errors"

// View selects which of a section's two coordinate spaces a window is cut
// from: the on-disk bytes (Raw) or the zero-padded in-memory image (Virtual).
type View int

const (
	// Raw addresses SizeOfRawData bytes, as read from or written to the file.
	Raw View = iota
	// Virtual addresses the SectionAlignment-rounded in-memory extent.
	Virtual
)

var (
	// ErrRvaOutOfRange is returned whenever an RVA, or an RVA plus a window
	// length, escapes every section (and the header prefix, when allowed).
	ErrRvaOutOfRange = errors.New("rva out of range")

	// ErrZeroSectionAlignment is returned when address translation is
	// attempted on an image whose SectionAlignment is zero.
	ErrZeroSectionAlignment = errors.New("section alignment is zero")

	// ErrAddressOverflow is returned when an address computation would wrap
	// a 32-bit (or, for VA on PE32+, 64-bit) unsigned integer.
	ErrAddressOverflow = errors.New("address computation overflows")
)

// isSumSafe reports whether a+b does not overflow a 32-bit unsigned.
func isSumSafe(a, b uint32) bool {
	return a+b >= a
}

// alignUp rounds x up to the next multiple of the power-of-two alignment a.
// It returns an error if a is not a power of two.
func alignUp(x, a uint32) (uint32, error) {
	if a == 0 || (a&(a-1)) != 0 {
		return 0, ErrIncorrectAlignment
	}
	return (x + a - 1) &^ (a - 1), nil
}

// sectionAlignment returns the image's SectionAlignment field.
func (pe *File) sectionAlignment() uint32 {
	if pe.Is64 {
		return pe.NtHeader.OptionalHeader.(ImageOptionalHeader64).SectionAlignment
	}
	return pe.NtHeader.OptionalHeader.(ImageOptionalHeader32).SectionAlignment
}

// fileAlignment returns the image's FileAlignment field.
func (pe *File) fileAlignment() uint32 {
	if pe.Is64 {
		return pe.NtHeader.OptionalHeader.(ImageOptionalHeader64).FileAlignment
	}
	return pe.NtHeader.OptionalHeader.(ImageOptionalHeader32).FileAlignment
}

// imageBase64 returns ImageBase widened to 64 bits regardless of PE32/PE32+.
func (pe *File) imageBase64() uint64 {
	if pe.Is64 {
		return pe.NtHeader.OptionalHeader.(ImageOptionalHeader64).ImageBase
	}
	return uint64(pe.NtHeader.OptionalHeader.(ImageOptionalHeader32).ImageBase)
}

// sizeOfImage returns the SizeOfImage field.
func (pe *File) sizeOfImage() uint32 {
	if pe.Is64 {
		return pe.NtHeader.OptionalHeader.(ImageOptionalHeader64).SizeOfImage
	}
	return pe.NtHeader.OptionalHeader.(ImageOptionalHeader32).SizeOfImage
}

// SectionFromRVA finds the unique section whose virtual range contains rva,
// returning nil if none does. Unlike getSectionByRva it looks at the
// SectionAlignment-rounded extent recorded by the section builder
// (VirtualAligned) when available, falling back to the parser's own
// best-effort lookup otherwise.
func (pe *File) SectionFromRVA(rva uint32) *Section {
	for i := range pe.Sections {
		s := &pe.Sections[i]
		if s.virtualAligned != 0 {
			if rva >= s.Header.VirtualAddress && rva < s.Header.VirtualAddress+s.virtualAligned {
				return s
			}
			continue
		}
		if s.Contains(rva, pe) {
			return s
		}
	}
	return nil
}

// VaToRva converts a virtual address to an RVA. When boundCheck is set, it
// fails with ErrRvaOutOfRange if the subtraction underflows or the result
// exceeds SizeOfImage.
func (pe *File) VaToRva(va uint64, boundCheck bool) (uint32, error) {
	base := pe.imageBase64()
	if va < base {
		if boundCheck {
			return 0, ErrRvaOutOfRange
		}
		return uint32(va - base), nil
	}
	rva := va - base
	if boundCheck && rva > uint64(pe.sizeOfImage()) {
		return 0, ErrRvaOutOfRange
	}
	return uint32(rva), nil
}

// RvaToVa converts an RVA to a virtual address, widened to match PE32/PE32+.
func (pe *File) RvaToVa(rva uint32) uint64 {
	return pe.imageBase64() + uint64(rva)
}

// RvaToFileOffset converts an RVA to a raw file offset using the section
// that contains it. It is the inverse of FileOffsetToRva.
func (pe *File) RvaToFileOffset(rva uint32) (uint32, error) {
	section := pe.SectionFromRVA(rva)
	if section == nil {
		if rva < uint32(len(pe.Header)) {
			return rva, nil
		}
		return 0, ErrRvaOutOfRange
	}
	if !isSumSafe(section.Header.PointerToRawData, rva-section.Header.VirtualAddress) {
		return 0, ErrAddressOverflow
	}
	return section.Header.PointerToRawData + (rva - section.Header.VirtualAddress), nil
}

// FileOffsetToRva converts a raw file offset to an RVA using the section
// whose raw range contains it.
func (pe *File) FileOffsetToRva(off uint32) (uint32, error) {
	for i := range pe.Sections {
		s := &pe.Sections[i]
		if off >= s.Header.PointerToRawData && off < s.Header.PointerToRawData+s.Header.SizeOfRawData {
			return s.Header.VirtualAddress + (off - s.Header.PointerToRawData), nil
		}
	}
	if off < uint32(len(pe.Header)) {
		return off, nil
	}
	return 0, ErrRvaOutOfRange
}

// SliceAtRVA returns n bytes starting at rva from the chosen view of the
// section that contains it, failing with ErrRvaOutOfRange if the window
// escapes the section (or the header prefix, for addresses below
// SizeOfHeaders).
func (pe *File) SliceAtRVA(rva, n uint32, view View) ([]byte, error) {
	if !isSumSafe(rva, n) {
		return nil, ErrAddressOverflow
	}
	section := pe.SectionFromRVA(rva)
	if section == nil {
		if rva+n <= uint32(len(pe.Header)) {
			return pe.Header[rva : rva+n], nil
		}
		return nil, ErrRvaOutOfRange
	}
	var window []byte
	switch view {
	case Virtual:
		window = section.VirtualView()
	default:
		window = section.RawView()
	}
	start := rva - section.Header.VirtualAddress
	if !isSumSafe(start, n) || start+n > uint32(len(window)) {
		return nil, ErrRvaOutOfRange
	}
	return window[start : start+n], nil
}

// LengthRemainingFromRVA returns the number of bytes between rvaRef and the
// end of the section containing rvaStart, saturating at zero.
func (pe *File) LengthRemainingFromRVA(rvaStart, rvaRef uint32, view View) uint32 {
	section := pe.SectionFromRVA(rvaStart)
	if section == nil {
		return 0
	}
	var extent uint32
	switch view {
	case Virtual:
		extent = section.virtualAligned
		if extent == 0 {
			extent = uint32(len(section.VirtualView()))
		}
	default:
		extent = section.Header.SizeOfRawData
	}
	end := section.Header.VirtualAddress + extent
	if rvaRef >= end {
		return 0
	}
	return end - rvaRef
}
