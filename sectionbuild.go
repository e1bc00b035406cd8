// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// MaxSectionCount is the highest number of sections the emitter will allow
// in a single image, per §3's Image invariant.
const MaxSectionCount = 96

// ExpandType selects which of a section's two sizes ExpandSection grows.
type ExpandType int

const (
	// ExpandRaw grows the section's on-disk buffer.
	ExpandRaw ExpandType = iota
	// ExpandVirtual grows the section's declared virtual size.
	ExpandVirtual
)

// prepareSection computes a section's aligned raw/virtual sizes following
// the same rule the teacher's read path infers on parse: raw_aligned =
// align_up(len(Raw), FileAlignment); if VirtualSize is zero it becomes the
// aligned raw size, otherwise virtual_aligned = max(align_up(SizeOfRawData,
// FileAlignment), align_up(VirtualSize, SectionAlignment)).
func (pe *File) prepareSection(s *Section) error {
	fileAlign := pe.fileAlignment()
	sectionAlign := pe.sectionAlignment()

	rawAligned, err := alignUp(uint32(len(s.Raw)), fileAlign)
	if err != nil {
		return err
	}
	s.Header.SizeOfRawData = rawAligned
	s.rawAligned = rawAligned

	if s.Header.SizeOfRawData == 0 && s.Header.VirtualSize == 0 {
		return ErrZeroSectionSizes
	}

	if s.Header.VirtualSize == 0 {
		virtualAligned, err := alignUp(s.Header.SizeOfRawData, sectionAlign)
		if err != nil {
			return err
		}
		s.virtualAligned = virtualAligned
		s.Header.VirtualSize = s.Header.SizeOfRawData
		return nil
	}

	rawSide, err := alignUp(s.Header.SizeOfRawData, fileAlign)
	if err != nil {
		return err
	}
	virtSide, err := alignUp(s.Header.VirtualSize, sectionAlign)
	if err != nil {
		return err
	}
	s.virtualAligned = Max(rawSide, virtSide)
	return nil
}

// AddSection appends a new section to the image, computing its aligned
// sizes and its VirtualAddress following the previous last section (or
// SizeOfHeaders, for the first section), and updates SizeOfImage and
// NumberOfSections. Per §4.C it fails with ErrTooManySections at 96
// sections and ErrZeroSectionSizes if both declared sizes are zero.
func (pe *File) AddSection(s Section) (*Section, error) {
	if len(pe.Sections) >= MaxSectionCount {
		return nil, ErrTooManySections
	}

	sectionAlign := pe.sectionAlignment()

	if err := pe.prepareSection(&s); err != nil {
		return nil, err
	}

	if len(pe.Sections) > 0 {
		last := &pe.Sections[len(pe.Sections)-1]

		// Re-align the previous last section's raw buffer if it had drifted
		// out of alignment (e.g. after a raw-buffer mutation by the caller).
		rawAligned, err := alignUp(uint32(len(last.Raw)), pe.fileAlignment())
		if err != nil {
			return nil, err
		}
		last.Header.SizeOfRawData = rawAligned
		last.rawAligned = rawAligned

		va, err := alignUp(last.Header.VirtualAddress+last.virtualAligned, sectionAlign)
		if err != nil {
			return nil, err
		}
		s.Header.VirtualAddress = va
	} else if s.Header.VirtualAddress == 0 {
		va, err := alignUp(pe.sizeOfHeaders(), sectionAlign)
		if err != nil {
			return nil, err
		}
		s.Header.VirtualAddress = va
	} else {
		va, err := alignUp(s.Header.VirtualAddress, sectionAlign)
		if err != nil {
			return nil, err
		}
		s.Header.VirtualAddress = va
	}

	s.attached = true
	pe.Sections = append(pe.Sections, s)
	pe.setNumberOfSections(uint16(len(pe.Sections)))
	pe.setSizeOfImage(pe.sizeOfImage() + s.virtualAligned)

	return &pe.Sections[len(pe.Sections)-1], nil
}

// sectionIsLastOrDetached reports whether s is the image's last attached
// section, or not attached to the image at all. Several mutating section
// operations (§4.C "Set virtual size", "Expand") are legal only in one of
// those two cases.
func (pe *File) sectionIsLastOrDetached(s *Section) bool {
	if !s.attached {
		return true
	}
	if len(pe.Sections) == 0 {
		return false
	}
	return s == &pe.Sections[len(pe.Sections)-1]
}

// SetVirtualSize updates a section's declared virtual size and its aligned
// virtual extent. It is only legal for the last section of the image or a
// detached section; for an attached last section it also recomputes
// SizeOfImage.
func (pe *File) SetVirtualSize(s *Section, vsize uint32) error {
	if !pe.sectionIsLastOrDetached(s) {
		return ErrChangingSectionVirtualSize
	}

	sectionAlign := pe.sectionAlignment()
	if vsize == 0 {
		aligned, err := alignUp(s.Header.SizeOfRawData, sectionAlign)
		if err != nil {
			return err
		}
		s.virtualAligned = aligned
		s.Header.VirtualSize = s.Header.SizeOfRawData
	} else {
		aligned, err := alignUp(vsize, sectionAlign)
		if err != nil {
			return err
		}
		s.virtualAligned = aligned
		s.Header.VirtualSize = aligned
	}

	if s.attached {
		pe.setSizeOfImage(s.Header.VirtualAddress + s.virtualAligned)
	}
	return nil
}

// ExpandSection grows a section so that [rva, rva+n) is covered by the
// chosen view, returning true if it had to grow. It is a no-op if the range
// already fits. Only legal for the last or a detached section.
func (pe *File) ExpandSection(s *Section, rva, n uint32, expand ExpandType) (bool, error) {
	if !pe.sectionIsLastOrDetached(s) {
		return false, ErrChangingSectionVirtualSize
	}

	switch expand {
	case ExpandRaw:
		if uint32(len(s.RawView())) >= (rva-s.Header.VirtualAddress)+n {
			return false, nil
		}
		needed := (rva - s.Header.VirtualAddress) + n
		if uint32(len(s.Raw)) < needed {
			grown := make([]byte, needed)
			copy(grown, s.Raw)
			s.Raw = grown
		}
		s.Header.SizeOfRawData = uint32(len(s.Raw))
		rawAligned, err := alignUp(s.Header.SizeOfRawData, pe.fileAlignment())
		if err != nil {
			return false, err
		}
		s.rawAligned = rawAligned
		return true, nil
	default:
		if s.virtualAligned >= (rva-s.Header.VirtualAddress)+n {
			return false, nil
		}
		if err := pe.SetVirtualSize(s, (rva-s.Header.VirtualAddress)+n); err != nil {
			return false, err
		}
		return true, nil
	}
}

// RealignSections strips trailing null bytes from every section's raw
// buffer and recomputes its aligned raw size. Non-last sections are padded
// back out to FileAlignment so the file layout stays consistent; the last
// section is left at its stripped length so the emitted file ends exactly
// at the last meaningful byte, per §4.C and the emission rule in §4.D.
func (pe *File) RealignSections() error {
	fileAlign := pe.fileAlignment()
	for i := range pe.Sections {
		s := &pe.Sections[i]

		strip := 0
		for j := len(s.Raw); j > 0; j-- {
			if s.Raw[j-1] != 0 {
				break
			}
			strip++
		}

		rawAligned, err := alignUp(uint32(len(s.Raw)-strip), fileAlign)
		if err != nil {
			return err
		}
		s.rawAligned = rawAligned

		if i == len(pe.Sections)-1 {
			s.Header.SizeOfRawData = uint32(len(s.Raw) - strip)
			s.Raw = s.Raw[:len(s.Raw)-strip]
		} else {
			s.Header.SizeOfRawData = rawAligned
			padded := make([]byte, rawAligned)
			copy(padded, s.Raw[:len(s.Raw)-strip])
			s.Raw = padded
		}
	}
	return nil
}

// setNumberOfSections writes the file header's NumberOfSections;
// setSizeOfImage writes back into whichever optional header variant is
// active. Both fields are width-independent (§9.4).
func (pe *File) setNumberOfSections(n uint16) {
	pe.NtHeader.FileHeader.NumberOfSections = n
}

func (pe *File) setSizeOfImage(v uint32) {
	if pe.Is64 {
		oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader64)
		oh.SizeOfImage = v
		pe.NtHeader.OptionalHeader = oh
		return
	}
	oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)
	oh.SizeOfImage = v
	pe.NtHeader.OptionalHeader = oh
}

func (pe *File) sizeOfHeaders() uint32 {
	if pe.Is64 {
		return pe.NtHeader.OptionalHeader.(ImageOptionalHeader64).SizeOfHeaders
	}
	return pe.NtHeader.OptionalHeader.(ImageOptionalHeader32).SizeOfHeaders
}

func (pe *File) setSizeOfHeaders(v uint32) {
	if pe.Is64 {
		oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader64)
		oh.SizeOfHeaders = v
		pe.NtHeader.OptionalHeader = oh
		return
	}
	oh := pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)
	oh.SizeOfHeaders = v
	pe.NtHeader.OptionalHeader = oh
}
