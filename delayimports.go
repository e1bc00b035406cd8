// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

const maxDelayDllLength = 0x200

// ImageDelayImportDescriptor represents the IMAGE_DELAYLOAD_DESCRIPTOR
// structure, the delay-load variant of ImageImportDescriptor: a DLL listed
// here is only mapped the first time one of its functions is actually
// called, via a small stub the linker generates.
type ImageDelayImportDescriptor struct {
	// Attributes is either 0, for the legacy (pre Visual C++ 7) layout
	// where every RVA below is actually a VA, or 1 for the modern,
	// RVA-based layout.
	Attributes uint32 `json:"attributes"`

	// Name is the RVA of the ASCII string holding the DLL name.
	Name uint32 `json:"name"`

	// ModuleHandleRVA is the RVA of the module handle, in the data
	// section, cached by the delay-load stub after the first load.
	ModuleHandleRVA uint32 `json:"module_handle_rva"`

	// ImportAddressTableRVA is the RVA of the delay-load IAT.
	ImportAddressTableRVA uint32 `json:"import_address_table_rva"`

	// ImportNameTableRVA is the RVA of the delay-load name table, an
	// array of the same layout as ImageImportDescriptor's ILT.
	ImportNameTableRVA uint32 `json:"import_name_table_rva"`

	// BoundImportAddressTableRVA is the RVA of the optional bound IAT.
	BoundImportAddressTableRVA uint32 `json:"bound_import_address_table_rva"`

	// UnloadInformationTableRVA is the RVA of an optional unload
	// information table, a copy of the original IAT used to restore it
	// on DllCanUnloadNow.
	UnloadInformationTableRVA uint32 `json:"unload_information_table_rva"`

	// TimeDateStamp is zero until the DLL is bound.
	TimeDateStamp uint32 `json:"time_date_stamp"`
}

// DelayImport represents one delay-loaded DLL's directory entry: the DLL
// name and the raw descriptor fields. The import name table it points to
// (the resolved function list) is not walked; that would mean decoding
// delay-import directory contents, which this library leaves alone.
type DelayImport struct {
	Offset     uint32                     `json:"offset"`
	Name       string                     `json:"name"`
	Descriptor ImageDelayImportDescriptor `json:"descriptor"`
}

// parseDelayImportDirectory walks the IMAGE_DELAYLOAD_DESCRIPTOR array
// starting at rva, mirroring parseImportDirectory's loop-until-zeroed-entry
// shape, recording each descriptor and the DLL name it names. It stops at
// the directory entry: it does not resolve ImportNameTableRVA/
// ImportAddressTableRVA into a function list.
func (pe *File) parseDelayImportDirectory(rva, size uint32) error {
	for {
		desc := ImageDelayImportDescriptor{}
		fileOffset := pe.GetOffsetFromRva(rva)
		descSize := uint32(binary.Size(desc))
		if err := pe.structUnpack(&desc, fileOffset, descSize); err != nil {
			return err
		}

		if desc == (ImageDelayImportDescriptor{}) {
			break
		}

		rva += descSize

		dllName := pe.getStringAtRVA(desc.Name, maxDelayDllLength)
		if !IsValidDosFilename(dllName) {
			dllName = "*invalid*"
			continue
		}

		pe.DelayImports = append(pe.DelayImports, DelayImport{
			Offset:     fileOffset,
			Name:       dllName,
			Descriptor: desc,
		})
	}

	if len(pe.DelayImports) > 0 {
		pe.HasDelayImp = true
	}
	return nil
}
