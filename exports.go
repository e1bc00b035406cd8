// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"encoding/binary"
)

const maxExportNameLength = 0x200

// ImageExportDirectory represents the IMAGE_EXPORT_DIRECTORY structure,
// found at the start of the export data directory. Every image that
// exports at least one symbol carries exactly one of these.
type ImageExportDirectory struct {
	// Reserved, must be zero.
	Characteristics uint32 `json:"characteristics"`

	// The time and date that the export data was created.
	TimeDateStamp uint32 `json:"time_date_stamp"`

	// The major version number, set by the user.
	MajorVersion uint16 `json:"major_version"`

	// The minor version number, set by the user.
	MinorVersion uint16 `json:"minor_version"`

	// The address of the ASCII string that contains the name of the DLL.
	// This address is relative to the image base.
	Name uint32 `json:"name"`

	// The starting ordinal number for exports in this image. This value is
	// added to the export address table index to get the exported entry's
	// ordinal number.
	Base uint32 `json:"base"`

	// The number of entries in the export address table.
	NumberOfFunctions uint32 `json:"number_of_functions"`

	// The number of entries in the name pointer table, equal to the number
	// of entries in the ordinal table.
	NumberOfNames uint32 `json:"number_of_names"`

	// The address of the export address table, relative to the image base.
	AddressOfFunctions uint32 `json:"address_of_functions"`

	// The address of the export name pointer table, relative to the image
	// base. The table size is given by NumberOfNames.
	AddressOfNames uint32 `json:"address_of_names"`

	// The address of the ordinal table, relative to the image base.
	AddressOfNameOrdinals uint32 `json:"address_of_name_ordinals"`
}

// ExportFunction represents an exported function, combined from the export
// address table and, when present, a matching entry in the name table.
type ExportFunction struct {
	// Ordinal is the function's true ordinal, Base plus its index in the
	// export address table.
	Ordinal uint32 `json:"ordinal"`

	// FunctionRVA is the RVA of the exported symbol, relative to the image
	// base. When this points back inside the export directory itself, the
	// entry is a forwarder and FunctionRVA does not address code or data.
	FunctionRVA uint32 `json:"function_rva"`

	// NameRVA is the RVA of the exported name, zero when the function is
	// exported by ordinal only.
	NameRVA uint32 `json:"name_rva"`

	// Name is the exported symbol's name, empty when exported by ordinal only.
	Name string `json:"name_str"`

	// Forwarder holds the "DLL.Symbol" string a forwarder entry redirects
	// to, empty for a normal export.
	Forwarder string `json:"forwarder"`

	// ForwarderRVA is the RVA of the forwarder string, zero for a normal
	// export.
	ForwarderRVA uint32 `json:"forwarder_rva"`
}

// Export groups the export directory header with the resolved function
// list, plus the module's own exported name.
type Export struct {
	// Struct is the raw IMAGE_EXPORT_DIRECTORY this image carries.
	Struct ImageExportDirectory `json:"struct"`

	// Functions lists every entry in the export address table, in table
	// order (so FunctionRVA-index i corresponds to ordinal Base+i).
	Functions []ExportFunction `json:"functions"`

	// Name is the DLL name recorded in the export directory.
	Name string `json:"name"`
}

// parseExportDirectory parses the export directory, building one
// ExportFunction per entry in the export address table and attaching a name
// to every entry that also appears in the name pointer table. An entry
// whose function RVA falls inside the export directory's own [rva, rva+size)
// range is a forwarder: FunctionRVA does not address code, and Forwarder
// carries the "DLL.Symbol" string stored at that RVA instead.
func (pe *File) parseExportDirectory(rva, size uint32) error {
	var exp ImageExportDirectory
	fileOffset := pe.GetOffsetFromRva(rva)
	structSize := uint32(binary.Size(exp))
	if err := pe.structUnpack(&exp, fileOffset, structSize); err != nil {
		return err
	}

	if exp.NumberOfNames > exp.NumberOfFunctions {
		pe.Anomalies = append(pe.Anomalies, AnoAddressOfDataBeyondLimits)
	}

	// Build the ordinal -> name reverse map from the name pointer table and
	// the parallel ordinal table.
	nameForOrdinal := make(map[uint32]string, exp.NumberOfNames)
	namesOffset := pe.GetOffsetFromRva(exp.AddressOfNames)
	ordinalsOffset := pe.GetOffsetFromRva(exp.AddressOfNameOrdinals)
	for i := uint32(0); i < exp.NumberOfNames; i++ {
		nameRVA, err := pe.ReadUint32(namesOffset + i*4)
		if err != nil {
			break
		}
		ordIndex, err := pe.ReadUint16(ordinalsOffset + i*2)
		if err != nil {
			break
		}
		name := pe.getStringAtRVA(nameRVA, maxExportNameLength)
		nameForOrdinal[uint32(ordIndex)] = name
	}

	functionsOffset := pe.GetOffsetFromRva(exp.AddressOfFunctions)
	functions := make([]ExportFunction, 0, exp.NumberOfFunctions)
	for i := uint32(0); i < exp.NumberOfFunctions; i++ {
		functionRVA, err := pe.ReadUint32(functionsOffset + i*4)
		if err != nil {
			break
		}

		fn := ExportFunction{
			Ordinal:     exp.Base + i,
			FunctionRVA: functionRVA,
		}

		if name, ok := nameForOrdinal[i]; ok {
			fn.Name = name
			for j := uint32(0); j < exp.NumberOfNames; j++ {
				nameRVA, err := pe.ReadUint32(namesOffset + j*4)
				if err != nil {
					break
				}
				ord, err := pe.ReadUint16(ordinalsOffset + j*2)
				if err != nil {
					break
				}
				if uint32(ord) == i && pe.getStringAtRVA(nameRVA, maxExportNameLength) == name {
					fn.NameRVA = nameRVA
					break
				}
			}
		}

		if functionRVA >= rva && functionRVA < rva+size {
			fn.Forwarder = pe.getStringAtRVA(functionRVA, maxExportNameLength)
			fn.ForwarderRVA = functionRVA
		}

		functions = append(functions, fn)
	}

	pe.Export = Export{
		Struct:    exp,
		Functions: functions,
		Name:      pe.getStringAtRVA(exp.Name, maxExportNameLength),
	}
	pe.HasExport = true

	return nil
}
