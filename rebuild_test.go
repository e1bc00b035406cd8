// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"testing"
)

func newSectionName(name string) [8]uint8 {
	var out [8]uint8
	copy(out[:], name)
	return out
}

func openForRebuild(t *testing.T, path string) *File {
	t.Helper()
	file, err := New(path, &Options{Fast: true})
	if err != nil {
		t.Fatalf("New(%s) failed, reason: %v", path, err)
	}
	if err := file.Parse(); err != nil {
		t.Fatalf("Parse(%s) failed, reason: %v", path, err)
	}
	return file
}

func addRebuildSection(t *testing.T, file *File, name string, size uint32) *Section {
	t.Helper()
	sec, err := file.AddSection(Section{
		Header: ImageSectionHeader{
			Name:            newSectionName(name),
			Characteristics: ImageScnCntInitializedData | ImageScnMemRead,
		},
		Raw: make([]byte, size),
	})
	if err != nil {
		t.Fatalf("AddSection(%s) failed, reason: %v", name, err)
	}
	return sec
}

// TestRebuildExports exercises S1/S2: a rebuilt export directory round-trips
// through ParseExportDirectory with the same ordinals, names, and
// forwarders it was given.
func TestRebuildExports(t *testing.T) {
	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))

	sec := addRebuildSection(t, file, ".nedata", 0x1000)

	functions := []ExportedFunction{
		{Ordinal: 1, RVA: 0x1000, Name: "AlphaFunc"},
		{Ordinal: 2, RVA: 0x1010, Name: "BetaFunc"},
		{Ordinal: 3, RVA: 0, Name: "GammaFunc", ForwardedName: "NTDLL.RtlSomething"},
	}

	dir, err := file.RebuildExports(
		ExportInfo{Name: "rebuilt.dll"},
		functions,
		sec,
		0,
		true,
		false,
	)
	if err != nil {
		t.Fatalf("RebuildExports failed: %v", err)
	}
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		t.Fatalf("RebuildExports returned empty directory: %+v", dir)
	}

	if err := file.parseExportDirectory(dir.VirtualAddress, dir.Size); err != nil {
		t.Fatalf("re-parsing rebuilt exports failed: %v", err)
	}

	if file.Export.Name != "rebuilt.dll" {
		t.Fatalf("export name mismatch, got %q", file.Export.Name)
	}
	if len(file.Export.Functions) != len(functions) {
		t.Fatalf("export function count mismatch, got %d want %d",
			len(file.Export.Functions), len(functions))
	}

	foundForwarder := false
	for _, fn := range file.Export.Functions {
		if fn.Ordinal == 3 {
			if fn.Forwarder != "NTDLL.RtlSomething" {
				t.Fatalf("forwarder string mismatch, got %q", fn.Forwarder)
			}
			foundForwarder = true
		}
	}
	if !foundForwarder {
		t.Fatalf("did not find the forwarder entry on re-parse")
	}
}

// TestRebuildExportsDuplicateOrdinal checks the duplicate-ordinal guard.
func TestRebuildExportsDuplicateOrdinal(t *testing.T) {
	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	sec := addRebuildSection(t, file, ".nedata", 0x1000)

	functions := []ExportedFunction{
		{Ordinal: 1, RVA: 0x1000, Name: "AlphaFunc"},
		{Ordinal: 1, RVA: 0x1010, Name: "BetaFunc"},
	}

	_, err := file.RebuildExports(ExportInfo{Name: "dup.dll"}, functions, sec, 0, false, false)
	if err != ErrDuplicateExportedFunctionOrdinal {
		t.Fatalf("got error %v, want ErrDuplicateExportedFunctionOrdinal", err)
	}
}

// TestRebuildRelocations exercises S4: a rebuilt relocation block round-trips
// through parseRelocations with the same entries it was given.
func TestRebuildRelocations(t *testing.T) {
	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	sec := addRebuildSection(t, file, ".nereloc", 0x1000)

	relocs := []Relocation{
		{
			Data: ImageBaseRelocation{VirtualAddress: 0x2000},
			Entries: []ImageBaseRelocationEntry{
				{Offset: 0x010, Type: ImageRelBasedHighLow},
				{Offset: 0x020, Type: ImageRelBasedHighLow},
				{Offset: 0x030, Type: ImageRelBasedDir64},
			},
		},
	}

	dir, err := file.RebuildRelocations(relocs, sec, 0, true, false)
	if err != nil {
		t.Fatalf("RebuildRelocations failed: %v", err)
	}
	if dir.Size == 0 {
		t.Fatalf("RebuildRelocations returned empty directory")
	}

	if err := file.parseRelocDirectory(dir.VirtualAddress, dir.Size); err != nil {
		t.Fatalf("re-parsing rebuilt relocations failed: %v", err)
	}

	if len(file.Relocations) == 0 {
		t.Fatalf("no relocation blocks parsed back")
	}
	got := file.Relocations[len(file.Relocations)-1]
	if got.Data.VirtualAddress != 0x2000 {
		t.Fatalf("relocation block VA mismatch, got 0x%x", got.Data.VirtualAddress)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("relocation entry count mismatch, got %d want 3", len(got.Entries))
	}
}

// TestRebuildImports exercises S3: a rebuilt import directory round-trips
// through parseImportDirectory with the same module/function names.
func TestRebuildImports(t *testing.T) {
	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	sec := addRebuildSection(t, file, ".neimp", 0x2000)

	imports := []Import{
		{
			Name: "REBUILT.dll",
			Functions: []ImportFunction{
				{Name: "FuncOne"},
				{Name: "FuncTwo"},
				{ByOrdinal: true, Ordinal: 42},
			},
		},
	}

	settings := DefaultImportRebuildSettings(true, false)
	result, err := file.RebuildImports(imports, sec, settings)
	if err != nil {
		t.Fatalf("RebuildImports failed: %v", err)
	}
	if result.Directory.Size == 0 {
		t.Fatalf("RebuildImports returned empty directory")
	}

	if err := file.parseImportDirectory(result.Directory.VirtualAddress, result.Directory.Size); err != nil {
		t.Fatalf("re-parsing rebuilt imports failed: %v", err)
	}

	var found *Import
	for i := range file.Imports {
		if file.Imports[i].Name == "REBUILT.dll" {
			found = &file.Imports[i]
		}
	}
	if found == nil {
		t.Fatalf("rebuilt module not found on re-parse")
	}
	if len(found.Functions) != 3 {
		t.Fatalf("import function count mismatch, got %d want 3", len(found.Functions))
	}
}

// TestRebuildImportsFillMissingOriginalIATs exercises the two ways
// RebuildImports can leave OriginalFirstThunk when no Original IAT is
// built: zeroed by default, or pointed at the ILT when
// FillMissingOriginalIATs is set.
func TestRebuildImportsFillMissingOriginalIATs(t *testing.T) {
	imports := []Import{
		{
			Name: "NOORIG.dll",
			Functions: []ImportFunction{
				{Name: "SomeFunc"},
			},
		},
	}

	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	sec := addRebuildSection(t, file, ".neimp1", 0x1000)
	settings := ImportRebuildSettings{SetToPEHeaders: false}
	result, err := file.RebuildImports(imports, sec, settings)
	if err != nil {
		t.Fatalf("RebuildImports failed: %v", err)
	}
	if err := file.parseImportDirectory(result.Directory.VirtualAddress, result.Directory.Size); err != nil {
		t.Fatalf("re-parsing rebuilt imports failed: %v", err)
	}
	if file.Imports[len(file.Imports)-1].Descriptor.OriginalFirstThunk != 0 {
		t.Fatalf("OriginalFirstThunk should be zero without FillMissingOriginalIATs, got 0x%x",
			file.Imports[len(file.Imports)-1].Descriptor.OriginalFirstThunk)
	}

	file2 := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	sec2 := addRebuildSection(t, file2, ".neimp2", 0x1000)
	settings.FillMissingOriginalIATs = true
	result2, err := file2.RebuildImports(imports, sec2, settings)
	if err != nil {
		t.Fatalf("RebuildImports failed: %v", err)
	}
	if err := file2.parseImportDirectory(result2.Directory.VirtualAddress, result2.Directory.Size); err != nil {
		t.Fatalf("re-parsing rebuilt imports failed: %v", err)
	}
	got := file2.Imports[len(file2.Imports)-1].Descriptor.OriginalFirstThunk
	if got == 0 {
		t.Fatalf("OriginalFirstThunk should be non-zero with FillMissingOriginalIATs set")
	}
}

// TestRebuildPE exercises the header-emission ordering: DOS header, rich
// overlay, NT headers, section headers, then section data, with the last
// section's SizeOfRawData following its actual buffer length.
func TestRebuildPE(t *testing.T) {
	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	addRebuildSection(t, file, ".newdata", 0x200)

	out, err := file.RebuildPE(RebuildOptions{UpdateChecksum: true})
	if err != nil {
		t.Fatalf("RebuildPE failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("RebuildPE produced an empty image")
	}

	rebuilt, err := NewBytes(out, &Options{Fast: true})
	if err != nil {
		t.Fatalf("NewBytes(rebuilt) failed: %v", err)
	}
	if err := rebuilt.Parse(); err != nil {
		t.Fatalf("Parse(rebuilt) failed: %v", err)
	}

	if len(rebuilt.Sections) != len(file.Sections) {
		t.Fatalf("section count mismatch after rebuild, got %d want %d",
			len(rebuilt.Sections), len(file.Sections))
	}
}
