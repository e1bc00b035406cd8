// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"reflect"
	"sort"
	"strconv"
	"testing"
)

func TestClrDirectoryHeader(t *testing.T) {

	tests := []struct {
		in  string
		out ImageCOR20Header
	}{
		{
			getAbsoluteFilePath("test/mscorlib.dll"),
			ImageCOR20Header{
				Cb:                  0x48,
				MajorRuntimeVersion: 0x2,
				MinorRuntimeVersion: 0x5,
				MetaData: ImageDataDirectory{
					VirtualAddress: 0x2050,
					Size:           0xae34,
				},
				Flags:                0x9,
				EntryPointRVAorToken: 0x0,
				StrongNameSignature: ImageDataDirectory{
					VirtualAddress: 0xce84,
					Size:           0x80,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ops := Options{Fast: true}
			file, err := New(tt.in, &ops)
			if err != nil {
				t.Fatalf("New(%s) failed, reason: %v", tt.in, err)
			}

			err = file.Parse()
			if err != nil {
				t.Fatalf("Parse(%s) failed, reason: %v", tt.in, err)
			}

			var va, size uint32
			switch file.Is64 {
			case true:
				oh64 := file.NtHeader.OptionalHeader.(ImageOptionalHeader64)
				dirEntry := oh64.DataDirectory[ImageDirectoryEntryCLR]
				va = dirEntry.VirtualAddress
				size = dirEntry.Size
			case false:
				oh32 := file.NtHeader.OptionalHeader.(ImageOptionalHeader32)
				dirEntry := oh32.DataDirectory[ImageDirectoryEntryCLR]
				va = dirEntry.VirtualAddress
				size = dirEntry.Size
			}

			err = file.parseCLRHeaderDirectory(va, size)
			if err != nil {
				t.Fatalf("parseCLRHeaderDirectory(%s) failed, reason: %v", tt.in, err)
			}
			if !file.HasCLR {
				t.Fatalf("HasCLR not set after parsing a CLR directory")
			}
			if file.CLR.CLRHeader != tt.out {
				t.Errorf("CLR header assertion failed, got %v, want %v",
					file.CLR.CLRHeader, tt.out)
			}
		})
	}
}

func TestClrHeaderFlagAccessors(t *testing.T) {
	hdr := ImageCOR20Header{Flags: COMImageFlagsILOnly | COMImageFlagsStrongNameSigned}
	if !hdr.IsILOnly() {
		t.Errorf("IsILOnly() = false, want true")
	}
	if hdr.IsNativeEntrypoint() {
		t.Errorf("IsNativeEntrypoint() = true, want false")
	}
	if hdr.Is32BitRequired() {
		t.Errorf("Is32BitRequired() = true, want false")
	}
	if hdr.IsILLibrary() {
		t.Errorf("IsILLibrary() = true, want false")
	}
}

func TestClrDirectorCOMImageFlagsType(t *testing.T) {

	tests := []struct {
		in  int
		out []string
	}{
		{
			0x9,
			[]string{"IL Only", "Strong Name Signed"},
		},
	}

	for _, tt := range tests {
		t.Run("CaseFlagsEqualTo_"+strconv.Itoa(tt.in), func(t *testing.T) {
			got := COMImageFlagsType(tt.in).String()
			sort.Strings(got)
			sort.Strings(tt.out)
			if !reflect.DeepEqual(got, tt.out) {
				t.Errorf("CLR header flags assertion failed, got %v, want %v",
					got, tt.out)
			}
		})
	}
}
