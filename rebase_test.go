// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"encoding/binary"
	"testing"
)

// TestRebaseImage exercises S5: rebasing rewrites every HIGHLOW/DIR64
// relocation entry by old - oldBase + newBase, and updates ImageBase.
func TestRebaseImage(t *testing.T) {
	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	sec := addRebuildSection(t, file, ".nerebas", 0x1000)

	oldBase := file.imageBase64()
	const delta = 0x00100000

	highLowRVA := sec.Header.VirtualAddress + 0x10
	highLowOff := highLowRVA - sec.Header.VirtualAddress
	original := uint32(oldBase + 0x2000)
	binary.LittleEndian.PutUint32(sec.Raw[highLowOff:], original)

	file.Relocations = []Relocation{
		{
			Data: ImageBaseRelocation{VirtualAddress: sec.Header.VirtualAddress},
			Entries: []ImageBaseRelocationEntry{
				{Offset: uint16(0x10), Type: ImageRelBasedHighLow},
			},
		},
	}

	if err := file.RebaseImage(oldBase + delta); err != nil {
		t.Fatalf("RebaseImage failed: %v", err)
	}

	got := binary.LittleEndian.Uint32(sec.Raw[highLowOff:])
	want := original + delta
	if uint64(got) != uint64(want) {
		t.Fatalf("relocated value mismatch, got 0x%x want 0x%x", got, want)
	}

	if file.imageBase64() != oldBase+delta {
		t.Fatalf("ImageBase not updated, got 0x%x want 0x%x",
			file.imageBase64(), oldBase+delta)
	}
}

// TestRebaseImageNoOp verifies rebasing to the current base is a no-op.
func TestRebaseImageNoOp(t *testing.T) {
	file := openForRebuild(t, getAbsoluteFilePath("test/putty.exe"))
	oldBase := file.imageBase64()

	if err := file.RebaseImage(oldBase); err != nil {
		t.Fatalf("RebaseImage(sameBase) failed: %v", err)
	}
	if file.imageBase64() != oldBase {
		t.Fatalf("ImageBase changed on no-op rebase")
	}
}
