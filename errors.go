// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "errors"

// ErrorKind is the closed enumeration of failure kinds raised by the
// rebuild/emission layer (sectionbuild.go, emit.go, rebuildexports.go,
// rebuildimports.go, rebuildrelocs.go, rebuildresource.go). Parse-side
// failures keep using the teacher's original per-component sentinel
// errors (helper.go, ntheader.go, ...); ErrorKind lets rebuild callers
// switch on a single stable classification instead of comparing against
// dozens of distinct sentinel values spread across files.
type ErrorKind int

// Closed set of rebuild-layer error kinds.
const (
	ErrKindNone ErrorKind = iota
	ErrKindStreamIsBad
	ErrKindIncorrectAlignment
	ErrKindZeroSectionSizes
	ErrKindTooManySections
	ErrKindSectionIsNotAttached
	ErrKindErrorChangingSectionVirtualSize
	ErrKindInsufficientSpace
	ErrKindDuplicateExportedFunctionOrdinal
	ErrKindDuplicateExportedFunctionName
	ErrKindIncorrectExportDirectory
	ErrKindIncorrectRelocationDirectory
	ErrKindIncorrectResourceDirectory
	ErrKindIncorrectBoundImportDirectory
	ErrKindNoSectionFound
	ErrKindRvaNotExists
	ErrKindDataIsEmpty
)

// String names the error kind, matching the spelling used in §7.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindStreamIsBad:
		return "StreamIsBad"
	case ErrKindIncorrectAlignment:
		return "IncorrectAlignment"
	case ErrKindZeroSectionSizes:
		return "ZeroSectionSizes"
	case ErrKindTooManySections:
		return "NoMoreSectionsCanBeAdded"
	case ErrKindSectionIsNotAttached:
		return "SectionIsNotAttached"
	case ErrKindErrorChangingSectionVirtualSize:
		return "ErrorChangingSectionVirtualSize"
	case ErrKindInsufficientSpace:
		return "InsufficientSpace"
	case ErrKindDuplicateExportedFunctionOrdinal:
		return "DuplicateExportedFunctionOrdinal"
	case ErrKindDuplicateExportedFunctionName:
		return "DuplicateExportedFunctionName"
	case ErrKindIncorrectExportDirectory:
		return "IncorrectExportDirectory"
	case ErrKindIncorrectRelocationDirectory:
		return "IncorrectRelocationDirectory"
	case ErrKindIncorrectResourceDirectory:
		return "IncorrectResourceDirectory"
	case ErrKindIncorrectBoundImportDirectory:
		return "IncorrectBoundImportDirectory"
	case ErrKindNoSectionFound:
		return "NoSectionFound"
	case ErrKindRvaNotExists:
		return "RvaNotExists"
	case ErrKindDataIsEmpty:
		return "DataIsEmpty"
	default:
		return "None"
	}
}

// RebuildError pairs a closed ErrorKind with a human-readable cause so
// callers can both switch on Kind and log Error().
type RebuildError struct {
	Kind ErrorKind
	msg  string
}

func (e *RebuildError) Error() string { return e.msg }

func newRebuildError(kind ErrorKind, msg string) error {
	return &RebuildError{Kind: kind, msg: msg}
}

// KindOf extracts the ErrorKind from an error returned by the rebuild layer,
// returning ErrKindNone for any other error (including nil).
func KindOf(err error) ErrorKind {
	var re *RebuildError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrKindNone
}

var (
	// ErrStreamIsBad is returned by rebuild operations handed a stream/buffer
	// that cannot be written to.
	ErrStreamIsBad = newRebuildError(ErrKindStreamIsBad, "stream is bad")

	// ErrIncorrectAlignment is returned when an alignment value is not a
	// power of two.
	ErrIncorrectAlignment = newRebuildError(ErrKindIncorrectAlignment, "alignment must be a power of two")

	// ErrZeroSectionSizes is returned when a prepared section would have
	// both raw and virtual size equal to zero.
	ErrZeroSectionSizes = newRebuildError(ErrKindZeroSectionSizes, "virtual and raw sizes of section can't both be zero")

	// ErrTooManySections is returned once the section table would exceed 96
	// entries.
	ErrTooManySections = newRebuildError(ErrKindTooManySections, "maximum number of sections has been reached")

	// ErrSectionIsNotAttached is returned when a rebuild targets a section
	// that is not part of the image's section list.
	ErrSectionIsNotAttached = newRebuildError(ErrKindSectionIsNotAttached, "section must be attached to the image")

	// ErrChangingSectionVirtualSize is returned when SetVirtualSize or
	// ExpandSection is called on any section other than the last, or a
	// detached one.
	ErrChangingSectionVirtualSize = newRebuildError(ErrKindErrorChangingSectionVirtualSize,
		"can't change virtual size of any section except the last, or a detached one")

	// ErrInsufficientSpace is returned when a non-last, non-detached section
	// has no room for the directory being rebuilt into it.
	ErrInsufficientSpace = newRebuildError(ErrKindInsufficientSpace, "insufficient space for directory")

	// ErrDuplicateExportedFunctionOrdinal is returned when two exported
	// functions share an ordinal.
	ErrDuplicateExportedFunctionOrdinal = newRebuildError(ErrKindDuplicateExportedFunctionOrdinal, "duplicate exported function ordinal")

	// ErrDuplicateExportedFunctionName is returned when two exported
	// functions share a name.
	ErrDuplicateExportedFunctionName = newRebuildError(ErrKindDuplicateExportedFunctionName, "duplicate exported function name")

	// ErrIncorrectExportDirectory is returned when the export directory
	// fails validation (e.g. NumberOfNames > NumberOfFunctions).
	ErrIncorrectExportDirectory = newRebuildError(ErrKindIncorrectExportDirectory, "incorrect export directory")

	// ErrIncorrectRelocationDirectory is returned when a relocation block
	// cannot be parsed or rebuilt consistently.
	ErrIncorrectRelocationDirectory = newRebuildError(ErrKindIncorrectRelocationDirectory, "incorrect relocation directory")

	// ErrIncorrectResourceDirectory is returned on malformed resource
	// directories, including cycles.
	ErrIncorrectResourceDirectory = newRebuildError(ErrKindIncorrectResourceDirectory, "incorrect resource directory")

	// ErrIncorrectBoundImportDirectory is returned on a malformed bound
	// import directory.
	ErrIncorrectBoundImportDirectory = newRebuildError(ErrKindIncorrectBoundImportDirectory, "incorrect bound import directory")

	// ErrNoSectionFound is returned when no section contains a requested RVA.
	ErrNoSectionFound = newRebuildError(ErrKindNoSectionFound, "no section found by presented address")

	// ErrRvaNotExists is returned when a requested RVA has no backing data.
	ErrRvaNotExists = newRebuildError(ErrKindRvaNotExists, "rva does not exist")

	// ErrDataIsEmpty is returned when an operation is given an empty input
	// it cannot act on.
	ErrDataIsEmpty = newRebuildError(ErrKindDataIsEmpty, "data is empty")
)
