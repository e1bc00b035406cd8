// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// parseArchitectureDirectory parses the Architecture-specific data
// directory. It is reserved and must be all zeros for every machine type
// PE currently targets (x86, x64, ARM, ARM64); unlike the genuinely
// deprecated directories this one has never been populated in practice,
// so there is nothing beyond the entry itself to read.
func (pe *File) parseArchitectureDirectory(rva, size uint32) error {
	return nil
}
