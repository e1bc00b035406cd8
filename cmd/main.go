// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type config struct {
	wantDOSHeader   bool
	wantRichHeader  bool
	wantNTHeader    bool
	wantCOFF        bool
	wantDataDirs    bool
	wantSections    bool
	wantExport      bool
	wantImport      bool
	wantResource    bool
	wantException   bool
	wantCertificate bool
	wantReloc       bool
	wantDebug       bool
	wantTLS         bool
	wantLoadCfg     bool
	wantBoundImp    bool
	wantIAT         bool
	wantDelayImp    bool
	wantCLR         bool
}

func newDumpCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Dump one or more PE directories from a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parse(args[0], cfg)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&cfg.wantDOSHeader, "dosheader", false, "Dump DOS header")
	flags.BoolVar(&cfg.wantRichHeader, "richheader", false, "Dump Rich header")
	flags.BoolVar(&cfg.wantNTHeader, "ntheader", false, "Dump NT header")
	flags.BoolVar(&cfg.wantCOFF, "coff", false, "Dump COFF symbols")
	flags.BoolVar(&cfg.wantDataDirs, "directories", false, "Has no effect: the dump does not print the data directories")
	flags.BoolVar(&cfg.wantSections, "sections", false, "Dump sections")
	flags.BoolVar(&cfg.wantExport, "export", false, "Has no effect: the dump does not print the export table")
	flags.BoolVar(&cfg.wantImport, "import", false, "Dump import table")
	flags.BoolVar(&cfg.wantResource, "resource", false, "Dump resource table")
	flags.BoolVar(&cfg.wantException, "exception", false, "Dump exception table")
	flags.BoolVar(&cfg.wantCertificate, "cert", false, "Dump certificate directory")
	flags.BoolVar(&cfg.wantReloc, "reloc", false, "Dump relocation table")
	flags.BoolVar(&cfg.wantDebug, "debug", false, "Dump debug infos")
	flags.BoolVar(&cfg.wantTLS, "tls", false, "Dump TLS")
	flags.BoolVar(&cfg.wantLoadCfg, "loadconfig", false, "Dump load configuration table")
	flags.BoolVar(&cfg.wantBoundImp, "bound", false, "Dump bound import table")
	flags.BoolVar(&cfg.wantIAT, "iat", false, "Has no effect: the dump does not print the IAT")
	flags.BoolVar(&cfg.wantDelayImp, "delay", false, "Has no effect: the dump does not print the delay import descriptors")
	flags.BoolVar(&cfg.wantCLR, "clr", false, "Dump CLR")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dumper's version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 1.3.0")
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:   "pecodec",
		Short: "A PE-Parser built for speed and malware-analysis in mind",
		Long: `
╔═╗╔═╗  ┌─┐┌─┐┬─┐┌─┐┌─┐┬─┐
╠═╝║╣   ├─┘├─┤├┬┘└─┐├┤ ├┬┘
╩  ╚═╝  ┴  ┴ ┴┴└─└─┘└─┘┴└─

	A PE-Parser built for speed and malware-analysis in mind.`,
	}
	root.AddCommand(newDumpCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
