package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-console/internal/client"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the console and client library versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	version := "devel"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	fmt.Fprintf(w, "ethconsole %s (%s)\n", version, runtime.Version())
	for _, name := range client.LibraryNames() {
		lib, _ := client.LookupLibrary(name)
		fmt.Fprintf(w, "  %-5s %s\n", lib.Name, lib.Version())
	}
}
