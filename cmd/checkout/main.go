package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "checkout",
		Short:        "Drive a payment checkout from the terminal",
		Version:      Version,
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(openCmd())
	root.AddCommand(decodeCmd(loadCodec))

	return root
}
