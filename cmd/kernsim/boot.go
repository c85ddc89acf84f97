package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newBootCmd(opts *machineOptions) *cobra.Command {
	var noScreen bool

	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Boot the kernel and print its output",
		Long: `The boot command runs the boot sequence and prints the bytes the kernel
sent to the serial port followed by the contents of the text console.

Example:
  kernsim boot
  kernsim boot --cmdline "klog=both consoleColor=15,1"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := bootMachine(opts)
			if err != nil {
				return err
			}
			defer m.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "== serial ==")
			fmt.Fprint(out, strings.ReplaceAll(m.SerialOutput(), "\r\n", "\n"))

			if noScreen {
				return nil
			}

			col, row := m.Cursor()
			fmt.Fprintf(out, "== console (cursor %d,%d) ==\n", col, row)
			for _, line := range m.Screen() {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noScreen, "no-screen", false, "Do not print the console contents")
	return cmd
}
