// Command redirects manages the table of runtime function redirects that
// the kernel installs at boot. Kernel functions annotated with
// "//go:redirect-from <symbol>" replace the named runtime symbol; this tool
// lists them and writes their resolved addresses into the .goredirectstbl
// section of a linked kernel image.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "[redirects] error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var root, dir string

	cmd := &cobra.Command{
		Use:           "redirects",
		Short:         "Maintain the kernel's runtime redirect table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&root, "root", ".", "Module root folder")
	cmd.PersistentFlags().StringVar(&dir, "dir", "kernel", "Folder to scan, relative to the module root")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "count",
			Short: "Print the number of redirects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				redirects, err := findRedirects(root, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d", len(redirects))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the redirects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				redirects, err := findRedirects(root, dir)
				if err != nil {
					return err
				}
				for _, r := range redirects {
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.src, r.dst)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "populate-table <kernel image>",
			Short: "Write the resolved redirect addresses into a kernel image",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				redirects, err := findRedirects(root, dir)
				if err != nil {
					return err
				}
				if err := elfResolveRedirectSymbols(redirects, args[0]); err != nil {
					return err
				}
				return elfWriteRedirectTable(redirects, args[0])
			},
		},
	)

	return cmd
}
