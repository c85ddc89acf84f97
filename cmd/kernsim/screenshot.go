package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newScreenshotCmd(opts *machineOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Boot the kernel and save the console as a PNG image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := bootMachine(opts)
			if err != nil {
				return err
			}
			defer m.Close()

			f, err := os.Create(output)
			if err != nil {
				return errors.Wrap(err, "create screenshot file")
			}

			if err := m.Screenshot(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return errors.Wrap(err, "write screenshot file")
			}

			opts.logger.Info("screenshot saved", "path", output)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "console.png", "Output file")
	return cmd
}
