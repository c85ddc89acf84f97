package main

import (
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tinykern/internal/hostsim"
)

// machineOptions holds the persistent flags that describe the emulated
// machine.
type machineOptions struct {
	verbose    bool
	cmdLine    string
	heapSize   int
	kernelSize int
	busyPolls  int

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &machineOptions{}

	cmd := &cobra.Command{
		Use:   "kernsim",
		Short: "Run the kernel core in an emulated PC",
		Long: `kernsim boots the kernel core against an emulated machine: a 16550 UART,
the VGA text console, the interrupt controllers and a block of memory that
stands in for physical RAM. The boot command line is passed to the kernel
exactly as a multiboot loader would.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.verbose)
		},
	}

	addMachineFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(
		newBootCmd(opts),
		newScreenshotCmd(opts),
		newHeapCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func addMachineFlags(fs *pflag.FlagSet, opts *machineOptions) {
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	fs.StringVar(&opts.cmdLine, "cmdline", "", "Kernel boot command line")
	fs.IntVar(&opts.heapSize, "heap-size", 960<<10, "Size of the heap arena in bytes")
	fs.IntVar(&opts.kernelSize, "kernel-size", hostsim.DefaultKernelSize, "Size of the pretend kernel image in bytes")
	fs.IntVar(&opts.busyPolls, "busy-polls", 0, "Line status polls the UART reports busy after each byte")
}

// newLogger returns a text logger writing to w, or a logger that discards
// everything unless verbose output was requested.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// bootMachine creates and boots a machine described by opts. The caller
// must Close the returned machine.
func bootMachine(opts *machineOptions) (*hostsim.Machine, error) {
	if opts.heapSize <= 0 {
		return nil, errors.Newf("invalid heap size %d", opts.heapSize)
	}
	if opts.kernelSize <= 0 {
		return nil, errors.Newf("invalid kernel size %d", opts.kernelSize)
	}

	cfg := hostsim.Config{
		CmdLine:    opts.cmdLine,
		MemorySize: hostsim.KernelOffset + opts.kernelSize + opts.heapSize,
		KernelSize: uintptr(opts.kernelSize),
		BusyPolls:  opts.busyPolls,
	}

	opts.logger.Debug("creating machine", "memory", cfg.MemorySize, "cmdline", cfg.CmdLine)
	m, err := hostsim.NewMachine(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create machine")
	}

	if err := m.Boot(); err != nil {
		m.Close()
		return nil, err
	}

	start, end := m.KernelExtents()
	opts.logger.Debug("machine booted", "kernelStart", start, "kernelEnd", end, "serialBytes", len(m.SerialOutput()))
	return m, nil
}
