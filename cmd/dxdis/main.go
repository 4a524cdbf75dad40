// dxdis reads a DXIL container or LLVM 3.7 bitcode file and writes a
// listing of its module.
package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/dilithium/bitcode"
	"github.com/chazu/dilithium/config"
	"github.com/chazu/dilithium/dxil"
	"github.com/chazu/dilithium/ir"
	"github.com/chazu/dilithium/report"
)

type flags struct {
	format       string
	configPath   string
	lazyMetadata bool
	verbosity    int
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "dxdis INPUT [OUTPUT]",
		Short: "Disassemble a DXIL container or LLVM bitcode file",
		Long: `Reads INPUT, a DXIL container or raw LLVM 3.7 bitcode, and writes a listing
of the module to OUTPUT or stdout. For containers the shader model, required
features and signatures are listed first.`,
		Args: cobra.RangeArgs(1, 2),
		// main prints the error itself.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			commonlog.Configure(cfg.Log.Verbosity, logPath(cfg))

			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading input")
			}
			opts := bitcode.Options{LazyMetadata: cfg.Reader.LazyMetadata}
			shader, err := dxil.Load(ir.NewContext(), data, filepath.Base(args[0]), opts)
			if err != nil {
				return errors.Wrapf(err, "loading %s", args[0])
			}

			if len(args) == 2 {
				file, err := os.Create(args[1])
				if err != nil {
					return errors.Wrap(err, "creating output")
				}
				return writeAndClose(file, cfg.Output.Format, shader)
			}
			return report.Write(cmd.OutOrStdout(), cfg.Output.Format, shader)
		},
	}
	cmd.Flags().StringVar(&f.format, "format", config.FormatText, "Output format [text, yaml, cbor]")
	cmd.Flags().StringVar(&f.configPath, "config", "", "Configuration file (default: nearest "+config.FileName+")")
	cmd.Flags().BoolVar(&f.lazyMetadata, "lazy-metadata", false, "Defer module metadata until it is needed")
	cmd.Flags().CountVarP(&f.verbosity, "verbose", "v", "Log verbosity, repeat for more")
	return cmd
}

// loadConfig reads the configuration file and applies flags that were set
// explicitly on top of it.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fs.Changed("lazy-metadata") {
		cfg.Reader.LazyMetadata = f.lazyMetadata
	}
	if fs.Changed("verbose") {
		cfg.Log.Verbosity = f.verbosity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeAndClose writes the shader to w and closes it. A failed close is
// reported, since buffered data may not have reached the file.
func writeAndClose(w io.WriteCloser, format string, s *dxil.Shader) error {
	if err := report.Write(w, format, s); err != nil {
		w.Close()
		return err
	}
	return errors.Wrap(w.Close(), "closing output")
}

func logPath(cfg *config.Config) *string {
	if cfg.Log.File == "" {
		return nil
	}
	return &cfg.Log.File
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
