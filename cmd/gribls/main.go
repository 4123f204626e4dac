// Command gribls lists and indexes the messages of GRIB files. It works on
// the framing level only, so no decoding backend is needed: offsets and
// lengths come from the boundary scan, cached in sidecar files.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/justapithecus/grib/grib"
	"github.com/justapithecus/grib/internal/cliconfig"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "gribls",
		Short:         "List and index the messages of GRIB files",
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("config %s: %w", cfgFile, err)
				}
				changed := map[string]bool{
					"cache-dir":   cmd.Flags().Changed("cache-dir"),
					"compression": cmd.Flags().Changed("compression"),
					"log-level":   cmd.Flags().Changed("log-level"),
				}
				cliconfig.ApplyFileConfig(&cfg, fc, changed)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "config file (default ~/.grib/config.toml)")
	pf.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "sidecar cache directory")
	pf.StringVar(&cfg.Compression, "compression", cfg.Compression, "sidecar compression: none or zstd")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	root.AddCommand(lsCmd(&cfg), indexCmd(&cfg), scanCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gribls:", err)
		os.Exit(1)
	}
}

func openReader(cfg *cliconfig.Config, path string) (*grib.Reader, error) {
	compression, err := cfg.SidecarCompression()
	if err != nil {
		return nil, err
	}
	opts := []grib.Option{
		grib.WithSidecarCompression(compression),
		grib.WithLogger(cfg.Logger()),
	}
	if cfg.CacheDir != "" {
		opts = append(opts, grib.WithCacheDir(cfg.CacheDir))
	}
	return grib.OpenReader(path, opts...)
}

func lsCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <file>...",
		Short: "List the message ranges of GRIB files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				r, err := openReader(cfg, path)
				if err != nil {
					return err
				}

				fmt.Printf("%s: %d messages\n", path, r.Len())
				fmt.Printf("%6s %12s %12s\n", "msg", "offset", "length")
				ix := r.Index()
				for n := 0; n < ix.Len(); n++ {
					m := ix.Message(n)
					fmt.Printf("%6d %12d %12d\n", n, m.Offset, m.Length)
				}
				if err := r.Close(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func indexCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "index <file>...",
		Short: "Build or refresh the sidecar index of GRIB files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				r, err := openReader(cfg, path)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d messages indexed\n", path, r.Len())
				if err := r.Close(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <file>...",
		Short: "Scan GRIB files for message boundaries, bypassing the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				msgs, err := grib.ScanMessages(path)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d messages\n", path, len(msgs))
				for n, m := range msgs {
					fmt.Printf("%6d %12d %12d\n", n, m.Offset, m.Length)
				}
			}
			return nil
		},
	}
}
