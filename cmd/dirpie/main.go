package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadopc/dirpie/internal/config"
	"github.com/sadopc/dirpie/internal/scanner"
	"github.com/sadopc/dirpie/internal/watch"
)

var version = "dev"

// cliFlags are the flags that select a mode rather than tune the engine.
type cliFlags struct {
	configFile  string
	exportPath  string
	once        bool
	showVersion bool
}

// flagKeys maps engine and connection flags onto config keys.
var flagKeys = map[string]string{
	"workers":          config.KeyWorkers,
	"cap-bytes":        config.KeyCapBytes,
	"refresh-interval": config.KeyRefreshInterval,
	"watch":            config.KeyWatch,
	"watch-debounce":   config.KeyWatchDebounce,
	"metrics-addr":     config.KeyMetricsAddr,
	"log-level":        config.KeyLogLevel,
	"log-format":       config.KeyLogFormat,
	"log-file":         config.KeyLogFile,
	"ssh-port":         config.KeySSHPort,
	"ssh-batch":        config.KeySSHBatch,
	"ssh-timeout":      config.KeySSHTimeout,
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var f cliFlags
	cmd := &cobra.Command{
		Use:   "dirpie [path | user@host [remote-path]]",
		Short: "Interactive directory size analyzer",
		Long: `dirpie lists the immediate children of a directory and sizes them in the
background: a capped estimate first, then an exact walk for anything the
estimate cut short. Sizes are cached for the refresh interval, so moving
between directories reuses earlier work.`,
		Example: `  dirpie .                        Analyze the current directory
  dirpie --once /var              Print the settled sizes of /var and exit
  dirpie --export scan.json ~     Write the settled view of ~ as JSON
  dirpie alice@10.0.0.5 /srv      Analyze /srv on a remote host over SFTP
  dirpie --watch --metrics-addr :9090 .`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				fmt.Fprintf(stdout, "dirpie %s\n", version)
				return nil
			}
			if f.once && f.exportPath == "-" {
				return fmt.Errorf("--once and --export - both write to stdout")
			}
			v, err := config.NewViper(f.configFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			target, err := resolveScanTarget(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, target, f, stdout)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configFile, "config", "", "config file (default "+config.DefaultFile()+")")
	fl.StringVar(&f.exportPath, "export", "", "analyze without the UI and write the settled view as JSON to `FILE` ('-' for stdout)")
	fl.BoolVar(&f.once, "once", false, "analyze without the UI and print the settled view as a table")
	fl.BoolVar(&f.showVersion, "version", false, "print version and exit")

	fl.Int("workers", scanner.DefaultWorkers, "concurrent directory walks")
	fl.Int64("cap-bytes", int64(scanner.DefaultCapBytes), "byte limit of the first estimating walk (0 = no limit)")
	fl.Duration("refresh-interval", scanner.DefaultRefreshInterval, "how long a cached size suppresses a new walk")
	fl.Bool("watch", false, "rescan when the viewed local directory changes")
	fl.Duration("watch-debounce", watch.DefaultDebounce, "quiet period before a watched change triggers a rescan")
	fl.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	fl.String("log-level", "info", "log level: debug, info, warn, error")
	fl.String("log-format", "console", "log format: console or json")
	fl.String("log-file", "", "log destination (default stderr without the UI, a cache file with it)")
	fl.Int("ssh-port", 22, "SSH port for remote targets")
	fl.Bool("ssh-batch", false, "disable SSH password and host key prompts")
	fl.Duration("ssh-timeout", 15*time.Second, "SSH handshake timeout")
	return cmd
}

// bindFlags lets explicitly set flags override the file and environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}
