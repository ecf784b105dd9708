package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sadopc/dirpie/internal/config"
	"github.com/sadopc/dirpie/internal/fsys"
	"github.com/sadopc/dirpie/internal/logging"
	"github.com/sadopc/dirpie/internal/metrics"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/ops"
	"github.com/sadopc/dirpie/internal/remote"
	"github.com/sadopc/dirpie/internal/scanner"
	"github.com/sadopc/dirpie/internal/ui"
	"github.com/sadopc/dirpie/internal/ui/components"
	"github.com/sadopc/dirpie/internal/util"
	"github.com/sadopc/dirpie/internal/watch"
)

const defaultExportFile = "dirpie-export.json"

func run(ctx context.Context, cfg config.Config, target scanTarget, f cliFlags, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	headless := f.exportPath != "" || f.once
	logCfg := cfg.Log
	if !headless && logCfg.OutputPath == "" {
		// The UI owns the terminal.
		logCfg.OutputPath = logging.DefaultFile()
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var (
		source   fsys.FS = fsys.Local()
		dir      string
		label    string
		readOnly bool
	)
	if target.Remote {
		rfs, err := remote.Dial(ctx, remote.Config{
			Target:    target.SSHDestination,
			Port:      cfg.SSH.Port,
			BatchMode: cfg.SSH.Batch,
			Timeout:   cfg.SSH.Timeout,
			Logger:    log.Named("remote"),
		})
		if err != nil {
			return err
		}
		defer rfs.Close()
		if dir, err = rfs.Resolve(target.RemotePath); err != nil {
			return err
		}
		source, label, readOnly = rfs, target.SSHDestination, true
	} else if dir, err = localDir(target.LocalPath); err != nil {
		return err
	}

	opts := scanner.Options{
		Workers:         cfg.Workers,
		CapBytes:        cfg.CapBytes,
		RefreshInterval: cfg.RefreshInterval,
		Logger:          log.Named("scanner"),
	}
	if cfg.MetricsAddr != "" {
		m := metrics.New()
		opts.Observer = m
		shutdown, err := serveMetrics(cfg.MetricsAddr, m.Handler(), log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	engine := scanner.New(source, opts)
	engine.Start()
	defer engine.Shutdown()
	log.Info("starting", zap.String("dir", dir), zap.Bool("remote", target.Remote), zap.Int("workers", cfg.Workers))

	if headless {
		return runHeadless(ctx, engine, dir, f, stdout)
	}

	appOpts := ui.Options{
		StartDir:   dir,
		Label:      label,
		ExportPath: defaultExportFile,
		Version:    version,
		ReadOnly:   readOnly,
		Logger:     log.Named("ui"),
	}
	if cfg.Watch {
		if target.Remote {
			log.Warn("watch is only supported for local directories")
		} else {
			w, err := watch.New(engine, cfg.WatchDebounce, log.Named("watch"))
			if err != nil {
				return err
			}
			defer w.Close()
			appOpts.OnNavigate = func(d string) {
				if err := w.Follow(d); err != nil {
					log.Warn("cannot watch directory", zap.String("dir", d), zap.Error(err))
				}
			}
		}
	}

	p := tea.NewProgram(ui.NewApp(engine, appOpts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// runHeadless analyzes dir, waits for the view to settle and reports it.
func runHeadless(ctx context.Context, engine *scanner.Engine, dir string, f cliFlags, stdout io.Writer) error {
	if err := engine.StartAnalyze(dir); err != nil {
		return err
	}
	snap, err := engine.WaitSettled(ctx)
	if err != nil {
		return fmt.Errorf("analysis of %s interrupted: %w", dir, err)
	}
	model.SortEntries(snap.Entries, model.DefaultSort())

	if f.exportPath != "" {
		if err := ops.ExportJSON(snap, f.exportPath, version); err != nil {
			return fmt.Errorf("export error: %w", err)
		}
		if f.exportPath != "-" {
			fmt.Fprintf(stdout, "Exported to %s\n", f.exportPath)
		}
	}
	if f.once {
		return printTable(stdout, snap)
	}
	return nil
}

// printTable writes one row per entry, largest first, then the totals line.
func printTable(w io.Writer, snap model.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "SIZE\tPCT\t %s\n", snap.Dir)
	for _, e := range snap.Entries {
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		if e.Reparse {
			name += " ->"
		}
		pct := util.FormatPercent(util.Percent(e.Bytes, snap.Sum), e.HasValue)
		fmt.Fprintf(tw, "%s\t%s\t %s\n", util.SizeLabel(e.Bytes, e.HasValue, e.HasValue && e.Approx()), pct, name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "total %s in %s items | %s\n",
		components.Summary(snap), util.FormatCount(uint64(len(snap.Entries))), components.ProgressText(snap))
	return err
}

// serveMetrics starts the Prometheus endpoint and returns its shutdown.
func serveMetrics(addr string, handler http.Handler, log *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
