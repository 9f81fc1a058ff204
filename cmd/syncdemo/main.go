// Command syncdemo is a reference driver for pkg/progress: it watches a
// directory, copies changed files to a destination directory, and serves
// a browser-based progress UI over a websocket while exposing Prometheus
// metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/entropycollective/syncprogress/cmd/syncdemo/internal/scanner"
	"github.com/entropycollective/syncprogress/cmd/syncdemo/internal/webui"
	"github.com/entropycollective/syncprogress/pkg/logging"
	"github.com/entropycollective/syncprogress/pkg/metrics"
	"github.com/entropycollective/syncprogress/pkg/progress"
)

func main() {
	var (
		srcDir     = flag.String("src", ".", "directory to watch")
		dstDir     = flag.String("dst", "./syncdemo-out", "directory to mirror changed files into")
		addr       = flag.String("addr", ":8090", "address for the progress web UI")
		metricsPort = flag.Int("metrics-port", 9091, "port for the Prometheus /metrics endpoint")
		logLevel   = flag.String("log-level", "info", "debug, info, warn, or error")
	)
	flag.Parse()

	log, err := logging.ConfigureFromSettings(*logLevel, "text", "console", "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "syncdemo:", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*dstDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("creating destination directory")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ui := webui.New(log, progress.ResponseIgnore)
	collector := metrics.NewCollector()
	cb := metrics.Decorate(ui, collector)

	go func() {
		if err := http.ListenAndServe(*addr, ui.Router()); err != nil {
			log.Error().Err(err).Msg("web UI server stopped")
		}
	}()
	go func() {
		if err := metrics.StartServer(*metricsPort); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().Str("src", *srcDir).Str("dst", *dstDir).Str("ui", *addr).Msg("syncdemo starting")

	sc, err := scanner.New(*srcDir, scanner.Config{}, func(pc *progress.ParallelContext, path string) error {
		return copyFile(pc, *srcDir, *dstDir, path)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("creating scanner")
	}

	scanErrCh := make(chan error, 1)
	go func() { scanErrCh <- sc.Run(ctx) }()

	// Drive MassParallelExecute continuously, one batch per round: block
	// for the first item of a batch, then greedily absorb whatever else is
	// immediately ready so a burst of events becomes one mass-parallel run
	// instead of one run per file. This keeps sc.Items() drained for the
	// whole process lifetime rather than only during a fixed startup
	// window.
runLoop:
	for {
		var batch []progress.WorkItem

		select {
		case it, ok := <-sc.Items():
			if !ok {
				break runLoop
			}
			batch = append(batch, it)
		case <-ctx.Done():
			break runLoop
		}

	drainReady:
		for {
			select {
			case it, ok := <-sc.Items():
				if !ok {
					break drainReady
				}
				batch = append(batch, it)
			default:
				break drainReady
			}
		}

		if err := progress.MassParallelExecute(ctx, batch, "syncdemo", cb, progress.ExecutorConfig{Logger: log}); err != nil {
			log.Error().Err(err).Msg("sync run ended with error")
		}
	}

	<-ctx.Done()
	if err := <-scanErrCh; err != nil {
		log.Error().Err(err).Msg("scanner stopped")
	}
}

func copyFile(pc *progress.ParallelContext, srcRoot, dstRoot, path string) error {
	rel, err := filepath.Rel(srcRoot, path)
	if err != nil {
		return fmt.Errorf("syncdemo: resolving relative path: %w", err)
	}
	dst := filepath.Join(dstRoot, rel)

	_, err = progress.TryReporting(pc.Ctx, pc.Callback, func(ctx context.Context) error {
		return doCopy(pc, path, dst)
	})
	return err
}

func doCopy(pc *progress.ParallelContext, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	reporter := progress.NewItemStatReporter(pc.Callback, 1, info.Size())
	defer reporter.Close()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return err
			}
			reporter.ReportDelta(0, int64(n))
			if err := pc.Callback.UpdateStatus(pc.Ctx, pc.Status(), fmt.Sprintf("copying %s", filepath.Base(src))); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	reporter.ReportDelta(1, 0)
	reporter.Succeed()
	return nil
}
