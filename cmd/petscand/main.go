package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/petfood-scanner/internal/app"
	"github.com/joseph-ayodele/petfood-scanner/internal/async"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/ingest"
	"github.com/joseph-ayodele/petfood-scanner/internal/logger"
	"github.com/joseph-ayodele/petfood-scanner/internal/scan"
	"github.com/joseph-ayodele/petfood-scanner/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	log := a.Logger

	if err := a.DB.HealthCheck(ctx, 3*time.Second, log); err != nil {
		log.Error("DB health failed", "error", err)
		os.Exit(1)
	}
	log.Info("DB health OK", "dialect", a.DB.Dialect())

	if err := run(ctx, a); err != nil {
		log.Error("petscand stopped with error", "error", err)
		a.Close()
		os.Exit(1)
	}
	log.Info("stopped")
}

func run(ctx context.Context, a *app.App) error {
	cfg, log := a.Config, a.Logger
	g, ctx := errgroup.WithContext(ctx)

	// gRPC health
	grpcServer, hs := server.NewGRPCServer()
	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	g.Go(func() error {
		log.Info("gRPC serving", "addr", grpcLis.Addr().String())
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		server.ReportDBHealth(ctx, a.DB, hs, 15*time.Second, 2*time.Second, logger.WithComponent(log, "health"))
		return nil
	})

	// Label inbox
	var (
		queue    *async.LabelQueue
		ingestor ingest.Ingestor
	)
	if cfg.Inbox.Dir != "" {
		queue = async.NewLabelQueue(a.Processor, logger.WithComponent(log, "queue"), async.WithWorkers(cfg.Inbox.Workers))
		fs := ingest.NewFSIngestor(queue, logger.WithComponent(log, "ingest"))
		ingestor = fs
		if err := os.MkdirAll(cfg.Inbox.Dir, 0o755); err != nil {
			return fmt.Errorf("inbox dir: %w", err)
		}
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Inbox.Dir},
			InitialScan: true,
			Debounce:    cfg.Inbox.Debounce,
			SkipHidden:  true,
			Logger:      logger.WithComponent(log, "watcher"),
		})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		g.Go(func() error {
			watchInbox(ctx, fs, events, errs, log)
			return nil
		})
		log.Info("watching label inbox", "dir", cfg.Inbox.Dir, "workers", cfg.Inbox.Workers)
	}

	// HTTP: scan sessions, catalog, pets, export
	analyzer := scan.NewLocalAnalyzer(nil)
	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.New(server.Deps{
			Products:   a.Products,
			Pets:       a.Pets,
			Scans:      a.Scans,
			Export:     a.Export,
			Ingestor:   ingestor,
			Lookup:     a.Lookup,
			Recognizer: a.Recognizer,
			Analyzer:   analyzer,
			Scan:       cfg.Scan,
			Logger:     logger.WithComponent(log, "http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down...")
		hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		if queue != nil {
			queue.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}

func watchInbox(ctx context.Context, ing *ingest.FSIngestor, events <-chan string, errs <-chan error, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			if _, err := ing.IngestPath(ctx, path, false); err != nil {
				log.Warn("inbox ingest failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn("inbox watcher error", "error", err)
		}
	}
}
