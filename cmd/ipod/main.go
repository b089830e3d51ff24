package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/B612-Asteroid-Institute/ipod/internal/catalog"
	"github.com/B612-Asteroid-Institute/ipod/internal/config"
	"github.com/B612-Asteroid-Institute/ipod/internal/dispatch"
	"github.com/B612-Asteroid-Institute/ipod/internal/inputs"
	"github.com/B612-Asteroid-Institute/ipod/internal/logging"
	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
	"github.com/B612-Asteroid-Institute/ipod/internal/precovery"
	"github.com/B612-Asteroid-Institute/ipod/internal/refine"
	"github.com/B612-Asteroid-Institute/ipod/internal/runtime"
	"github.com/B612-Asteroid-Institute/ipod/internal/storage"
)

// Version and GitSHA are set at build time via -ldflags.
var (
	Version = "dev"
	GitSHA  = ""
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		orbitsPath = flag.String("orbits", "", "fitted orbits parquet file (overrides config)")
		runID      = flag.String("run-id", "", "run identifier (default: generated)")
		sequential = flag.Bool("sequential", false, "run chunks in-process without a worker pool")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *orbitsPath != "" {
		cfg.Inputs.OrbitsPath = *orbitsPath
	}
	if *sequential {
		cfg.Run.Sequential = true
	}

	logging.Setup(logging.Config{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	log := logging.Component("main")
	log.Info("starting ipod", "version", Version, "git_sha", GitSHA)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metrics.Init("ipod")
		go func() {
			log.Info("serving metrics", "address", cfg.Metrics.Address)
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if err := run(ctx, cfg, *runID); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}

	log.Info("ipod finished cleanly")
}

func run(ctx context.Context, cfg config.Config, runID string) error {
	log := logging.Component("main")

	if runID == "" {
		runID = uuid.New().String()
	}
	log.Info("run configured",
		"run_id", runID,
		"chunk_size", cfg.Run.ChunkSize,
		"sequential", cfg.Run.Sequential,
	)

	if cfg.Inputs.OrbitsPath == "" {
		return fmt.Errorf("no orbits input configured")
	}
	orbitTable, err := inputs.LoadOrbits(cfg.Inputs.OrbitsPath)
	if err != nil {
		return err
	}
	memberTable, err := inputs.LoadMembers(cfg.Inputs.MembersPath)
	if err != nil {
		return err
	}
	obsTable, err := inputs.LoadObservations(cfg.Inputs.ObservationsPath)
	if err != nil {
		return err
	}

	worker := dispatch.WorkerConfig{
		Refiner: refine.NewIterativeRefiner(),
		OpenIndex: func() (precovery.Index, error) {
			return precovery.Open(cfg.Run.IndexDir)
		},
		Params: cfg.Refine,
	}

	opts := dispatch.Options{
		ChunkSize:  cfg.Run.ChunkSize,
		MaxWorkers: cfg.Run.MaxWorkers,
		Worker:     worker,
	}

	if !cfg.Run.Sequential {
		var store runtime.ObjectStore
		if cfg.Run.Store == "bucket" {
			blobStore, err := runtime.OpenBlobStore(ctx, cfg.Run.StoreBucketURL, cfg.Run.StorePrefix)
			if err != nil {
				return fmt.Errorf("open object store: %w", err)
			}
			defer blobStore.Close()
			store = blobStore
		}

		local := runtime.NewLocal(cfg.Run.MaxWorkers, store)
		defer local.Close()
		opts.Runtime = local
	}

	recorder, err := catalog.NewRecorder(ctx, cfg.Catalog)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer recorder.Close()

	started := time.Now().UTC()
	record := catalog.RunRecord{
		RunID:           runID,
		Orbits:          int64(orbitTable.Len()),
		ChunkSize:       cfg.Run.ChunkSize,
		Workers:         cfg.Run.MaxWorkers,
		SchemaVersion:   orbits.SchemaVersion,
		ProducerVersion: Version,
		ProducerGitSHA:  GitSHA,
		StartedAt:       started,
	}

	result, runErr := dispatch.Run(ctx,
		dispatch.Value(orbitTable),
		dispatch.Value(memberTable),
		dispatch.Value(obsTable),
		opts,
	)
	if runErr != nil {
		record.FinishedAt = time.Now().UTC()
		record.ErrorMessage = runErr.Error()
		if recErr := recorder.RecordRun(ctx, record); recErr != nil {
			log.Warn("failed to record aborted run", "error", recErr)
		}
		return runErr
	}

	resultStore, err := storage.NewResultStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open result storage: %w", err)
	}
	defer resultStore.Close()

	producer := storage.ProducerInfo{Name: "ipod", Version: Version, GitSHA: GitSHA}
	if _, err := storage.PublishResults(ctx, resultStore, runID, result, producer); err != nil {
		return err
	}

	ref := storage.ResultRef{RunID: runID}
	record.Candidates = int64(result.Candidates.Len())
	record.StoragePath = ref.DirPath(cfg.Storage.Prefix)
	record.StorageURI = resultStore.URI(ref.DirPath(cfg.Storage.Prefix))
	record.FinishedAt = time.Now().UTC()
	record.Success = true
	if err := recorder.RecordRun(ctx, record); err != nil {
		log.Warn("failed to record run", "error", err)
	}

	return nil
}
