// Command fusion drives one document-fusion run end to end: it loads a
// manifest, normalizes it, and runs the two-stage concurrent fusion
// engine (internal/fusion) to completion while reporting progress.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/akbstat/fusion/internal/archive"
	cfgpkg "github.com/akbstat/fusion/internal/config"
	"github.com/akbstat/fusion/internal/convert"
	"github.com/akbstat/fusion/internal/fusion"
	"github.com/akbstat/fusion/internal/fusionlog"
	"github.com/akbstat/fusion/internal/lock"
	logpkg "github.com/akbstat/fusion/internal/logging"
	"github.com/akbstat/fusion/internal/metrics"
	"github.com/akbstat/fusion/internal/progress"
)

var (
	manifestPath string
	runID        string
	converterBin string
	convertTmout time.Duration
	useBar       bool
	flockFile    string
	skipFlock    bool
	archiveS3    bool
)

func init() {
	pflag.StringVarP(&manifestPath, "manifest", "m", "", "Path to the JSON fusion manifest (required).")
	pflag.StringVar(&runID, "id", "", "Run id. Workspaces are rooted at $MK_FUSION/workspace/<id>. Generated if empty.")
	pflag.StringVar(&converterBin, "converter", os.Getenv("MK_CONVERTER_BIN"), "Path to the external RTF->PDF converter binary.")
	pflag.DurationVar(&convertTmout, "convert-timeout", 0, "Per-task convert timeout. Zero means no timeout.")
	pflag.BoolVarP(&useBar, "bar", "b", true, "Show a progress bar while the run is in flight.")
	pflag.StringVar(&flockFile, "flock", filepath.Join(os.TempDir(), "fusion.lock"), "Path to a local file lock, preventing two fusion processes from racing the same host.")
	pflag.BoolVar(&skipFlock, "ignore-flock", false, "Skip local file locking.")
	pflag.BoolVar(&archiveS3, "archive", false, "Upload the finished deliverables to S3 after the run completes.")
	pflag.Parse()

	if manifestPath == "" {
		fmt.Println("fusion options:")
		pflag.PrintDefaults()
		os.Exit(2)
	}
}

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	if err := logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logging init: %v\n", err)
		os.Exit(1)
	}
	defer logpkg.Close()

	if !skipFlock {
		fileLock := flock.New(flockFile)
		locked, err := fileLock.TryLock()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to acquire local lock")
		}
		if !locked {
			log.Fatal().Str("flock", flockFile).Msg("another fusion process is already running on this host")
		}
		defer fileLock.Unlock()
	}

	if runID == "" {
		runID = uuid.NewString()
	}

	var distLock *lock.Lock
	if cfg.Lock.Enabled {
		l, ok, err := lock.Acquire(context.Background(), cfg.Lock.RedisURL, runID, cfg.Lock.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to acquire distributed run lock")
		}
		if !ok {
			log.Fatal().Str("run_id", runID).Msg("run id already locked by another process")
		}
		distLock = l
		defer distLock.Release(context.Background())
	}

	workspace, err := cfgpkg.Workspace(runID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve workspace")
	}

	runLogger, err := fusionlog.New(filepath.Join(workspace, "log.txt"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open run log")
	}
	defer runLogger.Close()

	param, err := fusion.LoadManifest(manifestPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load manifest")
	}
	param.ID = runID
	if param.Destination == "" {
		param.Destination = workspace
	}

	controller := &fusion.Controller{
		Workers:    cfg.Fusion.Workers,
		Converter:  &convert.Converter{Bin: converterBin, Timeout: convertTmout},
		CombineBin: cfg.Fusion.CombineBin,
		OutlineBin: cfg.Fusion.OutlineBin,
		Logf: func(format string, args ...any) {
			runLogger.Write(fmt.Sprintf(format, args...))
		},
	}

	state, err := controller.Run(context.Background(), param)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start fusion run")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := watchProgress(state, cfg, workspace, useBar)

	select {
	case <-stop:
		log.Warn().Msg("signal received, fusion run left in progress")
	case <-done:
		log.Info().Str("run_id", runID).Msg("fusion run completed")
		if (archiveS3 || cfg.Archive.Enabled) && cfg.Archive.Bucket != "" {
			archiveDeliverables(param, cfg, runID)
		}
	}
}

// watchProgress polls state.Progress() on a ticker (the same poll-until-done
// shape the ambient job monitor uses) until the run reaches Completed,
// optionally rendering a progress bar and periodically writing textfile
// metrics, and closes the returned channel once the run is done.
func watchProgress(state *progress.State, cfg cfgpkg.Config, workspace string, showBar bool) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		var bar *pb.ProgressBar
		if showBar {
			bar = pb.ProgressBarTemplate(`{{ string . "stage" }} {{ bar . }} {{ percent . }}`).Start(100)
			defer bar.Finish()
		}

		pollInterval := cfg.Metrics.Interval
		if pollInterval <= 0 {
			pollInterval = 200 * time.Millisecond
		}
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			fraction, stage := state.Progress()
			if bar != nil {
				bar.Set("stage", stage.String())
				bar.SetCurrent(int64(fraction * 100))
			}
			metrics.SetProgress(fraction, stage.String())
			if cfg.Metrics.TextfilePath != "" {
				_ = metrics.WriteTextfile(cfg.Metrics.TextfilePath)
			}
			if stage == progress.Completed {
				return
			}

			<-ticker.C
		}
	}()

	return done
}

func archiveDeliverables(param *fusion.FusionParam, cfg cfgpkg.Config, runID string) {
	cli, err := archive.New(context.Background(), cfg.Archive.Bucket, cfg.Archive.Prefix)
	if err != nil {
		log.Error().Err(err).Msg("archive client init failed, skipping upload")
		return
	}
	for _, task := range param.Tasks {
		url, err := cli.UploadDeliverable(context.Background(), runID, task.Destination)
		if err != nil {
			log.Error().Err(err).Str("task", task.Name).Msg("failed to archive deliverable")
			continue
		}
		log.Info().Str("task", task.Name).Str("url", url).Msg("deliverable archived")
	}
}
