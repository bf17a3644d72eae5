package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/baseline"
	"github.com/aegis-sec/aegisfim/internal/config"
	"github.com/aegis-sec/aegisfim/internal/datastore"
	"github.com/aegis-sec/aegisfim/internal/discovery"
	"github.com/aegis-sec/aegisfim/internal/dispatcher"
	"github.com/aegis-sec/aegisfim/internal/history"
	"github.com/aegis-sec/aegisfim/internal/logger"
	"github.com/aegis-sec/aegisfim/internal/models"
	"github.com/aegis-sec/aegisfim/internal/monitor"
	"github.com/aegis-sec/aegisfim/internal/rslimiter"
)

// Process exit codes. Check mode uses ExitChangesDetected so scripts can
// branch on integrity drift without parsing output.
const (
	ExitOK              = 0
	ExitChangesDetected = 1
	ExitFatal           = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()
	if flags.mode != ModeInit && flags.mode != ModeCheck && flags.mode != ModeMonitor {
		fmt.Fprintf(os.Stderr, "aegisfim: --mode must be one of init, check, monitor (got %q)\n", flags.mode)
		return ExitFatal
	}

	gCfg, err := config.LoadGlobalConfig(flags.configFile)
	if err != nil {
		log.Printf("[FATAL] Could not load configuration: %v", err)
		return ExitFatal
	}
	if flags.baselinePath != "" {
		gCfg.StorageConfig.BaselinePath = flags.baselinePath
	}
	if err := config.ValidateConfig(gCfg); err != nil {
		log.Printf("[FATAL] Configuration validation failed: %v", err)
		return ExitFatal
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Printf("[FATAL] Could not initialize logger: %v", err)
		return ExitFatal
	}
	zLogger.Info().Str("mode", flags.mode).Str("baseline", gCfg.StorageConfig.BaselinePath).Msg("aegisfim starting")

	switch flags.mode {
	case ModeInit:
		return runInit(gCfg, zLogger, flags.force)
	case ModeCheck:
		return runCheck(gCfg, zLogger)
	default:
		return runMonitor(gCfg, zLogger)
	}
}

// selfPaths lists the agent's own state files; discovery must never report
// drift on files the agent itself rewrites every cycle.
func selfPaths(gCfg *config.GlobalConfig) []string {
	paths := []string{
		gCfg.StorageConfig.BaselinePath,
		gCfg.StorageConfig.HistoryDBPath,
		gCfg.AlertsConfig.FallbackLogPath,
		gCfg.LogConfig.LogFile,
	}
	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildService(gCfg *config.GlobalConfig, zLogger zerolog.Logger, deps monitor.Deps) (*monitor.Service, error) {
	disc, err := discovery.NewEngine(gCfg.DiscoveryConfig, selfPaths(gCfg), zLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize discovery engine: %w", err)
	}

	deps.Discoverer = disc
	deps.Baseliner = baseline.NewEngine(gCfg.BaselineConfig, zLogger)
	deps.BaselineStore = datastore.NewBaselineStore(gCfg.StorageConfig.BaselinePath, zLogger)
	return monitor.NewService(gCfg, deps, zLogger), nil
}

func runInit(gCfg *config.GlobalConfig, zLogger zerolog.Logger, force bool) int {
	svc, err := buildService(gCfg, zLogger, monitor.Deps{})
	if err != nil {
		zLogger.Error().Err(err).Msg("Initialization failed")
		return ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := svc.Init(ctx, force)
	if err != nil {
		zLogger.Error().Err(err).Msg("Baseline initialization failed")
		return ExitFatal
	}

	fmt.Printf("Baseline initialized with %d files (%d warnings) at %s\n",
		res.FilesScanned, len(res.Warnings), gCfg.StorageConfig.BaselinePath)
	return ExitOK
}

func runCheck(gCfg *config.GlobalConfig, zLogger zerolog.Logger) int {
	svc, err := buildService(gCfg, zLogger, monitor.Deps{})
	if err != nil {
		zLogger.Error().Err(err).Msg("Initialization failed")
		return ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := svc.Check(ctx)
	if err != nil {
		zLogger.Error().Err(err).Msg("Integrity check failed")
		return ExitFatal
	}

	printDiff(res.Diff)
	if !res.Diff.IsEmpty() {
		return ExitChangesDetected
	}
	return ExitOK
}

func printDiff(diff *models.DiffResult) {
	for _, rec := range diff.Added {
		fmt.Printf("ADDED     %s\n", rec.Path)
	}
	for _, rec := range diff.Removed {
		fmt.Printf("REMOVED   %s\n", rec.Path)
	}
	for _, entry := range diff.Modified {
		fmt.Printf("MODIFIED  %s (%s)\n", entry.Path, entry.Flags)
	}
	fmt.Printf("%d added, %d removed, %d modified, %d unchanged\n",
		len(diff.Added), len(diff.Removed), len(diff.Modified), diff.Unchanged)
}

func runMonitor(gCfg *config.GlobalConfig, zLogger zerolog.Logger) int {
	disp, err := dispatcher.NewDispatcher(gCfg.AlertsConfig, zLogger)
	if err != nil {
		zLogger.Error().Err(err).Msg("Failed to initialize alert dispatcher")
		return ExitFatal
	}

	deps := monitor.Deps{Alerts: disp}

	if path := gCfg.StorageConfig.HistoryDBPath; path != "" {
		db, err := history.NewDB(path, zLogger)
		if err != nil {
			zLogger.Error().Err(err).Msg("Failed to open scan history database")
			return ExitFatal
		}
		defer db.Close()
		deps.History = db
	}

	if base := gCfg.StorageConfig.ArchiveBasePath; base != "" {
		archive, err := datastore.NewChangeArchive(base, zLogger)
		if err != nil {
			zLogger.Error().Err(err).Msg("Failed to initialize change archive")
			return ExitFatal
		}
		deps.Archive = archive
	}

	guard := rslimiter.NewGuard(rslimiter.NewDefaultGuardConfig(), zLogger)
	deps.Guard = guard

	svc, err := buildService(gCfg, zLogger, deps)
	if err != nil {
		zLogger.Error().Err(err).Msg("Initialization failed")
		return ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	guard.Start()
	disp.Start()

	runErr := svc.Run(ctx)

	// Drain remaining alerts before exiting so a shutdown mid-burst loses
	// nothing that could still be delivered.
	disp.Stop()
	guard.Stop()

	if runErr != nil {
		zLogger.Error().Err(runErr).Msg("Monitoring loop failed")
		return ExitFatal
	}
	zLogger.Info().Msg("aegisfim stopped")
	return ExitOK
}
