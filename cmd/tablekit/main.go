package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"tablekit/internal/config"
	"tablekit/internal/dberr"
	"tablekit/internal/repository/sqldb"
	"tablekit/internal/service"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "config file path (default: search standard locations)")
	dbPath := flag.String("db", "", "SQLite database path, overrides the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	initConfig := flag.Bool("init-config", false, "write a default config file and exit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *initConfig {
		path, err := config.WriteDefault(*configPath)
		if err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("wrote default config to %s\n", path)
		return
	}

	var (
		cfg    *config.Config
		source string
		err    error
	)
	if *configPath != "" {
		cfg, source, err = config.LoadFromPath(*configPath)
	} else {
		cfg, source, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = *dbPath
	}
	if *debug {
		cfg.Log.Debug = true
	}

	logger, err := newLogger(cfg.Log.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	if source != "" {
		logger.Infow("config loaded", "path", source)
	}
	logger.Debugw("configuration", "summary", cfg.Summary())

	ctx := context.Background()
	repo, err := sqldb.Open(ctx, cfg.Database, logger)
	if err != nil {
		if errors.Is(err, dberr.ErrConfiguration) {
			log.Fatalf("Invalid table declarations: %v", err)
		}
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	eventBus := service.NewEventBus()
	events := make(chan service.Event, 100)
	eventBus.Subscribe(events)

	sh := &shell{
		users:    service.NewUserService(repo, eventBus, logger),
		messages: service.NewMessageService(repo, eventBus, logger),
		events:   events,
		log:      logger,
		out:      os.Stdout,
	}
	if err := sh.repl(ctx); err != nil {
		log.Printf("Command loop failed: %v", err)
	}
}

// newLogger logs to stderr so command output stays on stdout.
func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stderr"}
		logger, err = z.Build()
	} else {
		z := zap.NewProductionConfig()
		z.OutputPaths = []string{"stderr"}
		z.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = z.Build()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger.Sugar(), nil
}
