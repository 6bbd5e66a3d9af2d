// migrate runs DB migrations from embedded SQL.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/config"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/db/migrate"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		logger.Fatal("invalid flag", zap.Error(err))
	}
	version, err := migrate.Run(cfg.DatabaseURL, dir)
	if err != nil {
		logger.Fatal("migrate failed", zap.String("direction", string(dir)), zap.Error(err))
	}
	logger.Info("migrations applied", zap.String("direction", string(dir)), zap.Uint("version", version))
}
