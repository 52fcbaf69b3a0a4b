package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"calculator-ledger/internal/auth"
	"calculator-ledger/internal/calculator"
	"calculator-ledger/internal/config"
	"calculator-ledger/internal/ledger"
	"calculator-ledger/internal/logging"
	"calculator-ledger/internal/shell"
	"calculator-ledger/internal/storage"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file")
	dbPath := flag.String("db", "", "database file (overrides CALC_DB_PATH)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	if err := run(context.Background(), cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logger.Infof("configuration loaded: %v", cfg)

	store, err := storage.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("close database")
		}
	}()

	users := storage.NewUserRepository(store.Gorm)
	accounts := auth.NewService(users, storage.NewRoleRepository(store.DB), cfg.Auth.BcryptCost, logger)
	book := ledger.NewService(users, storage.NewCalculationRepository(store.DB), logger)
	calc := calculator.NewService(book, logger)

	sh := shell.New(accounts, book, calc, out, logger, shell.Options{
		StatisticsLimit: cfg.Ledger.StatisticsLimit,
		HistoryLimit:    cfg.Ledger.HistoryLimit,
	})
	return sh.Run(ctx, in)
}
