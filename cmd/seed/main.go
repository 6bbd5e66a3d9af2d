// seed inserts development sample users for local testing.
// Idempotent: users whose email already exists are left untouched.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/config"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/db"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
)

var devUsers = []struct {
	email string
	name  string
}{
	{"candidate1@example.com", "Candidate One"},
	{"candidate2@example.com", "Candidate Two"},
	{"proctor@example.com", "Exam Proctor"},
}

func main() {
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

	conn, err := db.Open(cfg.DatabaseURL, 1)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, u := range devUsers {
		res, err := conn.ExecContext(ctx,
			`INSERT INTO users (email, name) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING`,
			u.email, u.name)
		if err != nil {
			logger.Fatal("create user", zap.String("email", u.email), zap.Error(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			logger.Info("user exists, skipping", zap.String("email", u.email))
			continue
		}
		var id int64
		if err := conn.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, u.email).Scan(&id); err != nil {
			logger.Fatal("read user id", zap.String("email", u.email), zap.Error(err))
		}
		logger.Info("user created", zap.String("email", u.email), zap.Int64("id", id))
	}
}
