package main

import (
	"os"
	"strings"

	"github.com/nimasrn/live-commerce/internal/config"
	"github.com/nimasrn/live-commerce/migrations"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/pg"
)

// main.go [--env=.env] [--dir=./migrations]
// Without --dir the migrations embedded in the binary are applied.
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pgConf := config.Get().PostgresWrite()
	if dir := getMigrationPath(); dir != "" {
		err = pg.Migrate(pgConf, nil, dir)
	} else {
		err = pg.Migrate(pgConf, migrations.FS, ".")
	}
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
}

func getEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--dir=") {
			s := strings.Split(v, "=")
			if _, err := os.Stat(s[1]); err != nil {
				logger.Error("failed to open the migrations dir, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
