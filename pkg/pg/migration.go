package pg

import (
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending migration found in dir. When fsys is non-nil the
// directory is resolved inside it (embedded migrations), otherwise on disk.
func Migrate(cfg Config, fsys fs.FS, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if fsys != nil {
		goose.SetBaseFS(fsys)
		defer goose.SetBaseFS(nil)
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = goose.Up(db, dir); err != nil {
		return err
	}

	version, err := goose.GetDBVersion(db)
	if err == nil {
		logger.Info("migrations applied", "version", version)
	}
	return nil
}
