package app

import (
	"context"
	"strconv"
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/catalog"
	"github.com/blackwell-systems/shelfkeep/internal/database"
	"github.com/blackwell-systems/shelfkeep/internal/drive"
	"github.com/blackwell-systems/shelfkeep/internal/migrations"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// library is an open catalog database.
type library struct {
	db    *bun.DB
	store *catalog.Store
}

// openLibrary opens the configured database and applies pending migrations.
func openLibrary(ctx context.Context) (*library, error) {
	db, err := database.New(cfg.Library.DatabasePath(), database.Options{
		Debug:       cfg.Database.Debug,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	if group != nil && !group.IsZero() {
		logger.FromContext(ctx).Info("applied migrations", logger.Data{"group": group.String()})
	}

	return &library{db: db, store: catalog.NewStore(db)}, nil
}

func (l *library) Close() {
	_ = l.db.Close()
}

func newTokenStore() *drive.FileTokenStore {
	return drive.NewFileTokenStore(cfg.Drive.EffectiveTokenFile(cfg.Library.Dir), time.Now)
}

func newDriveClient() *drive.Client {
	return drive.New(newTokenStore(), drive.Options{
		APIBase:    cfg.Drive.APIBase,
		UploadBase: cfg.Drive.UploadBase,
		NamePrefix: cfg.Drive.NamePrefix,
	})
}

func parseBookID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid book id %q", s)
	}
	return id, nil
}
