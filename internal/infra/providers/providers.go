package providers

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/totegamma/passgate/internal/config"
	"github.com/totegamma/passgate/internal/infra/database"
	"github.com/totegamma/passgate/internal/service"
)

// NewDatabase opens Postgres when a DSN is configured and the sqlite file
// otherwise, then applies migrations.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	var db *gorm.DB
	var err error
	if conf.PostgresDsn != "" {
		db, err = database.NewPostgres(conf.PostgresDsn)
	} else {
		slog.Warn(
			"no postgres dsn, using sqlite",
			slog.String("path", conf.SqlitePath),
			slog.String("module", "providers"),
		)
		db, err = database.NewSqlite(conf.SqlitePath)
	}
	if err != nil {
		return nil, err
	}

	err = database.Migrate(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewRelay connects the cross-instance notification relay and starts
// forwarding into hub. It returns nil, with a warning, when redis is not
// configured or unreachable; notifications then stay local. The returned
// func releases the connection.
func NewRelay(ctx context.Context, conf config.Server, notify config.Notify, hub *service.Hub) (*service.SignalService, func()) {
	noop := func() {}
	if conf.RedisAddr == "" {
		return nil, noop
	}

	rdb, err := database.NewRedis(ctx, conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
	if err != nil {
		slog.Warn(
			"redis unavailable, notifications stay local",
			slog.String("error", err.Error()),
			slog.String("module", "providers"),
		)
		return nil, noop
	}

	relay := service.NewSignalService(rdb, notify.RedisChannel)
	err = relay.Forward(ctx, hub)
	if err != nil {
		slog.Warn(
			"redis subscribe failed, notifications stay local",
			slog.String("error", err.Error()),
			slog.String("module", "providers"),
		)
		rdb.Close()
		return nil, noop
	}

	return relay, func() { rdb.Close() }
}
