package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/social-cli/internal/config"
	"github.com/sells-group/social-cli/internal/store"
)

// openStore opens and migrates the run history store. It returns nil when
// the store is disabled.
func openStore(ctx context.Context, sc config.StoreConfig, outDir string) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case store.DriverNone, "":
		return nil, nil
	case store.DriverSQLite:
		dsn := sc.DatabaseURL
		if dsn == "" {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return nil, eris.Wrap(err, "store: create output dir")
			}
			dsn = filepath.Join(outDir, store.DefaultSQLiteFile)
		}
		st, err = store.NewSQLite(dsn)
	case store.DriverPostgres:
		st, err = store.NewPostgres(ctx, sc.DatabaseURL, poolConfig(sc))
	default:
		return nil, config.Errorf("unsupported store driver: %s", sc.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func poolConfig(sc config.StoreConfig) *store.PoolConfig {
	return &store.PoolConfig{MaxConns: sc.MaxConns, MinConns: sc.MinConns}
}
