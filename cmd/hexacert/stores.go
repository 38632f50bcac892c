package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	certMongo "github.com/davicafu/hexacert/internal/certificate/infra/outbound/db/mongodb"
	certPostgres "github.com/davicafu/hexacert/internal/certificate/infra/outbound/db/postgre"
	certSQLite "github.com/davicafu/hexacert/internal/certificate/infra/outbound/db/sqlite"
	"github.com/davicafu/hexacert/internal/config"
	issuanceDomain "github.com/davicafu/hexacert/internal/issuance/domain"
	progressMongo "github.com/davicafu/hexacert/internal/issuance/infra/outbound/db/mongodb"
	progressPostgres "github.com/davicafu/hexacert/internal/issuance/infra/outbound/db/postgre"
	progressSQLite "github.com/davicafu/hexacert/internal/issuance/infra/outbound/db/sqlite"
	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	sharedMongo "github.com/davicafu/hexacert/internal/shared/infra/platform/db/mongodb"
	sharedPostgres "github.com/davicafu/hexacert/internal/shared/infra/platform/db/postgres"
	sharedSQLite "github.com/davicafu/hexacert/internal/shared/infra/platform/db/sqlite"
)

// stores agrupa los repositorios de un mismo driver: el outbox vive junto a los certificados.
type stores struct {
	certs    certDomain.CertificateRepository
	progress issuanceDomain.ProgressRepository
	outbox   sharedDomain.OutboxRepository
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	case config.DriverMongoDB:
		return openMongo(ctx, cfg, log)
	default:
		return openSQLite(cfg, log)
	}
}

func openSQLite(cfg *config.Config, log *zap.Logger) (*stores, error) {
	db, err := sharedSQLite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := certSQLite.InitSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init certificates: %w", err)
	}
	if err := progressSQLite.InitSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init workflow progress: %w", err)
	}

	log.Info("💾 Usando SQLite", zap.String("path", cfg.SQLitePath))
	return &stores{
		certs:    certSQLite.NewCertificateRepoSQLite(db),
		progress: progressSQLite.NewProgressRepoSQLite(db),
		outbox:   sharedSQLite.NewOutboxRepoSQLite(db),
		close:    closeDB(db, log),
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	db, err := sharedPostgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := certPostgres.InitPostgres(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init certificates: %w", err)
	}
	if err := progressPostgres.InitPostgres(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init workflow progress: %w", err)
	}

	log.Info("💾 Usando PostgreSQL")
	return &stores{
		certs:    certPostgres.NewCertificateRepoPostgres(db),
		progress: progressPostgres.NewProgressRepoPostgres(db),
		outbox:   sharedPostgres.NewOutboxRepoPostgres(db),
		close:    closeDB(db, log),
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	disconnect := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}

	certs, err := certMongo.NewCertificateRepoMongoDB(ctx, client, cfg.MongoDB)
	if err != nil {
		disconnect()
		return nil, err
	}
	progress := progressMongo.NewProgressRepoMongoDB(client, cfg.MongoDB)
	if err := progress.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, fmt.Errorf("init workflow progress: %w", err)
	}

	log.Info("💾 Usando MongoDB", zap.String("database", cfg.MongoDB))
	return &stores{
		certs:    certs,
		progress: progress,
		outbox:   sharedMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB),
		close:    disconnect,
	}, nil
}

func closeDB(db *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("DB close failed", zap.Error(err))
		}
	}
}
