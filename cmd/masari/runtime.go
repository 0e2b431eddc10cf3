package main

import (
	"errors"
	"time"

	"github.com/masari-app/masari/backend/internal/applications"
	"github.com/masari-app/masari/backend/internal/config"
	"github.com/masari-app/masari/backend/internal/database"
	"github.com/masari-app/masari/backend/internal/logging"
	"github.com/masari-app/masari/backend/internal/storage"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// appRuntime holds the wired services shared by the server and CLI commands.
type appRuntime struct {
	config       config.AppConfig
	logger       *zap.Logger
	applications *applications.Service
	closers      []func() error
}

func openRuntime() (*appRuntime, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	runtime := &appRuntime{config: appConfig, logger: logger}

	store, err := runtime.openStore()
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}

	gateway, err := applications.NewGateway(applications.GatewayConfig{
		Store:      store,
		Key:        appConfig.StorageKey,
		Clock:      time.Now,
		IDProvider: applications.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}

	engine, err := applications.NewEngine(applications.EngineConfig{
		Clock:      time.Now,
		IDProvider: applications.NewUUIDProvider(),
		Language:   appConfig.LabelLanguage,
	})
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}

	runtime.applications, err = applications.NewService(applications.ServiceConfig{
		Gateway: gateway,
		Engine:  engine,
		Logger:  logger,
	})
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}

	return runtime, nil
}

func (r *appRuntime) openStore() (storage.DocumentStore, error) {
	if r.config.StorageDriver == config.StorageDriverMemory {
		r.logger.Warn("using in-memory document store; data is lost on exit")
		return storage.NewMemoryStore(), nil
	}

	db, err := database.OpenSQLite(r.config.DatabasePath, r.logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, sqlDB.Close)

	return storage.NewSQLiteStore(storage.SQLiteStoreConfig{Database: db, Clock: time.Now})
}

// Close releases the database handle and flushes the logger.
func (r *appRuntime) Close() error {
	var errs []error
	for index := len(r.closers) - 1; index >= 0; index-- {
		if err := r.closers[index](); err != nil {
			errs = append(errs, err)
		}
	}
	_ = r.logger.Sync()
	return errors.Join(errs...)
}
