package main

import (
	"context"

	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
	"github.com/MarcoPoloResearchLab/decks/internal/config"
	"github.com/MarcoPoloResearchLab/decks/internal/database"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/MarcoPoloResearchLab/decks/internal/preferences"
	"go.uber.org/zap"
)

type app struct {
	deckService *deck.Service
	preferences preferences.Store
	closers     []func() error
}

func openApp(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (*app, error) {
	slideCatalog, err := loadCatalog(appConfig.CatalogPath)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	result := &app{closers: []func() error{sqlDB.Close}}

	repo, err := deck.NewGormRepository(db)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.deckService, err = deck.NewService(deck.ServiceConfig{
		Repository: repo,
		Catalog:    slideCatalog,
		IDProvider: deck.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		result.Close()
		return nil, err
	}

	if appConfig.RedisURL != "" {
		redisStore, err := preferences.NewRedisStore(ctx, appConfig.RedisURL)
		if err != nil {
			result.Close()
			return nil, err
		}
		result.preferences = redisStore
		result.closers = append(result.closers, redisStore.Close)
		logger.Info("preferences stored in redis")
	} else {
		gormStore, err := preferences.NewGormStore(db)
		if err != nil {
			result.Close()
			return nil, err
		}
		result.preferences = gormStore
	}
	return result, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func (a *app) Close() {
	for index := len(a.closers) - 1; index >= 0; index-- {
		_ = a.closers[index]()
	}
}
