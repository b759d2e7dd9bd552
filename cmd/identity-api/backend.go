package main

import (
	"context"
	"fmt"

	"github.com/couchbaselabs/identitystore/internal/bucket"
	"github.com/couchbaselabs/identitystore/internal/config"
	"github.com/couchbaselabs/identitystore/internal/database"
	"github.com/couchbaselabs/identitystore/internal/redisstore"
	"go.uber.org/zap"
)

// openBucket connects the configured document store. The returned func releases it.
func openBucket(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (bucket.Bucket, func(), error) {
	switch appConfig.StoreBackend {
	case config.BackendSQLite:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		documents, err := database.NewDocumentBucket(database.DocumentBucketConfig{
			Database: db,
			Name:     appConfig.BucketName,
			Logger:   logger,
		})
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return documents, func() { _ = sqlDB.Close() }, nil
	case config.BackendRedis:
		client, err := redisstore.Connect(ctx, redisstore.ClientConfig{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := redisstore.New(redisstore.Config{
			Client:    client,
			Name:      appConfig.BucketName,
			KeyPrefix: appConfig.RedisKeyPrefix,
			Logger:    logger,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", appConfig.StoreBackend)
	}
}
