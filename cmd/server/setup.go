package main

import (
	"fmt"
	"net/http"

	"secret.share/config"
	"secret.share/internal/crypto"
	"secret.share/internal/logging"
	"secret.share/internal/notify"
	"secret.share/internal/secrets"
	"secret.share/internal/store"

	"github.com/redis/go-redis/v9"
)

// loadConfig reads the config file and lets command-line flags raise the
// log level.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	cfg.Log.Verbose = cfg.Log.Verbose || verbose
	cfg.Log.Debug = cfg.Log.Debug || debug
	return cfg, logging.New(cfg.Log.Verbose, cfg.Log.Debug), nil
}

func initStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "redis":
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return st, nil
	case "sqlite":
		st, err := store.NewSQLiteStore(cfg.Store.SQLite.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlite open failed: %w", err)
		}
		return st, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

func newService(st store.Store, codec *crypto.Codec, cfg *config.Config) *secrets.Service {
	argon := crypto.DefaultArgon2
	if cfg.Crypto.Argon2Memory > 0 {
		argon.Memory = cfg.Crypto.Argon2Memory
	}
	if cfg.Crypto.Argon2Time > 0 {
		argon.Iterations = cfg.Crypto.Argon2Time
	}
	if cfg.Crypto.Argon2Threads > 0 {
		argon.Parallelism = cfg.Crypto.Argon2Threads
	}
	return secrets.NewService(st, codec, argon, secrets.Limits{
		DefaultMinutes: cfg.Secrets.DefaultMinutes,
		MaxMinutes:     cfg.Secrets.MaxMinutes,
		DefaultViews:   cfg.Secrets.DefaultViews,
		MaxViews:       cfg.Secrets.MaxViews,
		MaxContent:     cfg.Secrets.MaxContent,
	})
}

// newSender returns nil when notifications are switched off.
func newSender(cfg *config.Config, log *logging.Logger) notify.Sender {
	client := &http.Client{Timeout: cfg.Notify.Timeout.Duration}
	switch cfg.Notify.Driver {
	case "log":
		return notify.LogSender{Log: log}
	case "webhook":
		return notify.WebhookSender{URL: cfg.Notify.WebhookURL, Client: client}
	case "resend":
		return notify.ResendSender{
			APIKey:   cfg.Notify.ResendAPIKey,
			From:     cfg.Notify.From,
			Endpoint: cfg.Notify.ResendEndpoint,
			Client:   client,
		}
	default:
		return nil
	}
}
