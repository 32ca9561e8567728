package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"secret.share/internal/api"
	"secret.share/internal/crypto"
	"secret.share/internal/gate"
	"secret.share/internal/notify"
	"secret.share/internal/sweep"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		codec := crypto.NewCodec(cfg.Crypto.KDFIterations)
		svc := newService(st, codec, cfg)

		opts := []gate.Option{
			gate.WithLogger(log),
			gate.WithUpdateAttempts(cfg.Secrets.UpdateAttempts),
		}
		if sender := newSender(cfg, log); sender != nil {
			dispatcher := notify.NewDispatcher(sender, log, notify.Options{
				QueueSize: cfg.Notify.QueueSize,
				Workers:   cfg.Notify.Workers,
				Timeout:   cfg.Notify.Timeout.Duration,
			})
			defer dispatcher.Close()
			opts = append(opts, gate.WithNotifier(dispatcher))
		}
		g := gate.New(st, codec, opts...)

		sweeper := sweep.New(st, log, cfg.Secrets.PurgeAfter.Duration)
		sweepDone := make(chan struct{})
		go func() {
			defer close(sweepDone)
			sweeper.Run(ctx, cfg.Secrets.SweepInterval.Duration)
		}()
		defer func() {
			stop()
			<-sweepDone
		}()

		server := &http.Server{
			Addr:         cfg.Addr(),
			Handler:      api.SetupRouter(svc, g, cfg, log),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 35 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		cmd.Printf("Server starting on %s\n", cfg.Addr())
		cmd.Printf("Base URL: %s\n", cfg.Server.BaseURL)
		cmd.Printf("Store: %s\n", cfg.Store.Type)

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		log.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}
