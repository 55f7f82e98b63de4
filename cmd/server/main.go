package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/f-sync/followcheck/internal/config"
	"github.com/f-sync/followcheck/internal/server"
	"github.com/f-sync/followcheck/internal/session"
	"github.com/f-sync/followcheck/internal/snapshotstore"
)

const (
	commandUse                  = "server"
	commandShortDescription     = "Serve Instagram follower insights over HTTP"
	shutdownTimeout             = 10 * time.Second
	errMessageLoggerCreate      = "create logger"
	errMessageConfigLoad        = "load configuration"
	errMessageStoreOpen         = "open snapshot store"
	errMessageSessionCreate     = "create session"
	errMessageListenAndServe    = "listen and serve"
	errMessageShutdown          = "shutdown"
	logMessageStoreOpened       = "snapshot store opened"
	logMessageStoreCloseFailure = "snapshot store close failure"
	logMessageStartingServer    = "starting HTTP server"
	logMessageShuttingDown      = "shutting down HTTP server"
	logMessageServerStopped     = "server stopped"
	logMessageListenError       = "server listen failure"
	logFieldAddress             = "address"
	logFieldDataDir             = "data_dir"
	logFieldInMemory            = "in_memory"
	logFieldUploadLimit         = "upload_limit"
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runServerCommand,
	}
	config.RegisterServerFlags(command.Flags())
	return command
}

func runServerCommand(command *cobra.Command, _ []string) error {
	source, err := config.NewViper(command.Flags())
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageConfigLoad, err)
	}
	configuration, err := config.Load(source)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageConfigLoad, err)
	}

	logger, err := newLogger(configuration.Debug)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := snapshotstore.OpenBadger(snapshotstore.BadgerConfig{
		Path:     configuration.DataDir,
		InMemory: configuration.InMemory,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageStoreOpen, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error(logMessageStoreCloseFailure, zap.Error(closeErr))
		}
	}()
	logger.Info(logMessageStoreOpened,
		zap.String(logFieldDataDir, configuration.DataDir),
		zap.Bool(logFieldInMemory, configuration.InMemory),
	)

	executionContext, stop := signal.NotifyContext(command.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionManager, err := session.NewManager(executionContext, session.Config{Store: store, Logger: logger})
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageSessionCreate, err)
	}

	router, err := server.NewRouter(server.RouterConfig{
		Session:        sessionManager,
		Logger:         logger,
		MaxUploadBytes: configuration.MaxUploadBytes,
	})
	if err != nil {
		return err
	}

	address := configuration.Address()
	logger.Info(logMessageStartingServer,
		zap.String(logFieldAddress, address),
		zap.String(logFieldUploadLimit, humanize.IBytes(uint64(configuration.MaxUploadBytes))),
	)

	httpServer := &http.Server{Addr: address, Handler: router}
	listenErrors := make(chan error, 1)
	go func() {
		listenErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-listenErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(logMessageListenError, zap.Error(err))
			return fmt.Errorf("%s: %w", errMessageListenAndServe, err)
		}
	case <-executionContext.Done():
		logger.Info(logMessageShuttingDown)
		shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownContext); err != nil {
			return fmt.Errorf("%s: %w", errMessageShutdown, err)
		}
	}

	logger.Info(logMessageServerStopped)
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
