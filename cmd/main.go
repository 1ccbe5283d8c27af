package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printwatch/internal/handlers"
	"printwatch/internal/logger"
	"printwatch/internal/printer"
	"printwatch/internal/repository"
	"printwatch/internal/repository/db"
	"printwatch/internal/server"
	"printwatch/internal/service"

	"github.com/spf13/viper"
)

// @title           printwatch API
// @version         1.0
// @description     REST and WebSocket gateway for a FlashForge Adventurer 3 printer.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// printer client
	client := newPrinterClient(log)

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(client, repos, serviceConfig(), log)
	apiHandler := handlers.NewHandler(services, log)

	// push every poll-cycle snapshot through the notifier
	client.RegisterObserver(services.Notifier.HandleState)

	// connect and poll in the background so startup does not block on an
	// unreachable printer
	go func() {
		if !client.Connect() {
			log.Warnw("initial printer connection failed; polling will retry", "address", client.Address())
		}
		client.StartPolling()
	}()

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, client, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "printwatch.db")
		dbPath = "printwatch.db"
	}
	return db.InitDB(dbPath)
}

// newPrinterClient builds the TCP client from configuration.
func newPrinterClient(log *logger.Logger) *printer.Client {
	address := viper.GetString("printer.address")
	if address == "" {
		log.Warnw("printer.address not set in config; using localhost")
		address = "127.0.0.1"
	}
	if port := viper.GetInt("printer.port"); port != 0 {
		address = fmt.Sprintf("%s:%d", address, port)
	}

	var opts []printer.Option
	if s := viper.GetInt("printer.poll_interval_s"); s > 0 {
		opts = append(opts, printer.WithPollInterval(time.Duration(s)*time.Second))
	}
	return printer.New(address, log, opts...)
}

// serviceConfig collects the service-level settings from configuration.
func serviceConfig() service.Config {
	return service.Config{
		SigningKey: viper.GetString("auth.signing_key"),
		TokenTTL:   viper.GetDuration("auth.token_ttl"),
		Notify: service.NotifierConfig{
			WebhookURL:       viper.GetString("notifications.webhook_url"),
			NotifyOnComplete: viper.GetBool("notifications.notify_on_complete"),
			NotifyOnError:    viper.GetBool("notifications.notify_on_error"),
		},
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, client *printer.Client, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop polling and drop the printer connection
	client.Disconnect()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
