package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/pivotql/internal/api"
	"github.com/rpattn/pivotql/internal/config"
	"github.com/rpattn/pivotql/internal/db"
	"github.com/rpattn/pivotql/internal/ingestion"
	"github.com/rpattn/pivotql/internal/middleware"
	"github.com/rpattn/pivotql/internal/repository"

	"github.com/rs/cors"
)

// Run boots the API server: config, database, migrations, routes, and a
// graceful shutdown on SIGINT/SIGTERM. It blocks until the server exits.
func Run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dbCfg, srvCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn, err := db.NewConnection(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.RunMigrations(dbCfg, srvCfg.MigrationsPath); err != nil {
		return err
	}

	datasetRepo := repository.NewDatasetRepository(conn.Pool)
	recordRepo := repository.NewRecordRepository(conn.Pool)
	attributeRepo := repository.NewAttributeRepository(conn.Pool)

	ingestService := ingestion.NewService(recordRepo, attributeRepo)

	pivotHandler := api.NewPivotHandler(conn.Pool, datasetRepo)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   srvCfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	withLoader := middleware.DataLoaderMiddleware(datasetRepo)
	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(middleware.LoggingMiddleware(withLoader(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/pivot", wrap(pivotHandler))
	mux.Handle("/api/pivot/export", wrap(http.HandlerFunc(pivotHandler.Export)))
	mux.Handle("/api/datasets", wrap(api.NewDatasetsHandler(datasetRepo, recordRepo)))
	mux.Handle("/api/ingest", wrap(ingestion.NewHTTPHandler(ingestService)))

	server := &http.Server{
		Addr:         srvCfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting pivot server on %s", srvCfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Println("Server exited")
	return nil
}
