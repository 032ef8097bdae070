package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/config"
	"github.com/tokyo-dap/riskmap/internal/dataset"
	"github.com/tokyo-dap/riskmap/internal/db"
	"github.com/tokyo-dap/riskmap/internal/risk"
	"github.com/tokyo-dap/riskmap/internal/server"
	"github.com/tokyo-dap/riskmap/internal/shelter"
	"github.com/tokyo-dap/riskmap/internal/tiles"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the risk map API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		weights, err := risk.LoadWeights(cfg.Risk.WeightsFile)
		if err != nil {
			return err
		}

		engine := risk.NewEngine(store, weights, cfg.Risk)
		locator := shelter.NewLocator(store, cfg.Shelter)

		tileHandler, closeTiles, err := openTiles()
		if err != nil {
			return err
		}
		defer closeTiles()

		srv := server.New(cfg, engine, locator, tileHandler, store.Mode())
		return srv.ListenAndServe(ctx)
	},
}

// openStore builds the spatial backend selected by cfg.Mode. Failing to load
// the reference data is fatal; the process must not serve without it.
func openStore(ctx context.Context) (dataset.Store, error) {
	if cfg.Mode == config.ModePostGIS {
		pool, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		zap.L().Info("dataset: using postgis backend")
		return dataset.NewPostgresStore(pool), nil
	}
	return dataset.OpenLocal(cfg.Data)
}

// openTiles opens the MBTiles archive when one is configured and present.
// A missing archive only disables the tile feature.
func openTiles() (*tiles.Handler, func(), error) {
	cache := tiles.NewCache(cfg.Tiles.CacheSize, time.Duration(cfg.Tiles.CacheTTLMins)*time.Minute)

	if _, err := os.Stat(cfg.Tiles.ArchivePath); err != nil {
		zap.L().Warn("tiles: archive not found, serving empty tiles",
			zap.String("path", cfg.Tiles.ArchivePath),
		)
		return tiles.NewHandler(nil, cache), func() {}, nil
	}

	archive, err := tiles.OpenArchive(cfg.Tiles.ArchivePath)
	if err != nil {
		return nil, nil, err
	}
	return tiles.NewHandler(archive, cache), func() { _ = archive.Close() }, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
