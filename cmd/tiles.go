package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tokyo-dap/riskmap/internal/tiles"
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Tile archive inspection",
}

var tilesInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the configured tile archive's metadata",
	RunE:  runTilesInfo,
}

func init() {
	tilesCmd.AddCommand(tilesInfoCmd)
	rootCmd.AddCommand(tilesCmd)
}

func runTilesInfo(cmd *cobra.Command, _ []string) error {
	archive, err := tiles.OpenArchive(cfg.Tiles.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	meta, err := archive.Metadata(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("archive: %s\n", cfg.Tiles.ArchivePath)
	fmt.Printf("zoom:    %d..%d\n", archive.MinZoom(), archive.MaxZoom())

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-12s %s\n", k, meta[k])
	}
	return nil
}
