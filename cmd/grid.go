package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/dataset"
	"github.com/tokyo-dap/riskmap/internal/gridgen"
	"github.com/tokyo-dap/riskmap/internal/risk"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Risk grid build commands",
}

var gridComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Join data layers onto the grid and score every cell",
	Long:  "Reads the raw grid, building, hazard, and shelter layers, derives per-cell attributes, scores each cell with the configured weights, and writes the scored grid artifact the server loads.",
	RunE:  runGridCompute,
}

func init() {
	gridComputeCmd.Flags().String("out", "data/mock/grid_scored.geojson", "output scored grid path")
	gridComputeCmd.Flags().String("manifest", "data/mock/grid_manifest.json", "output build manifest path")
	gridComputeCmd.Flags().Int("workers", 0, "concurrent cell workers (default NumCPU)")
	gridCmd.AddCommand(gridComputeCmd)
	rootCmd.AddCommand(gridCmd)
}

func runGridCompute(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")
	manifestPath, _ := cmd.Flags().GetString("manifest")
	workers, _ := cmd.Flags().GetInt("workers")

	weights, err := risk.LoadWeights(cfg.Risk.WeightsFile)
	if err != nil {
		return err
	}

	cells, err := dataset.LoadGrid(cfg.Data.GridFile)
	if err != nil {
		return err
	}
	buildings, err := dataset.LoadBuildings(cfg.Data.BuildingsFile)
	if err != nil {
		return err
	}
	hazards, err := dataset.LoadHazards(cfg.Data.HazardFile)
	if err != nil {
		return err
	}
	shelters, err := dataset.LoadShelters(cfg.Data.SheltersFile)
	if err != nil {
		return err
	}

	engine := risk.NewEngine(nil, weights, cfg.Risk)
	scored, err := gridgen.Compute(cmd.Context(), cells, buildings, hazards, shelters, engine, workers)
	if err != nil {
		return err
	}

	if err := gridgen.WriteScoredGrid(out, scored); err != nil {
		return err
	}
	manifest := gridgen.NewManifest(weights.Version, len(scored))
	if err := gridgen.WriteManifest(manifestPath, manifest); err != nil {
		return err
	}

	zap.L().Info("grid compute complete",
		zap.String("build_id", manifest.BuildID),
		zap.Int("cells", len(scored)),
		zap.String("out", out),
	)
	return nil
}
