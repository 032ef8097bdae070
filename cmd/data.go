package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/dataset"
	"github.com/tokyo-dap/riskmap/internal/importer"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Reference data import commands",
}

var importSheltersCmd = &cobra.Command{
	Use:   "import-shelters",
	Short: "Convert a shelter shapefile or Excel workbook to GeoJSON",
	RunE:  runImportShelters,
}

func init() {
	importSheltersCmd.Flags().String("shp", "", "input shapefile path")
	importSheltersCmd.Flags().String("xlsx", "", "input Excel workbook path")
	importSheltersCmd.Flags().String("sheet", "", "Excel sheet name (default first sheet)")
	importSheltersCmd.Flags().String("name-field", "NAME", "shapefile attribute holding the shelter name")
	importSheltersCmd.Flags().String("capacity-field", "CAPACITY", "shapefile attribute holding the capacity")
	importSheltersCmd.Flags().String("out", "data/mock/shelters.geojson", "output GeoJSON path")
	dataCmd.AddCommand(importSheltersCmd)
	rootCmd.AddCommand(dataCmd)
}

func runImportShelters(cmd *cobra.Command, _ []string) error {
	shpPath, _ := cmd.Flags().GetString("shp")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	out, _ := cmd.Flags().GetString("out")

	var shelters []dataset.Shelter
	var skipped int
	var err error

	switch {
	case shpPath != "" && xlsxPath != "":
		return eris.New("pass either --shp or --xlsx, not both")
	case shpPath != "":
		nameField, _ := cmd.Flags().GetString("name-field")
		capField, _ := cmd.Flags().GetString("capacity-field")
		shelters, skipped, err = importer.ReadShapefile(shpPath, importer.ShapefileOptions{
			NameField:     nameField,
			CapacityField: capField,
		})
	case xlsxPath != "":
		sheet, _ := cmd.Flags().GetString("sheet")
		shelters, skipped, err = importer.ReadXLSX(xlsxPath, importer.XLSXOptions{SheetName: sheet})
	default:
		return eris.New("pass --shp or --xlsx")
	}
	if err != nil {
		return err
	}

	if err := importer.WriteSheltersGeoJSON(out, shelters); err != nil {
		return err
	}

	zap.L().Info("shelter import complete",
		zap.Int("shelters", len(shelters)),
		zap.Int("skipped", skipped),
		zap.String("out", out),
	)
	return nil
}
