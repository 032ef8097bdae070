package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/dataset"
)

// XLSXOptions selects the worksheet to import.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// Header synonyms accepted for each column, Japanese included.
var (
	idHeaders       = []string{"id", "番号"}
	nameHeaders     = []string{"name", "名称", "施設名"}
	latHeaders      = []string{"lat", "latitude", "緯度"}
	lonHeaders      = []string{"lon", "lng", "longitude", "経度"}
	capacityHeaders = []string{"capacity", "収容人数"}
)

// ReadXLSX reads shelters from an Excel workbook. The first row must be a
// header naming at least the name, lat, and lon columns. Rows with
// unparseable coordinates are skipped and counted.
func ReadXLSX(path string, opts XLSXOptions) ([]dataset.Shelter, int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "importer: open xlsx %s", path)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, 0, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	return sheltersFromRows(rows)
}

// sheltersFromRows converts header-plus-data rows into shelters.
func sheltersFromRows(rows [][]string) ([]dataset.Shelter, int, error) {
	if len(rows) == 0 {
		return nil, 0, eris.New("importer: xlsx sheet is empty")
	}

	header := rows[0]
	nameIdx := headerIndex(header, nameHeaders)
	latIdx := headerIndex(header, latHeaders)
	lonIdx := headerIndex(header, lonHeaders)
	if nameIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, 0, eris.Errorf("importer: xlsx header missing name/lat/lon columns: %v", header)
	}
	idIdx := headerIndex(header, idHeaders)
	capIdx := headerIndex(header, capacityHeaders)

	var shelters []dataset.Shelter
	var skipped int
	for i, row := range rows[1:] {
		lat, latErr := strconv.ParseFloat(cellAt(row, latIdx), 64)
		lon, lonErr := strconv.ParseFloat(cellAt(row, lonIdx), 64)
		if latErr != nil || lonErr != nil {
			skipped++
			zap.L().Warn("importer: skipping row with bad coordinates", zap.Int("row", i+2))
			continue
		}

		capacity, _ := strconv.Atoi(cellAt(row, capIdx))
		id := cellAt(row, idIdx)
		if id == "" {
			id = fmt.Sprintf("shelter_%03d", len(shelters)+1)
		}

		shelters = append(shelters, dataset.Shelter{
			ID:       id,
			Name:     NormalizeName(cellAt(row, nameIdx)),
			Lat:      lat,
			Lon:      lon,
			Capacity: capacity,
		})
	}

	return shelters, skipped, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("importer: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("importer: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

// headerIndex finds the first header cell matching any synonym, after
// normalization, ignoring case.
func headerIndex(header []string, candidates []string) int {
	for i, h := range header {
		norm := strings.ToLower(NormalizeName(h))
		for _, c := range candidates {
			if norm == c {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
