package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tokyo-dap/riskmap/internal/dataset"
)

// ShapefileOptions names the attribute fields to read. Field names are
// matched case-insensitively.
type ShapefileOptions struct {
	IDField       string // default "ID"
	NameField     string // default "NAME"
	CapacityField string // default "CAPACITY"
}

// ReadShapefile reads point shelters from a shapefile. Non-point shapes are
// skipped and counted.
func ReadShapefile(path string, opts ShapefileOptions) ([]dataset.Shelter, int, error) {
	if opts.IDField == "" {
		opts.IDField = "ID"
	}
	if opts.NameField == "" {
		opts.NameField = "NAME"
	}
	if opts.CapacityField == "" {
		opts.CapacityField = "CAPACITY"
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "importer: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(idx int) string {
		if idx < 0 {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}
	idIdx := lookupField(fieldIdx, opts.IDField)
	nameIdx := lookupField(fieldIdx, opts.NameField)
	capIdx := lookupField(fieldIdx, opts.CapacityField)
	if nameIdx < 0 {
		return nil, 0, eris.Errorf("importer: shapefile field %q not found", opts.NameField)
	}

	var shelters []dataset.Shelter
	var skipped int
	row := 0
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			zap.L().Warn("importer: skipping non-point shape", zap.Int("row", row))
			row++
			continue
		}

		capacity, _ := strconv.Atoi(attr(capIdx))
		id := attr(idIdx)
		if id == "" {
			id = fmt.Sprintf("shelter_%03d", len(shelters)+1)
		}

		shelters = append(shelters, dataset.Shelter{
			ID:       id,
			Name:     NormalizeName(attr(nameIdx)),
			Lat:      pt.Y,
			Lon:      pt.X,
			Capacity: capacity,
		})
		row++
	}

	if err := reader.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "importer: read shapefile")
	}
	return shelters, skipped, nil
}

func lookupField(fieldIdx map[string]int, name string) int {
	if idx, ok := fieldIdx[strings.ToLower(name)]; ok {
		return idx
	}
	return -1
}
