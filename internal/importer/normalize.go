// Package importer converts shelter reference data from the formats Tokyo
// open-data portals publish (shapefile, Excel) into the GeoJSON the service
// loads.
package importer

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeName canonicalizes a shelter name: full-width compatibility forms
// are folded to their narrow equivalents and runs of whitespace collapse to
// a single space. Source spreadsheets mix full- and half-width freely.
func NormalizeName(name string) string {
	folded := width.Fold.String(name)
	return strings.Join(strings.Fields(folded), " ")
}
