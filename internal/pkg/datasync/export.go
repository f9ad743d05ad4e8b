package datasync

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/choosemypower/ziproute/app/models"
	"github.com/choosemypower/ziproute/app/repository"
)

var exportHeader = []string{
	"zip_code", "zip_plus4_pattern", "city_name", "city_slug", "county_name",
	"tdsp_territory", "tdsp_duns", "is_deregulated", "market_zone",
	"priority", "data_source",
}

// ExportMappingsCSV serializes the entire mapping table in the same CSV
// format the import job consumes, so a snapshot can be re-imported as-is.
func ExportMappingsCSV(mappings repository.ZipMappingRepository) ([]byte, error) {
	rows, err := mappings.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read zip mappings for export: %w", err)
	}
	return marshalMappingsCSV(rows)
}

func marshalMappingsCSV(rows []models.ZipMapping) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.ZipCode,
			row.ZipPlus4Pattern,
			row.CityName,
			row.CitySlug,
			row.CountyName,
			row.TdspTerritory,
			row.TdspDuns,
			strconv.FormatBool(row.IsDeregulated),
			row.MarketZone,
			strconv.FormatFloat(row.Priority, 'f', -1, 64),
			row.DataSource,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
