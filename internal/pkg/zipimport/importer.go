package zipimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/choosemypower/ziproute/app/models"
	"github.com/choosemypower/ziproute/app/repository"
)

// Expected CSV header columns, in any order.
var requiredColumns = []string{"zip_code", "city_name", "city_slug", "tdsp_duns", "market_zone"}

// Result summarizes one import run. Invalid rows are skipped and reported,
// never silently dropped, so data-quality problems surface in the job log.
type Result struct {
	Imported int
	Skipped  int
	Errors   []string
}

// Importer seeds and refreshes the ZIP mapping table from the offline
// territory dataset. Rows upsert on (zip_code, city_slug), so re-running an
// import is safe.
type Importer struct {
	mappings repository.ZipMappingRepository
}

// NewImporter creates an importer writing to the given mapping store.
func NewImporter(mappings repository.ZipMappingRepository) *Importer {
	return &Importer{mappings: mappings}
}

// ImportCSV reads mapping rows from a CSV document and upserts them.
func (i *Importer) ImportCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	result := &Result{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		mapping, err := rowToMapping(record, columns)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if err := i.mappings.Upsert(mapping); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Imported++
	}

	return result, nil
}

func rowToMapping(record []string, columns map[string]int) (*models.ZipMapping, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	now := time.Now()
	mapping := &models.ZipMapping{
		ZipCode:         field("zip_code"),
		ZipPlus4Pattern: field("zip_plus4_pattern"),
		CityName:        field("city_name"),
		CitySlug:        field("city_slug"),
		CountyName:      field("county_name"),
		TdspTerritory:   field("tdsp_territory"),
		TdspDuns:        field("tdsp_duns"),
		IsDeregulated:   true,
		MarketZone:      field("market_zone"),
		Priority:        1.0,
		LastValidated:   &now,
		DataSource:      models.DataSourceManual,
	}

	if v := field("is_deregulated"); v != "" {
		deregulated, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid is_deregulated %q", v)
		}
		mapping.IsDeregulated = deregulated
	}
	if v := field("priority"); v != "" {
		priority, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid priority %q", v)
		}
		mapping.Priority = priority
	}
	if v := field("data_source"); v != "" {
		mapping.DataSource = strings.ToUpper(v)
	}

	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	return mapping, nil
}
