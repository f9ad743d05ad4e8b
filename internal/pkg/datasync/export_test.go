package datasync

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/choosemypower/ziproute/app/models"
)

func TestMarshalMappingsCSV(t *testing.T) {
	rows := []models.ZipMapping{
		{
			ZipCode:       "75201",
			CityName:      "Dallas",
			CitySlug:      "dallas-tx",
			CountyName:    "Dallas",
			TdspTerritory: "Oncor",
			TdspDuns:      "1039940674000",
			IsDeregulated: true,
			MarketZone:    models.MarketZoneNorth,
			Priority:      1,
			DataSource:    models.DataSourcePUCT,
		},
	}

	data, err := marshalMappingsCSV(rows)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, strings.Join(exportHeader, ","), lines[0])
	assert.Equal(t, "75201,,Dallas,dallas-tx,Dallas,Oncor,1039940674000,true,North,1,PUCT", lines[1])
}

func TestMarshalMappingsCSVEmpty(t *testing.T) {
	data, err := marshalMappingsCSV(nil)
	assert.NoError(t, err)
	assert.Equal(t, strings.Join(exportHeader, ",")+"\n", string(data))
}

func TestSnapshotObjectKey(t *testing.T) {
	cfg := &Config{}
	at := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "zip-mappings/2026/03/zip_mappings_20260315-103000.csv", cfg.SnapshotObjectKey(at))
}
