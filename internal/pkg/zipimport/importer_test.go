package zipimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/choosemypower/ziproute/app/models"
)

// fakeMappingWriter records upserts keyed like the unique DB constraint.
type fakeMappingWriter struct {
	rows map[string]models.ZipMapping
}

func newFakeMappingWriter() *fakeMappingWriter {
	return &fakeMappingWriter{rows: make(map[string]models.ZipMapping)}
}

func (f *fakeMappingWriter) Upsert(m *models.ZipMapping) error {
	f.rows[m.ZipCode+"/"+m.CitySlug] = *m
	return nil
}

func (f *fakeMappingWriter) GetByZip(zip string) ([]models.ZipMapping, error) { return nil, nil }
func (f *fakeMappingWriter) GetByZipAndCitySlug(zip, citySlug string) (*models.ZipMapping, error) {
	return nil, nil
}
func (f *fakeMappingWriter) GetByCitySlug(citySlug string) ([]models.ZipMapping, error) {
	return nil, nil
}
func (f *fakeMappingWriter) List(o, l int) ([]models.ZipMapping, error) { return nil, nil }
func (f *fakeMappingWriter) GetAll() ([]models.ZipMapping, error)       { return nil, nil }
func (f *fakeMappingWriter) Count() (int64, error)                      { return int64(len(f.rows)), nil }

const sampleCSV = `zip_code,zip_plus4_pattern,city_name,city_slug,county_name,tdsp_territory,tdsp_duns,is_deregulated,market_zone,priority,data_source
75201,,Dallas,dallas-tx,Dallas,Oncor,1039940674000,true,North,1.0,PUCT
77001,,Houston,houston-tx,Harris,CenterPoint,957877905,true,Coast,1.0,PUCT
79821,,Anthony,anthony-tx,El Paso,El Paso Electric,007929441,false,West,1.0,TDU
`

func TestImportCSV(t *testing.T) {
	store := newFakeMappingWriter()
	importer := NewImporter(store)

	result, err := importer.ImportCSV(strings.NewReader(sampleCSV))
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Skipped)

	dallas := store.rows["75201/dallas-tx"]
	assert.Equal(t, "1039940674000", dallas.TdspDuns)
	assert.Equal(t, models.MarketZoneNorth, dallas.MarketZone)
	assert.Equal(t, models.DataSourcePUCT, dallas.DataSource)
	assert.True(t, dallas.IsDeregulated)
	assert.NotNil(t, dallas.LastValidated)

	anthony := store.rows["79821/anthony-tx"]
	assert.False(t, anthony.IsDeregulated)
}

func TestImportCSVSkipsInvalidRows(t *testing.T) {
	csv := `zip_code,city_name,city_slug,tdsp_duns,market_zone
75201,Dallas,dallas-tx,1039940674000,North
ABCDE,Nowhere,nowhere-tx,123,North
76101,Fort Worth,fort-worth-tx,1039940674000,Panhandle
`
	store := newFakeMappingWriter()
	result, err := NewImporter(store).ImportCSV(strings.NewReader(csv))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.Errors, 2)
	_, ok := store.rows["75201/dallas-tx"]
	assert.True(t, ok)
}

func TestImportCSVMissingColumn(t *testing.T) {
	csv := `zip_code,city_name
75201,Dallas
`
	_, err := NewImporter(newFakeMappingWriter()).ImportCSV(strings.NewReader(csv))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "city_slug")
}

func TestImportCSVIsIdempotent(t *testing.T) {
	store := newFakeMappingWriter()
	importer := NewImporter(store)

	_, err := importer.ImportCSV(strings.NewReader(sampleCSV))
	assert.NoError(t, err)
	result, err := importer.ImportCSV(strings.NewReader(sampleCSV))
	assert.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Len(t, store.rows, 3, "re-import must upsert, not duplicate")
}
