package routing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/choosemypower/ziproute/app/models"
	"github.com/choosemypower/ziproute/app/repository"
	"github.com/choosemypower/ziproute/internal/pkg/apperrors"
)

var (
	zipPattern   = regexp.MustCompile(`^[0-9]{5}$`)
	plus4Pattern = regexp.MustCompile(`[0-9]{5}-([0-9]{4})`)
)

// Resolution is the routing answer for a ZIP code: which city page to route
// to and which TDSP territory prices apply. When IsDeregulated is false the
// caller must show a regulated-market notice instead of plan listings.
type Resolution struct {
	ZipCode       string `json:"zip_code"`
	CityName      string `json:"city_name"`
	CitySlug      string `json:"city_slug"`
	CountyName    string `json:"county_name"`
	TdspTerritory string `json:"tdsp_territory"`
	TdspDuns      string `json:"tdsp_duns"`
	MarketZone    string `json:"market_zone"`
	IsDeregulated bool   `json:"is_deregulated"`
}

// Resolver maps ZIP codes to utility territories. It is a pure function
// over the mapping store: no writes, no event logging. Callers record the
// NavigationEvent for each attempt.
type Resolver struct {
	mappings repository.ZipMappingRepository
}

// NewResolver creates a resolver over the given mapping store.
func NewResolver(mappings repository.ZipMappingRepository) *Resolver {
	return &Resolver{mappings: mappings}
}

// Resolve maps a 5-digit ZIP (and optional street address) to a city slug
// and TDSP. Malformed input fails before any datastore read. A ZIP with no
// mapping row fails with a CoverageGapError rather than guessing a
// territory: the territory decides which plans are legally deliverable, so
// a wrong default is worse than an error.
func (r *Resolver) Resolve(zip, address string) (*Resolution, error) {
	zip = strings.TrimSpace(zip)
	if !zipPattern.MatchString(zip) {
		return nil, &apperrors.InvalidInputError{Field: "zip", Reason: "must be exactly 5 digits"}
	}

	rows, err := r.mappings.GetByZip(zip)
	if err != nil {
		return nil, &apperrors.DatastoreError{Op: "zip_mappings.get_by_zip", Err: err}
	}
	if len(rows) == 0 {
		return nil, &apperrors.CoverageGapError{ZipCode: zip}
	}

	selected := selectMapping(rows, plus4FromAddress(address))

	return &Resolution{
		ZipCode:       selected.ZipCode,
		CityName:      selected.CityName,
		CitySlug:      selected.CitySlug,
		CountyName:    selected.CountyName,
		TdspTerritory: selected.TdspTerritory,
		TdspDuns:      selected.TdspDuns,
		MarketZone:    selected.MarketZone,
		IsDeregulated: selected.IsDeregulated,
	}, nil
}

// selectMapping picks one row from a boundary ZIP's candidates. A row whose
// ZIP+4 pattern matches the address extension wins outright; otherwise the
// highest priority wins, with the lexicographically smallest city slug as
// the final tie-break so the result never depends on insertion order.
func selectMapping(rows []models.ZipMapping, plus4 string) models.ZipMapping {
	if plus4 != "" {
		for _, row := range sortedByPrecedence(rows) {
			if row.ZipPlus4Pattern != "" && matchesPlus4(row.ZipPlus4Pattern, plus4) {
				return row
			}
		}
	}

	sorted := sortedByPrecedence(rows)
	return sorted[0]
}

func sortedByPrecedence(rows []models.ZipMapping) []models.ZipMapping {
	sorted := make([]models.ZipMapping, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].CitySlug < sorted[j].CitySlug
	})
	return sorted
}

// matchesPlus4 matches a stored ZIP+4 pattern against an address extension.
// A trailing '*' makes the pattern a prefix match ("12*" covers 1200-1299).
func matchesPlus4(pattern, plus4 string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(plus4, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == plus4
}

// plus4FromAddress extracts the +4 extension from a full address, e.g.
// "400 Main St, Dallas, TX 75201-1234" yields "1234".
func plus4FromAddress(address string) string {
	if address == "" {
		return ""
	}
	match := plus4Pattern.FindStringSubmatch(address)
	if match == nil {
		return ""
	}
	return match[1]
}
