package domain

import (
	"sort"
	"strings"
)

// Point is a normalized map coordinate: percentages of the rendered map's
// width and height on an equirectangular projection.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// countryCoords maps ISO 3166-1 alpha-2 codes to normalized map positions.
// Derived from each country's approximate centroid: x = (lon+180)/360·100,
// y = (90-lat)/180·100. Read-only; shared by all concurrent animations.
var countryCoords = map[string]Point{
	"US": {X: 22.8, Y: 28.3},
	"CA": {X: 20.6, Y: 18.9},
	"MX": {X: 21.7, Y: 37.2},
	"BR": {X: 35.8, Y: 55.6},
	"AR": {X: 32.2, Y: 68.9},
	"CO": {X: 29.7, Y: 47.8},
	"GB": {X: 49.4, Y: 20.0},
	"IE": {X: 47.8, Y: 20.6},
	"FR": {X: 50.6, Y: 23.9},
	"ES": {X: 48.9, Y: 27.8},
	"PT": {X: 47.8, Y: 28.1},
	"DE": {X: 52.8, Y: 21.7},
	"NL": {X: 51.4, Y: 21.1},
	"BE": {X: 51.3, Y: 21.9},
	"CH": {X: 52.2, Y: 23.9},
	"IT": {X: 53.3, Y: 26.7},
	"SE": {X: 54.2, Y: 15.6},
	"NO": {X: 52.5, Y: 16.1},
	"FI": {X: 57.2, Y: 14.4},
	"DK": {X: 52.8, Y: 18.9},
	"PL": {X: 55.3, Y: 21.1},
	"CZ": {X: 54.2, Y: 22.2},
	"AT": {X: 53.9, Y: 23.6},
	"GR": {X: 56.1, Y: 28.3},
	"RO": {X: 56.9, Y: 24.4},
	"UA": {X: 58.6, Y: 22.8},
	"RU": {X: 75.0, Y: 16.7},
	"TR": {X: 59.7, Y: 28.3},
	"IL": {X: 59.7, Y: 32.8},
	"SA": {X: 62.5, Y: 36.7},
	"AE": {X: 65.0, Y: 36.7},
	"IR": {X: 64.7, Y: 32.2},
	"EG": {X: 58.3, Y: 35.6},
	"NG": {X: 52.2, Y: 44.7},
	"ZA": {X: 56.9, Y: 66.1},
	"IN": {X: 71.7, Y: 38.3},
	"PK": {X: 69.4, Y: 33.3},
	"CN": {X: 78.9, Y: 30.6},
	"KP": {X: 85.3, Y: 27.8},
	"KR": {X: 85.4, Y: 30.0},
	"JP": {X: 88.3, Y: 30.0},
	"TW": {X: 83.6, Y: 36.9},
	"VN": {X: 79.4, Y: 41.1},
	"TH": {X: 78.1, Y: 41.7},
	"MY": {X: 78.3, Y: 47.8},
	"SG": {X: 78.9, Y: 49.3},
	"ID": {X: 81.4, Y: 50.6},
	"PH": {X: 83.9, Y: 42.8},
	"AU": {X: 87.2, Y: 63.9},
	"NZ": {X: 98.3, Y: 72.8},
}

func normalizeCountryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ResolveCountry looks up a country code's normalized map position.
func ResolveCountry(code string) (Point, bool) {
	p, ok := countryCoords[normalizeCountryCode(code)]
	return p, ok
}

// CountryCodes returns every mapped country code in lexical order.
func CountryCodes() []string {
	codes := make([]string, 0, len(countryCoords))
	for code := range countryCoords {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Endpoints resolves both ends of an attack event. ok is false when either
// code is unmapped, in which case the event is dropped with no visual output.
func (e AttackEvent) Endpoints() (from, to Point, ok bool) {
	from, okFrom := ResolveCountry(e.From)
	to, okTo := ResolveCountry(e.To)
	return from, to, okFrom && okTo
}
