package models

// GeocodeResult is a resolved label for a coordinate
type GeocodeResult struct {
	Title    string `json:"title" db:"title"`
	Subtitle string `json:"subtitle" db:"subtitle"`
	Fallback bool   `json:"fallback"` // True when resolution failed and the Unknown Place label was used
}

// UnknownPlace returns the fallback result used when geocoding fails
func UnknownPlace() GeocodeResult {
	return GeocodeResult{Title: UnknownPlaceTitle, Fallback: true}
}

// PlaceComponents holds the raw name parts returned by a reverse geocoder,
// ordered from most specific to broadest
type PlaceComponents struct {
	PointOfInterest    string `json:"pointOfInterest,omitempty"`
	Locality           string `json:"locality,omitempty"`           // City, town or village
	AdministrativeArea string `json:"administrativeArea,omitempty"` // State or province
	Country            string `json:"country,omitempty"`
}

// IsEmpty reports whether no name part is set
func (p PlaceComponents) IsEmpty() bool {
	return p.PointOfInterest == "" && p.Locality == "" && p.AdministrativeArea == "" && p.Country == ""
}
