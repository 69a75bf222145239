package geocoding

import (
	"strings"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// Name levels from most specific to broadest
const (
	levelPointOfInterest = iota
	levelLocality
	levelAdministrativeArea
	levelCountry
)

// Label derives a display title and subtitle from place components.
// The title is the most specific available name; the subtitle is the broader
// region (locality and/or administrative area), falling back to the country.
func Label(p models.PlaceComponents) (models.GeocodeResult, error) {
	levels := [...]string{
		levelPointOfInterest:    strings.TrimSpace(p.PointOfInterest),
		levelLocality:           strings.TrimSpace(p.Locality),
		levelAdministrativeArea: strings.TrimSpace(p.AdministrativeArea),
		levelCountry:            strings.TrimSpace(p.Country),
	}

	titleLevel := -1
	for i, name := range levels {
		if name != "" {
			titleLevel = i
			break
		}
	}
	if titleLevel < 0 {
		return models.GeocodeResult{}, ErrNoResult
	}
	title := levels[titleLevel]

	var region []string
	for i := titleLevel + 1; i <= levelAdministrativeArea; i++ {
		if levels[i] != "" && levels[i] != title {
			region = append(region, levels[i])
		}
	}

	subtitle := strings.Join(region, ", ")
	if subtitle == "" && titleLevel < levelCountry && levels[levelCountry] != title {
		subtitle = levels[levelCountry]
	}

	return models.GeocodeResult{Title: title, Subtitle: subtitle}, nil
}
