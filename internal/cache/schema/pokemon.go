package schema

import (
	"fmt"
	"strings"
)

// typesSeparator joins Types into the single column stored by the cache.
const typesSeparator = ","

// Pokemon is a cached species record.
type Pokemon struct {
	ID             int      `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	SpriteURL      string   `json:"sprite_url" yaml:"sprite_url"`
	ShinySpriteURL string   `json:"shiny_sprite_url" yaml:"shiny_sprite_url"`
	Types          []string `json:"types" yaml:"types"` // source order preserved
	Height         int      `json:"height" yaml:"height"` // decimetres
	Weight         int      `json:"weight" yaml:"weight"` // hectograms
	Generation     int      `json:"generation" yaml:"generation"`
}

// Validate checks that the record can be written to the cache.
func (p *Pokemon) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: id must be positive (got %d)", ErrInvalidInput, p.ID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.Height < 0 || p.Weight < 0 {
		return fmt.Errorf("%w: height and weight must not be negative", ErrInvalidInput)
	}
	if p.Generation < 0 {
		return fmt.Errorf("%w: generation must not be negative (got %d)", ErrInvalidInput, p.Generation)
	}
	return nil
}

// TypesField returns Types joined into the single delimited column.
func (p *Pokemon) TypesField() string {
	return strings.Join(p.Types, typesSeparator)
}

// ParseTypesField splits a stored types column back into its ordered names.
func ParseTypesField(field string) []string {
	if field == "" {
		return []string{}
	}
	return strings.Split(field, typesSeparator)
}

// HeightMeters converts the source height (decimetres) to metres.
func (p *Pokemon) HeightMeters() float64 {
	return float64(p.Height) / 10
}

// WeightKilograms converts the source weight (hectograms) to kilograms.
func (p *Pokemon) WeightKilograms() float64 {
	return float64(p.Weight) / 10
}

// Filter selects which cached records a list query returns.
// The zero value selects every record.
type Filter struct {
	// Generation restricts results to one generation when positive.
	Generation int
}

// AllPokemon returns the filter matching every cached record.
func AllPokemon() Filter { return Filter{} }

// ByGeneration returns the filter matching records of generation g.
func ByGeneration(g int) Filter { return Filter{Generation: g} }
