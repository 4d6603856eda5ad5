package schema

import (
	"maps"
	"slices"
)

// NationalPokedex is the pokedex used when a version has no regional dex.
const NationalPokedex = "national"

// generationBounds holds the last species id of generations 1 through 8.
// Ids past the final bound belong to generation 9.
var generationBounds = [...]int{151, 251, 386, 493, 649, 721, 809, 905}

// LatestGeneration is the open-ended final generation bucket.
const LatestGeneration = len(generationBounds) + 1

// GenerationForID derives a species generation from its numeric id.
func GenerationForID(id int) int {
	for i, last := range generationBounds {
		if id <= last {
			return i + 1
		}
	}
	return LatestGeneration
}

var versionPokedex = map[string]string{
	"red":               "kanto",
	"blue":              "kanto",
	"yellow":            "kanto",
	"gold":              "original-johto",
	"silver":            "original-johto",
	"crystal":           "original-johto",
	"ruby":              "hoenn",
	"sapphire":          "hoenn",
	"emerald":           "hoenn",
	"firered":           "kanto",
	"leafgreen":         "kanto",
	"diamond":           "original-sinnoh",
	"pearl":             "original-sinnoh",
	"platinum":          "original-sinnoh",
	"heartgold":         "updated-johto",
	"soulsilver":        "updated-johto",
	"black":             "original-unova",
	"white":             "original-unova",
	"black-2":           "original-unova",
	"white-2":           "original-unova",
	"x":                 "kalos-central",
	"y":                 "kalos-central",
	"omega-ruby":        "updated-hoenn",
	"alpha-sapphire":    "updated-hoenn",
	"sun":               "original-alola",
	"moon":              "original-alola",
	"ultra-sun":         "original-alola",
	"ultra-moon":        "original-alola",
	"lets-go-pikachu":   "letsgo-kanto",
	"lets-go-eevee":     "letsgo-kanto",
	"sword":             "galar",
	"shield":            "galar",
	"brilliant-diamond": "original-sinnoh",
	"shining-pearl":     "original-sinnoh",
	"legends-arceus":    "hisui",
	"scarlet":           "paldea",
	"violet":            "paldea",
}

// PokedexForVersion maps a game version name to the pokedex listing its species.
func PokedexForVersion(version string) string {
	if dex, ok := versionPokedex[version]; ok {
		return dex
	}
	return NationalPokedex
}

// KnownVersion reports whether version has a regional pokedex mapping.
func KnownVersion(version string) bool {
	_, ok := versionPokedex[version]
	return ok
}

// KnownVersions returns the versions with a regional pokedex, sorted.
func KnownVersions() []string {
	return slices.Sorted(maps.Keys(versionPokedex))
}
