package sync

import (
	"github.com/devmasterteam/pokecache/internal/cache/schema"
	"github.com/devmasterteam/pokecache/internal/pokeapi"
)

// toEntity maps remote details to a cache record. A positive generation is
// stamped as-is; otherwise it is derived from the id.
func toEntity(details *pokeapi.Pokemon, generation int) *schema.Pokemon {
	if generation <= 0 {
		generation = schema.GenerationForID(details.ID)
	}
	return &schema.Pokemon{
		ID:             details.ID,
		Name:           details.Name,
		SpriteURL:      spriteURL(details.Sprites, false),
		ShinySpriteURL: spriteURL(details.Sprites, true),
		Types:          typeNames(details.Types),
		Height:         details.Height,
		Weight:         details.Weight,
		Generation:     generation,
	}
}

// spriteURL prefers the official artwork, then the default sprite.
func spriteURL(sprites pokeapi.Sprites, shiny bool) string {
	if other := sprites.Other; other != nil && other.OfficialArtwork != nil {
		art := other.OfficialArtwork.FrontDefault
		if shiny {
			art = other.OfficialArtwork.FrontShiny
		}
		if art != nil && *art != "" {
			return *art
		}
	}

	fallback := sprites.FrontDefault
	if shiny {
		fallback = sprites.FrontShiny
	}
	if fallback != nil {
		return *fallback
	}
	return ""
}

// typeNames returns the type names in the order the remote lists them.
func typeNames(slots []pokeapi.TypeSlot) []string {
	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.Type.Name != "" {
			names = append(names, slot.Type.Name)
		}
	}
	return names
}
