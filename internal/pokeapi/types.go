package pokeapi

// NamedResource is a {name, url} reference returned by list endpoints.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ID parses the numeric id from the reference URL.
func (r NamedResource) ID() (int, error) {
	return IDFromURL(r.URL)
}

// Page is one page of the paginated pokemon listing.
type Page struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

// HasMore reports whether another page follows this one.
func (p *Page) HasMore() bool {
	return p.Next != nil && *p.Next != ""
}

// Pokemon is the detail payload of a single pokemon.
type Pokemon struct {
	ID      int        `json:"id"`
	Name    string     `json:"name"`
	Height  int        `json:"height"`
	Weight  int        `json:"weight"`
	Sprites Sprites    `json:"sprites"`
	Types   []TypeSlot `json:"types"`
}

// Sprites holds the image URLs of a pokemon. Any of them may be null upstream.
type Sprites struct {
	FrontDefault *string       `json:"front_default"`
	FrontShiny   *string       `json:"front_shiny"`
	Other        *OtherSprites `json:"other"`
}

// OtherSprites holds alternative artwork sets.
type OtherSprites struct {
	OfficialArtwork *Artwork `json:"official-artwork"`
}

// Artwork is one artwork set.
type Artwork struct {
	FrontDefault *string `json:"front_default"`
	FrontShiny   *string `json:"front_shiny"`
}

// TypeSlot is one entry of a pokemon's type list.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// Generation lists the species introduced in a generation.
type Generation struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	PokemonSpecies []NamedResource `json:"pokemon_species"`
}

// Version is a single game version.
type Version struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	VersionGroup NamedResource `json:"version_group"`
}

// VersionGroup groups versions released together.
type VersionGroup struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Generation NamedResource   `json:"generation"`
	Pokedexes  []NamedResource `json:"pokedexes"`
}

// Pokedex is a regional or national species listing.
type Pokedex struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	PokemonEntries []PokedexEntry `json:"pokemon_entries"`
}

// PokedexEntry is one numbered entry of a pokedex.
type PokedexEntry struct {
	EntryNumber    int           `json:"entry_number"`
	PokemonSpecies NamedResource `json:"pokemon_species"`
}
