package filter

// AllID is the filter that matches the whole catalog.
const AllID = "all"

// Defaults returns the built-in categories for painting and holdings catalogs.
func Defaults() []Spec {
	return []Spec{
		{ID: AllID, Name: "All", Mode: ModeAll},
		{ID: "popular", Name: "Popular painters", Mode: ModeTop, Limit: 10},
		{ID: "landscape", Name: "Landscapes", Mode: ModeContains,
			Fields: []string{"genre", "artist_genre"}, Values: []string{"landscape"}},
		{ID: "realism", Name: "Realism", Mode: ModeContains,
			Fields: []string{"movement", "artist_movement"}, Values: []string{"realism"}},
		{ID: "expressionism", Name: "Expressionism", Mode: ModeContains,
			Fields: []string{"movement", "artist_movement"}, Values: []string{"expressionism"}},
		{ID: "impressionism", Name: "Impressionism", Mode: ModeContains,
			Fields: []string{"movement", "artist_movement"}, Values: []string{"impressionism"}},
		{ID: "romantic_nationalism", Name: "Romantic nationalism", Mode: ModeContains,
			Fields: []string{"movement", "artist_movement", "lookup.movement"},
			Values: []string{"nasjonalromantikk", "norwegian romantic nationalism", "romantic nationalism", "national romantic"}},
		{ID: "modernism", Name: "Modernism", Mode: ModeContains,
			Fields: []string{"movement", "artist_movement", "artist_bio", "lookup.movement", "lookup.english_bio"},
			Values: []string{"modernism", "modernist"}},
		{ID: "female_artists", Name: "Female artists", Mode: ModeEquals,
			Fields: []string{"artist_gender", "lookup.gender"}, Values: []string{"female"}},
		{ID: "neo_romanticism", Name: "Neo-romanticism", Mode: ModeContains,
			Fields: []string{"movement", "artist_movement", "lookup.movement"}, Values: []string{"neo-romanticism", "nyromantikk"}},
		{ID: "europe", Name: "Europe", Mode: ModeContains,
			Fields: []string{"region"}, Values: []string{"europe"}},
		{ID: "asia", Name: "Asia", Mode: ModeContains,
			Fields: []string{"region"}, Values: []string{"asia"}},
		{ID: "technology", Name: "Technology", Mode: ModeContains,
			Fields: []string{"industry"}, Values: []string{"technology"}},
		{ID: "financials", Name: "Financials", Mode: ModeContains,
			Fields: []string{"industry"}, Values: []string{"financials"}},
	}
}
