// Package source decodes catalog and lookup documents into domain items.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/okian/kunstquiz/pkg/logger"
)

// Catalog document formats.
const (
	FormatPaintings = "paintings"
	FormatHoldings  = "holdings"
)

// Attribute names produced by the decoders.
const (
	AttrGenre          = "genre"
	AttrMovement       = "movement"
	AttrYear           = "year"
	AttrCentury        = "century"
	AttrNationality    = "nationality"
	AttrArtistGenre    = "artist_genre"
	AttrArtistMovement = "artist_movement"
	AttrArtistGender   = "artist_gender"
	AttrArtistBio      = "artist_bio"
	AttrCountry        = "country"
	AttrIndustry       = "industry"
	AttrRegion         = "region"
)

type painting struct {
	ID             list `json:"id"`
	Title          list `json:"title"`
	Artist         list `json:"artist"`
	Genre          list `json:"genre"`
	Movement       list `json:"movement"`
	Year           list `json:"year"`
	Century        list `json:"century"`
	URL            list `json:"url"`
	ArtistGenre    list `json:"artist_genre"`
	ArtistMovement list `json:"artist_movement"`
	ArtistGender   list `json:"artist_gender"`
	ArtistBio      list `json:"artist_bio"`
	Nationality    list `json:"nationality"`
}

type holding struct {
	Name     list `json:"NAME"`
	Country  list `json:"COUNTRY"`
	Industry list `json:"INDUSTRY"`
	Region   list `json:"REGION"`
	Year     list `json:"YEAR"`
}

type artist struct {
	Name         list `json:"name"`
	Gender       list `json:"gender"`
	Movement     list `json:"movement"`
	Genre        list `json:"genre"`
	EnglishBio   list `json:"english_bio"`
	NorwegianBio list `json:"norwegian_bio"`
}

// Decode reads a catalog document in the given format.
func Decode(format string, r io.Reader) ([]model.Item, error) {
	switch format {
	case FormatPaintings:
		return DecodePaintings(r)
	case FormatHoldings:
		return DecodeHoldings(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodePaintings reads a JSON array of paintings. The artist is the grouping key.
func DecodePaintings(r io.Reader) ([]model.Item, error) {
	var docs []painting
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: paintings: %w", ErrDecode, err)
	}
	items := make([]model.Item, 0, len(docs))
	for i, p := range docs {
		id := p.ID.first()
		if id == "" {
			id = fmt.Sprintf("painting-%d", i)
		}
		attrs := map[string][]string{}
		put(attrs, AttrGenre, p.Genre)
		put(attrs, AttrMovement, p.Movement)
		put(attrs, AttrYear, p.Year)
		put(attrs, AttrNationality, p.Nationality)
		put(attrs, AttrArtistGenre, p.ArtistGenre)
		put(attrs, AttrArtistMovement, p.ArtistMovement)
		put(attrs, AttrArtistGender, p.ArtistGender)
		put(attrs, AttrArtistBio, p.ArtistBio)
		putCentury(attrs, p.Century, p.Year)
		items = append(items, model.Item{
			ID:         id,
			Subject:    p.Title.first(),
			GroupKey:   p.Artist.first(),
			Attributes: attrs,
			Asset:      p.URL.first(),
		})
	}
	return items, nil
}

// DecodeHoldings reads a JSON array of portfolio companies. Each company is its own group.
func DecodeHoldings(r io.Reader) ([]model.Item, error) {
	var docs []holding
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: holdings: %w", ErrDecode, err)
	}
	items := make([]model.Item, 0, len(docs))
	for i, h := range docs {
		name := h.Name.first()
		attrs := map[string][]string{}
		put(attrs, AttrCountry, h.Country)
		put(attrs, AttrIndustry, h.Industry)
		put(attrs, AttrRegion, h.Region)
		put(attrs, AttrYear, h.Year)
		items = append(items, model.Item{
			ID:         fmt.Sprintf("holding-%d", i),
			Subject:    name,
			GroupKey:   name,
			Attributes: attrs,
		})
	}
	return items, nil
}

// DecodeLookup reads a JSON array of artist records keyed by name.
func DecodeLookup(r io.Reader) (filter.Lookup, error) {
	var docs []artist
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: lookup: %w", ErrDecode, err)
	}
	out := make(filter.Lookup, len(docs))
	for _, a := range docs {
		name := a.Name.first()
		if name == "" {
			continue
		}
		entry := map[string][]string{}
		put(entry, "gender", a.Gender)
		put(entry, "movement", a.Movement)
		put(entry, "genre", a.Genre)
		put(entry, "english_bio", a.EnglishBio)
		put(entry, "norwegian_bio", a.NorwegianBio)
		out[name] = entry
	}
	return out, nil
}

// MergeLookup copies lookup gender, movement, genre and bio into the artist_*
// attributes of items that lack them.
func MergeLookup(items []model.Item, l filter.Lookup) {
	pairs := [][2]string{
		{AttrArtistGender, "gender"},
		{AttrArtistMovement, "movement"},
		{AttrArtistGenre, "genre"},
		{AttrArtistBio, "english_bio"},
	}
	for i := range items {
		entry, ok := l[items[i].GroupKey]
		if !ok {
			continue
		}
		if items[i].Attributes == nil {
			items[i].Attributes = map[string][]string{}
		}
		for _, p := range pairs {
			if len(items[i].Values(p[0])) == 0 && len(entry[p[1]]) > 0 {
				items[i].Attributes[p[0]] = append([]string(nil), entry[p[1]]...)
			}
		}
	}
}

// LoadFile decodes the catalog at path. A non-empty lookupPath is merged in
// and returned for the filter registry.
func LoadFile(ctx context.Context, log logger.Logger, format, path, lookupPath string) ([]model.Item, filter.Lookup, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	items, err := decodeFile(path, func(r io.Reader) ([]model.Item, error) { return Decode(format, r) })
	if err != nil {
		return nil, nil, err
	}
	var lookup filter.Lookup
	if strings.TrimSpace(lookupPath) != "" {
		lookup, err = decodeFile(lookupPath, DecodeLookup)
		if err != nil {
			return nil, nil, err
		}
		MergeLookup(items, lookup)
	}
	log.Info(ctx, "catalog decoded",
		logger.String("path", path),
		logger.String("format", format),
		logger.Int("items", len(items)),
		logger.Int("lookup_entries", len(lookup)))
	return items, lookup, nil
}

func decodeFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func put(attrs map[string][]string, key string, vs list) {
	if len(vs) > 0 {
		attrs[key] = []string(vs)
	}
}

func putCentury(attrs map[string][]string, explicit, year list) {
	if c := explicit.first(); c != "" && !strings.EqualFold(c, "unknown") {
		attrs[AttrCentury] = []string{c}
		return
	}
	if c := century(year.first()); c != "" {
		attrs[AttrCentury] = []string{c}
	}
}
