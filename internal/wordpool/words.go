package wordpool

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Pool is a deduplicated set of fill-in words. Order carries no meaning.
type Pool []string

// Pools is one load's worth of word pools plus how the load went.
type Pools struct {
	Descriptors Pool   `json:"descriptors"`
	Subjects    Pool   `json:"subjects"`
	Motifs      Pool   `json:"motifs"`
	Degraded    bool   `json:"degraded"`
	Status      string `json:"status"`
}

var (
	FallbackDescriptors = Pool{
		"Silent", "Crimson", "Nocturnal", "Electric", "Feral", "Opaline", "Fractured", "Tender",
		"Ethereal", "Velvet", "Echoing", "Iridescent", "Harmonic", "Lonely", "Celestial", "Obscure",
	}

	FallbackSubjects = Pool{
		"Geometry", "Horizon", "Memory", "Silence", "Gravity", "Chimera", "Spectra", "Nebula",
		"Signal", "Pulse", "Garden", "Atlas", "Orbit", "Echoes", "Relic", "Mirage",
	}

	FallbackMotifs = Pool{
		"of Silence", "of Dust", "of Glass", "in Blue", "in Transit", "for a Distant City",
		"for the Moon", "in Winter", "for the Last Light", "for Yesterday",
	}
)

const (
	StatusLoading  = "Fetching museum words…"
	StatusReady    = "Done! (toggle museum words with the switch)"
	StatusDegraded = "Could not fetch museum data, falling back to built-in word lists."
)

// motifSampleSize is how many subjects become "of <Subject>" motifs.
const motifSampleSize = 10

// Fallback returns the degraded-mode pools. Slices are copies so callers can't
// mutate the literals.
func Fallback() Pools {
	return Pools{
		Descriptors: clone(FallbackDescriptors),
		Subjects:    clone(FallbackSubjects),
		Motifs:      clone(FallbackMotifs),
		Degraded:    true,
		Status:      StatusDegraded,
	}
}

var (
	nonLetters = regexp.MustCompile(`[^a-zà-öčšžäöåéüñ]+`)

	stopWords = map[string]struct{}{
		"the": {}, "and": {}, "of": {}, "for": {}, "in": {},
		"on": {}, "with": {}, "without": {}, "no": {}, "untitled": {},
	}
)

// ExtractWords lowercases s, splits it on runs of non-letters and drops short
// tokens and stop words.
func ExtractWords(s string) []string {
	if s == "" {
		return nil
	}
	parts := nonLetters.Split(strings.ToLower(s), -1)
	out := make([]string, 0, len(parts))
	for _, w := range parts {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Rand is the subset of *rand.Rand the pools and templates draw from.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide source and is safe for concurrent use.
var DefaultRand Rand = globalRand{}

// Pick returns a uniformly chosen element, or "" for an empty pool.
func Pick(r Rand, p Pool) string {
	if len(p) == 0 {
		return ""
	}
	return p[r.IntN(len(p))]
}

// Sample draws up to n distinct positions from p without replacement.
func Sample(r Rand, p Pool, n int) Pool {
	cp := clone(p)
	out := make(Pool, 0, min(n, len(cp)))
	for len(cp) > 0 && len(out) < n {
		i := r.IntN(len(cp))
		out = append(out, cp[i])
		cp[i] = cp[len(cp)-1]
		cp = cp[:len(cp)-1]
	}
	return out
}

// Artwork is the subset of a catalog record used for word extraction.
type Artwork struct {
	Title         string   `json:"title"`
	ArtistTitle   string   `json:"artist_title"`
	StyleTitle    string   `json:"style_title"`
	SubjectTitles []string `json:"subject_titles"`
	MediumDisplay string   `json:"medium_display"`
}

// Build turns catalog records into pools. Fetched words come first, the
// fallback literals are always merged in, so no pool is ever empty.
func Build(records []Artwork, r Rand) Pools {
	if r == nil {
		r = DefaultRand
	}

	var fromTitles, fromStyles, fromMediums, fromSubjects []string
	for _, a := range records {
		fromTitles = append(fromTitles, ExtractWords(a.Title)...)
		fromStyles = append(fromStyles, ExtractWords(a.StyleTitle)...)
		fromMediums = append(fromMediums, ExtractWords(a.MediumDisplay)...)
		for _, s := range a.SubjectTitles {
			fromSubjects = append(fromSubjects, ExtractWords(s)...)
		}
	}

	title := cases.Title(language.Und)

	descriptors := capitalizeAll(title, fromStyles, fromMediums, FallbackDescriptors)
	subjects := capitalizeAll(title, fromTitles, fromSubjects, FallbackSubjects)

	sampled := Sample(r, subjects, motifSampleSize)
	ofs := make([]string, 0, len(sampled))
	for _, s := range sampled {
		ofs = append(ofs, "of "+s)
	}

	return Pools{
		Descriptors: descriptors,
		Subjects:    subjects,
		Motifs:      unique(FallbackMotifs, ofs),
		Status:      StatusReady,
	}
}

// capitalizeAll dedups on the capitalized form, so an API "silent" and the
// fallback "Silent" collapse into one entry.
func capitalizeAll(c cases.Caser, groups ...[]string) Pool {
	seen := make(map[string]struct{})
	var out Pool
	for _, g := range groups {
		for _, w := range g {
			w = c.String(w)
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

func unique(groups ...[]string) Pool {
	seen := make(map[string]struct{})
	var out Pool
	for _, g := range groups {
		for _, w := range g {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

func clone(p Pool) Pool {
	return append(Pool(nil), p...)
}
