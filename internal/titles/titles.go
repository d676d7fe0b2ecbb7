// Package titles composes whimsical artwork titles from word pools.
package titles

import (
	"fmt"
	"regexp"

	"museatlas/internal/wordpool"
)

// DefaultCount is used when a caller asks for zero or fewer titles.
const DefaultCount = 3

// Shape identifies which template produced a title.
type Shape string

const (
	ShapeDescriptorSubject Shape = "descriptor_subject" // Crimson Atlas
	ShapeNumbered          Shape = "numbered"           // Crimson Atlas No. 42
	ShapeEchoes            Shape = "echoes"             // Echoes of Atlas
	ShapeSubjectMotif      Shape = "subject_motif"      // Atlas in Winter
	ShapeStudies           Shape = "studies"            // Crimson Studies for the Moon
	ShapeUnknown           Shape = ""
)

// Slots are the three pools a template draws from after source selection.
type Slots struct {
	Descriptors wordpool.Pool
	Subjects    wordpool.Pool
	Motifs      wordpool.Pool
}

type template struct {
	shape  Shape
	render func(s Slots, r wordpool.Rand) string
}

var templates = []template{
	{ShapeDescriptorSubject, func(s Slots, r wordpool.Rand) string {
		return wordpool.Pick(r, s.Descriptors) + " " + wordpool.Pick(r, s.Subjects)
	}},
	{ShapeNumbered, func(s Slots, r wordpool.Rand) string {
		return fmt.Sprintf("%s %s No. %d", wordpool.Pick(r, s.Descriptors), wordpool.Pick(r, s.Subjects), r.IntN(90)+10)
	}},
	{ShapeEchoes, func(s Slots, r wordpool.Rand) string {
		return "Echoes of " + wordpool.Pick(r, s.Subjects)
	}},
	{ShapeSubjectMotif, func(s Slots, r wordpool.Rand) string {
		return wordpool.Pick(r, s.Subjects) + " " + wordpool.Pick(r, s.Motifs)
	}},
	{ShapeStudies, func(s Slots, r wordpool.Rand) string {
		return wordpool.Pick(r, s.Descriptors) + " Studies " + wordpool.Pick(r, s.Motifs)
	}},
}

// Select decides per slot between fetched and fallback words. A slot only
// uses fetched words when useAPI is set and that pool is non-empty.
func Select(p wordpool.Pools, useAPI bool) Slots {
	pick := func(fetched, fallback wordpool.Pool) wordpool.Pool {
		if useAPI && len(fetched) > 0 {
			return fetched
		}
		return fallback
	}
	return Slots{
		Descriptors: pick(p.Descriptors, wordpool.FallbackDescriptors),
		Subjects:    pick(p.Subjects, wordpool.FallbackSubjects),
		Motifs:      pick(p.Motifs, wordpool.FallbackMotifs),
	}
}

type Composer struct {
	rand wordpool.Rand
}

func NewComposer(r wordpool.Rand) *Composer {
	if r == nil {
		r = wordpool.DefaultRand
	}
	return &Composer{rand: r}
}

// Compose renders count titles. Titles within a batch may repeat.
func (c *Composer) Compose(p wordpool.Pools, useAPI bool, count int) []string {
	if count <= 0 {
		count = DefaultCount
	}
	s := Select(p, useAPI)
	out := make([]string, count)
	for i := range out {
		t := templates[c.rand.IntN(len(templates))]
		out[i] = t.render(s, c.rand)
	}
	return out
}

var shapePatterns = []struct {
	shape Shape
	re    *regexp.Regexp
}{
	{ShapeNumbered, regexp.MustCompile(`^\S+ \S+ No\. [1-9][0-9]$`)},
	{ShapeStudies, regexp.MustCompile(`^\S+ Studies (of|in|for) .+$`)},
	{ShapeEchoes, regexp.MustCompile(`^Echoes of \S+$`)},
	{ShapeSubjectMotif, regexp.MustCompile(`^\S+ (of|in|for) .+$`)},
	{ShapeDescriptorSubject, regexp.MustCompile(`^\S+ \S+$`)},
}

// ShapeOf classifies a title by its text alone. Pool words never contain
// spaces, which keeps the patterns unambiguous enough for reporting.
func ShapeOf(title string) Shape {
	for _, p := range shapePatterns {
		if p.re.MatchString(title) {
			return p.shape
		}
	}
	return ShapeUnknown
}
