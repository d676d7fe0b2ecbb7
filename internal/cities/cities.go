package cities

import (
	"errors"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table maps lowercased city names to ambience clip URLs.
type Table struct {
	DefaultURL string `yaml:"default_url"`
	Cities     []City `yaml:"cities"`

	index map[string]string
}

type City struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Aliases []string `yaml:"aliases,omitempty"`
	Enabled *bool    `yaml:"enabled,omitempty"`
}

// Builtin is the table used when no cities file is configured.
func Builtin(defaultURL string) *Table {
	t := &Table{
		DefaultURL: defaultURL,
		Cities: []City{
			{Name: "Barcelona", URL: "/sounds/barcelona.wav", Aliases: []string{"bcn"}},
			{Name: "Stockholm", URL: "/sounds/stockholm.wav"},
			{Name: "Tokyo", URL: "/sounds/tokyo.wav", Aliases: []string{"東京"}},
			{Name: "New York", URL: "/sounds/new-york.wav", Aliases: []string{"nyc", "new york city"}},
			{Name: "Paris", URL: "/sounds/paris.wav"},
			{Name: "London", URL: "/sounds/london.wav"},
		},
	}
	t.Normalize()
	return t
}

// Load reads a YAML table. An empty default_url falls back to defaultURL.
func Load(path, defaultURL string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.DefaultURL) == "" {
		t.DefaultURL = defaultURL
	}
	t.Normalize()
	if len(t.Cities) == 0 {
		return nil, errors.New("city table empty")
	}
	return &t, nil
}

// Key is the lookup form of a city name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (t *Table) Normalize() {
	seen := map[string]bool{}
	out := make([]City, 0, len(t.Cities))
	index := make(map[string]string)

	for _, c := range t.Cities {
		c.Name = Key(c.Name)
		c.URL = strings.TrimSpace(c.URL)
		if c.Name == "" || c.URL == "" {
			continue
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)

		if c.Enabled != nil && !*c.Enabled {
			continue
		}
		index[c.Name] = c.URL
		for _, a := range c.Aliases {
			a = Key(a)
			if a == "" {
				continue
			}
			if _, taken := index[a]; !taken {
				index[a] = c.URL
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	t.Cities = out
	t.DefaultURL = strings.TrimSpace(t.DefaultURL)
	t.index = index
}

// Lookup returns the exact (case-insensitive) match only.
func (t *Table) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	u, ok := t.index[Key(name)]
	return u, ok
}

// Resolve returns the mapped URL, or the default ambience URL for unmapped
// cities. The bool reports whether the city itself was mapped.
func (t *Table) Resolve(name string) (string, bool) {
	if u, ok := t.Lookup(name); ok {
		return u, true
	}
	if t == nil {
		return "", false
	}
	return t.DefaultURL, false
}

// URLs lists every distinct clip URL in the table, default included.
func (t *Table) URLs() []string {
	if t == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, c := range t.Cities {
		add(c.URL)
	}
	add(t.DefaultURL)
	return out
}
