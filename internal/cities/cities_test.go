package cities

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLookup(t *testing.T) {
	tbl := Builtin("/sounds/default.mp3")

	u, ok := tbl.Lookup("Barcelona")
	require.True(t, ok)
	assert.Equal(t, "/sounds/barcelona.wav", u)

	u, ok = tbl.Lookup("  BARCELONA ")
	require.True(t, ok)
	assert.Equal(t, "/sounds/barcelona.wav", u)

	u, ok = tbl.Lookup("nyc")
	require.True(t, ok)
	assert.Equal(t, "/sounds/new-york.wav", u)

	_, ok = tbl.Lookup("Nowhere-XYZ")
	assert.False(t, ok)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	tbl := Builtin("/sounds/default.mp3")

	u, mapped := tbl.Resolve("Nowhere-XYZ")
	assert.False(t, mapped)
	assert.Equal(t, "/sounds/default.mp3", u)

	u, mapped = tbl.Resolve("paris")
	assert.True(t, mapped)
	assert.Equal(t, "/sounds/paris.wav", u)
}

func TestLoadNormalizes(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
cities:
  - name: " Lisbon "
    url: https://example.org/lisbon.mp3
  - name: lisbon
    url: https://example.org/dupe.mp3
  - name: Oslo
    url: https://example.org/oslo.mp3
    enabled: false
  - name: ""
    url: https://example.org/blank.mp3
  - name: Kyoto
    url: https://example.org/kyoto.mp3
`), 0o644))

	tbl, err := Load(p, "https://example.org/default.mp3")
	require.NoError(t, err)

	require.Len(t, tbl.Cities, 3)
	assert.Equal(t, "kyoto", tbl.Cities[0].Name)
	assert.Equal(t, "lisbon", tbl.Cities[1].Name)
	assert.Equal(t, "https://example.org/default.mp3", tbl.DefaultURL)

	u, ok := tbl.Lookup("LISBON")
	require.True(t, ok)
	assert.Equal(t, "https://example.org/lisbon.mp3", u)

	_, ok = tbl.Lookup("oslo")
	assert.False(t, ok, "disabled cities are not looked up")

	assert.ElementsMatch(t, []string{
		"https://example.org/kyoto.mp3",
		"https://example.org/lisbon.mp3",
		"https://example.org/oslo.mp3",
		"https://example.org/default.mp3",
	}, tbl.URLs())
}

func TestLoadEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(p, []byte("cities: []\n"), 0o644))
	_, err := Load(p, "")
	require.Error(t, err)
}

func TestExampleFileMatchesBuiltin(t *testing.T) {
	tbl, err := Load(filepath.Join("..", "..", "cities.example.yaml"), "")
	require.NoError(t, err)

	builtin := Builtin("/sounds/ambience-default.wav")
	assert.ElementsMatch(t, builtin.URLs(), tbl.URLs())
	u, ok := tbl.Lookup("BCN")
	assert.True(t, ok)
	assert.Equal(t, "/sounds/barcelona.wav", u)
}
