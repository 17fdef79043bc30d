package sourcemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmbeddedSources(t *testing.T) {
	data := []byte(`{
		"version": 3,
		"sources": ["src/a.ts", "src/b.ts", "src/c.ts"],
		"sourcesContent": ["export const a = 1", null, "export const c = 3"],
		"mappings": "AAAA"
	}`)
	srcs, err := JSONParser{}.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []Source{
		{Name: "src/a.ts", Content: "export const a = 1"},
		{Name: "src/c.ts", Content: "export const c = 3"},
	}, srcs)
}

func TestParseShortSourcesContent(t *testing.T) {
	data := []byte(`{"version":3,"sources":["a.js","b.js"],"sourcesContent":["x"]}`)
	srcs, err := JSONParser{}.Parse(data)
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, "a.js", srcs[0].Name)
}

func TestParseSourceRoot(t *testing.T) {
	data := []byte(`{"version":3,"sourceRoot":"app","sources":["main.ts","/abs.ts","webpack://pkg/x.ts"],"sourcesContent":["1","2","3"]}`)
	srcs, err := JSONParser{}.Parse(data)
	require.NoError(t, err)
	require.Len(t, srcs, 3)
	assert.Equal(t, "app/main.ts", srcs[0].Name)
	assert.Equal(t, "/abs.ts", srcs[1].Name)
	assert.Equal(t, "webpack://pkg/x.ts", srcs[2].Name)
}

func TestParseSections(t *testing.T) {
	data := []byte(`)]}'
	{"version":3,"sections":[
		{"offset":{"line":0,"column":0},"map":{"version":3,"sources":["one.js"],"sourcesContent":["1"]}},
		{"offset":{"line":9,"column":0},"map":{"version":3,"sources":["none.js"]}},
		{"offset":{"line":20,"column":0},"map":{"version":3,"sources":["two.js"],"sourcesContent":["2"]}}
	]}`)
	srcs, err := JSONParser{}.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []Source{{Name: "one.js", Content: "1"}, {Name: "two.js", Content: "2"}}, srcs)
}

func TestParseErrors(t *testing.T) {
	_, err := JSONParser{}.Parse([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = JSONParser{}.Parse([]byte(`{"version":2,"sources":[]}`))
	assert.ErrorIs(t, err, ErrBadVersion)

	_, err = JSONParser{}.Parse([]byte(`{"version":3,"sources":["a.js"]}`))
	assert.ErrorIs(t, err, ErrNoSources)
}
