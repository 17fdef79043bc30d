package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unbun/internal/bunfmt"
	"unbun/internal/decompile"
	"unbun/internal/sourcemap"
	"unbun/internal/standalone"
)

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func sampleResult() *decompile.Result {
	return &decompile.Result{
		BunVersion: "1.1.34",
		Modules: []standalone.Module{
			{Name: "index.js", Contents: []byte("main()"), SourceMap: []byte(`{"version":3}`), Loader: bunfmt.LoaderJS, IsEntryPoint: true},
			{Name: "lib/config", Contents: []byte("a = 1"), Loader: bunfmt.LoaderTOML},
			{Name: "lib/worker.ts", Contents: []byte("w()"), Bytecode: []byte{0xde, 0xad}, Loader: bunfmt.LoaderTS},
			{Name: "empty.js", Loader: bunfmt.LoaderJS},
		},
		OriginalSources: []sourcemap.Source{
			{Name: "webpack:///./src/index.ts", Content: "main();"},
			{Name: "/abs/util.ts", Content: "export {}"},
		},
		Args:  []string{"--smol"},
		Flags: 2,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestExtractLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	sum, err := Extract(sampleResult(), root, Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"bundled/index.js",
		"bundled/index.js.map",
		"bundled/lib/config.toml",
		"bundled/lib/worker.ts",
		"bytecode/lib/worker.jsc",
		"metadata.json",
		"original/abs/util.ts",
		"original/src/index.ts",
	}, sum.Files)
	assert.Equal(t, []string{"empty.js"}, sum.Skipped)

	assert.Equal(t, "main()", readFile(t, filepath.Join(root, "bundled", "index.js")))
	assert.Equal(t, `{"version":3}`, readFile(t, filepath.Join(root, "bundled", "index.js.map")))
	assert.Equal(t, "\xde\xad", readFile(t, filepath.Join(root, "bytecode", "lib", "worker.jsc")))
	assert.Equal(t, "main();", readFile(t, filepath.Join(root, "original", "src", "index.ts")))
	assert.NoFileExists(t, filepath.Join(root, "bundled", "empty.js"))
}

func TestExtractMetadata(t *testing.T) {
	root := t.TempDir()
	_, err := Extract(sampleResult(), root, Options{Now: fixedNow, Concurrency: 1})
	require.NoError(t, err)

	var md Metadata
	require.NoError(t, json.Unmarshal([]byte(readFile(t, filepath.Join(root, "metadata.json"))), &md))
	assert.Equal(t, "1.1.34", md.BunVersion)
	assert.Equal(t, "index.js", md.EntryPoint)
	assert.Equal(t, []string{"--smol"}, md.Args)
	assert.Equal(t, uint32(2), md.Flags)
	assert.Equal(t, 4, md.ModuleCount)
	assert.Equal(t, 2, md.OriginalSourceCount)
	assert.Equal(t, "2026-01-02T03:04:05Z", md.ExtractedAt)
	require.Len(t, md.Modules, 4)
	assert.Equal(t, "toml", md.Modules[1].Loader)
	assert.True(t, md.Modules[0].IsEntryPoint)
}

func TestExtractUnknownEntryPointAndNoOriginals(t *testing.T) {
	res := sampleResult()
	res.OriginalSources = nil
	res.Args = nil
	for i := range res.Modules {
		res.Modules[i].IsEntryPoint = false
	}

	root := t.TempDir()
	_, err := Extract(res, root, Options{Now: fixedNow})
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(root, "original"))

	var md map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, filepath.Join(root, "metadata.json"))), &md))
	assert.Equal(t, "unknown", md["entryPoint"])
	assert.Equal(t, []any{}, md["args"])
}

func TestExtractRejectsTraversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")

	res := sampleResult()
	res.Modules = append(res.Modules, standalone.Module{Name: "../../etc/passwd", Contents: []byte("root:x:0:0")})

	_, err := Extract(res, root, Options{})
	require.ErrorIs(t, err, bunfmt.ErrExtraction)
	var ee *bunfmt.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "../../etc/passwd", ee.Path)

	// Paths are validated before the first write.
	assert.NoDirExists(t, root)
	assert.NoFileExists(t, filepath.Join(parent, "etc", "passwd"))
}

func TestExtractRejectsTraversalInOriginalSource(t *testing.T) {
	res := sampleResult()
	res.OriginalSources = append(res.OriginalSources, sourcemap.Source{Name: `..\..\evil.js`, Content: "x"})

	_, err := Extract(res, t.TempDir(), Options{})
	assert.ErrorIs(t, err, bunfmt.ErrExtraction)
}

func TestExtractWriteFailureAborts(t *testing.T) {
	root := t.TempDir()
	// A regular file where the bundled directory must go.
	require.NoError(t, os.WriteFile(filepath.Join(root, "bundled"), nil, 0644))

	_, err := Extract(sampleResult(), root, Options{})
	var ee *bunfmt.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Path, "bundled/")
	assert.NoFileExists(t, filepath.Join(root, "metadata.json"))
}

func TestExtractIdempotentDirectories(t *testing.T) {
	root := t.TempDir()
	_, err := Extract(sampleResult(), root, Options{Now: fixedNow})
	require.NoError(t, err)
	_, err = Extract(sampleResult(), root, Options{Now: fixedNow})
	require.NoError(t, err)
}

func TestExtractDuplicateNames(t *testing.T) {
	res := sampleResult()
	res.OriginalSources = append(res.OriginalSources, sourcemap.Source{Name: "src/index.ts", Content: "second"})

	root := t.TempDir()
	sum, err := Extract(res, root, Options{})
	require.NoError(t, err)
	assert.Contains(t, sum.Skipped, "original/src/index.ts")
	assert.Equal(t, "main();", readFile(t, filepath.Join(root, "original", "src", "index.ts")))
}

func TestSafeRelPath(t *testing.T) {
	ok := map[string]string{
		"src/a.js":                 "src/a.js",
		"/src/a.js":                "src/a.js",
		`\\server\share\a.js`:      "server/share/a.js",
		"webpack:///./src/a.ts":    "src/a.ts",
		"file:///home/u/a.ts":      "home/u/a.ts",
		"C:/Users/a.ts":            "Users/a.ts",
		`d:\src\a.ts`:              "src/a.ts",
		"x:y.js":                   "x:y.js",
		"lib/c:d.js":               "lib/c:d.js",
		"ab:/c.js":                 "ab:/c.js",
		"a/./b//c.js":              "a/b/c.js",
		"node_modules/x/index.mjs": "node_modules/x/index.mjs",
	}
	for in, want := range ok {
		got, err := SafeRelPath(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}

	for _, in := range []string{"../../etc/passwd", "a/../../b", `..\x`, "webpack://../x", "", "/", ".", "C:", "C:/"} {
		_, err := SafeRelPath(in)
		assert.ErrorIs(t, err, bunfmt.ErrExtraction, in)
	}
}

func TestWithLoaderExt(t *testing.T) {
	assert.Equal(t, "a/b.ts", withLoaderExt("a/b", bunfmt.LoaderTS))
	assert.Equal(t, "a/b.txt", withLoaderExt("a/b", bunfmt.LoaderText))
	assert.Equal(t, "a/b.js", withLoaderExt("a/b", bunfmt.Loader(99)))
	assert.Equal(t, "a.d/b.js", withLoaderExt("a.d/b", bunfmt.LoaderJS))
	assert.Equal(t, "a/b.css", withLoaderExt("a/b.css", bunfmt.LoaderTS))
}

func TestBytecodeName(t *testing.T) {
	assert.Equal(t, "a/b.jsc", bytecodeName("a/b.js"))
	assert.Equal(t, "a/b.jsc", bytecodeName("a/b.ts"))
	assert.Equal(t, "a.d/b.jsc", bytecodeName("a.d/b.js"))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), metadataFile)
	require.NoError(t, writeJSON(path, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", readFile(t, path))

	err := writeJSON(path, map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, bunfmt.ErrExtraction)

	err = writeJSON(filepath.Join(t.TempDir(), "missing", metadataFile), 1)
	assert.ErrorIs(t, err, bunfmt.ErrExtraction)
}

func TestCreateFileReportsWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	err := createFile("/dev/full", metadataFile, []byte("{}"))
	var ee *bunfmt.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, metadataFile, ee.Path)
}
