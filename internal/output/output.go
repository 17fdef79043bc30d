// Package output materializes a decompile result on disk.
//
// Layout under the destination root:
//
//	metadata.json
//	original/**    sources recovered from source maps
//	bundled/**     module contents, with .map sidecars
//	bytecode/**    precompiled bytecode
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"unbun/internal/bunfmt"
	"unbun/internal/decompile"
)

const (
	originalDir  = "original"
	bundledDir   = "bundled"
	bytecodeDir  = "bytecode"
	metadataFile = "metadata.json"
	bytecodeExt  = ".jsc"
	unknownEntry = "unknown"
)

var (
	errTraversal = errors.New("path escapes output root")
	errEmptyName = errors.New("empty file name")
)

// Options controls extraction.
type Options struct {
	Now         func() time.Time // extraction timestamp; nil = time.Now
	Concurrency int              // parallel file writes; 0 = GOMAXPROCS
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) workers() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// Metadata is written to metadata.json.
type Metadata struct {
	BunVersion          string       `json:"bunVersion"`
	EntryPoint          string       `json:"entryPoint"`
	Args                []string     `json:"args"`
	Flags               uint32       `json:"flags"`
	ModuleCount         int          `json:"moduleCount"`
	OriginalSourceCount int          `json:"originalSourceCount"`
	ExtractedAt         string       `json:"extractedAt"`
	Modules             []ModuleInfo `json:"modules"`
}

// ModuleInfo describes one module in metadata.json.
type ModuleInfo struct {
	Name          string `json:"name"`
	Loader        string `json:"loader"`
	Encoding      string `json:"encoding"`
	Format        string `json:"format"`
	Side          string `json:"side"`
	Size          int    `json:"size"`
	SourceMapSize int    `json:"sourceMapSize,omitempty"`
	BytecodeSize  int    `json:"bytecodeSize,omitempty"`
	IsEntryPoint  bool   `json:"isEntryPoint,omitempty"`
}

// Summary lists what Extract wrote, relative to the root.
type Summary struct {
	Root    string   `json:"root"`
	Files   []string `json:"files"`
	Skipped []string `json:"skipped,omitempty"`
}

type job struct {
	rel  string // slash-separated, relative to root
	data []byte
}

// Extract writes res under root. Every destination path is validated
// before anything is written; the first write failure aborts.
func Extract(res *decompile.Result, root string, opts Options) (*Summary, error) {
	sum := &Summary{Root: root}
	jobs, err := planJobs(res, sum)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, &bunfmt.ExtractionError{Path: root, Err: err}
	}
	if err := runJobs(root, jobs, opts.workers()); err != nil {
		return nil, err
	}

	if err := writeJSON(filepath.Join(root, metadataFile), buildMetadata(res, opts.now())); err != nil {
		return nil, err
	}

	for _, j := range jobs {
		sum.Files = append(sum.Files, j.rel)
	}
	sum.Files = append(sum.Files, metadataFile)
	sort.Strings(sum.Files)
	return sum, nil
}

// planJobs derives every destination path from the embedded names.
// Later duplicates of an already planned path are skipped.
func planJobs(res *decompile.Result, sum *Summary) ([]job, error) {
	var jobs []job
	seen := make(map[string]bool)
	add := func(rel string, data []byte) {
		if seen[rel] {
			sum.Skipped = append(sum.Skipped, rel)
			return
		}
		seen[rel] = true
		jobs = append(jobs, job{rel: rel, data: data})
	}

	for _, src := range res.OriginalSources {
		rel, err := SafeRelPath(src.Name)
		if err != nil {
			return nil, err
		}
		add(originalDir+"/"+rel, []byte(src.Content))
	}

	for _, m := range res.Modules {
		if m.IsEmpty() {
			sum.Skipped = append(sum.Skipped, m.Name)
			continue
		}
		rel, err := SafeRelPath(m.Name)
		if err != nil {
			return nil, err
		}
		rel = withLoaderExt(rel, m.Loader)
		add(bundledDir+"/"+rel, m.Contents)
		if len(m.SourceMap) > 0 {
			add(bundledDir+"/"+rel+".map", m.SourceMap)
		}
		if len(m.Bytecode) > 0 {
			add(bytecodeDir+"/"+bytecodeName(rel), m.Bytecode)
		}
	}
	return jobs, nil
}

// runJobs writes jobs with n workers. Once a write fails no new write
// starts and the first failure is returned.
func runJobs(root string, jobs []job, n int) error {
	if n > len(jobs) {
		n = len(jobs)
	}
	ch := make(chan job)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			for j := range ch {
				if failed() {
					continue
				}
				if err := writeFile(root, j); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}
	for _, j := range jobs {
		if failed() {
			break
		}
		ch <- j
	}
	close(ch)
	wg.Wait()
	return firstErr
}

func writeFile(root string, j job) error {
	full, err := under(root, j.rel)
	if err != nil {
		return err
	}
	// MkdirAll treats an existing directory as success, so concurrent
	// writers racing on the same parent are fine.
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return &bunfmt.ExtractionError{Path: j.rel, Err: err}
	}
	return createFile(full, j.rel, j.data)
}

// createFile writes data to full; errors name rel. The close error is
// returned: on some filesystems it is the first report of a failed write.
func createFile(full, rel string, data []byte) error {
	f, err := os.Create(full)
	if err != nil {
		return &bunfmt.ExtractionError{Path: rel, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return &bunfmt.ExtractionError{Path: rel, Err: err}
	}
	if err := f.Close(); err != nil {
		return &bunfmt.ExtractionError{Path: rel, Err: err}
	}
	return nil
}

func buildMetadata(res *decompile.Result, now time.Time) *Metadata {
	md := &Metadata{
		BunVersion:          res.BunVersion,
		EntryPoint:          unknownEntry,
		Args:                res.Args,
		Flags:               res.Flags,
		ModuleCount:         len(res.Modules),
		OriginalSourceCount: len(res.OriginalSources),
		ExtractedAt:         now.UTC().Format(time.RFC3339),
		Modules:             make([]ModuleInfo, 0, len(res.Modules)),
	}
	if md.Args == nil {
		md.Args = []string{}
	}
	if ep := res.EntryPoint(); ep != nil {
		md.EntryPoint = ep.Name
	}
	for _, m := range res.Modules {
		md.Modules = append(md.Modules, ModuleInfo{
			Name:          m.Name,
			Loader:        m.Loader.String(),
			Encoding:      m.Encoding.String(),
			Format:        m.Format.String(),
			Side:          m.Side.String(),
			Size:          len(m.Contents),
			SourceMapSize: len(m.SourceMap),
			BytecodeSize:  len(m.Bytecode),
			IsEntryPoint:  m.IsEntryPoint,
		})
	}
	return md
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &bunfmt.ExtractionError{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}
	return createFile(path, path, append(data, '\n'))
}
