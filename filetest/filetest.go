// Package filetest verifies that content written to io.Writers, e.g. the
// output of a command or a logger, matches golden files under testdata/.
//
// Trace output is full of wall-clock times; ScrubTimestamps and
// ScrubDurations replace those with fixed placeholders before comparing.
package filetest

import (
	"bytes"
	"io"
	"regexp"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

// New is a wrapper for goldie.New, but returns a *Tester goldie helper.
func New(t *testing.T, opts ...goldie.Option) *Tester { //nolint:thelper
	return &Tester{
		G:     goldie.New(t, opts...),
		T:     t,
		Files: make(map[string]*Target),
	}
}

// Tester is a high-level primitive for goldie.Goldie. It allows registering
// testdata files to verify io.Writer writes.
type Tester struct {
	G *goldie.Goldie
	T *testing.T
	// Files map a file name (conventionally under testdata/) to a
	// target buffer and set of filters.
	Files map[string]*Target
}

// Target is a write target. Before verifying the written content, the
// filters are applied in order.
type Target struct {
	Buffer  *bytes.Buffer
	Filters []Filter
}

// Filter represents a byte filter; similar to an UNIX pipe.
type Filter func([]byte) []byte

// Add adds a new file target. If name already exists, it is overwritten.
func (g *Tester) Add(name string) *Target {
	b := &Target{
		Buffer: new(bytes.Buffer),
	}
	g.Files[name] = b
	return b
}

// Filter adds a new filter to the Target.
func (b *Target) Filter(filters ...Filter) *Target {
	b.Filters = append(b.Filters, filters...)
	return b
}

// Writer returns the io.Writer which content sources can write to.
func (b *Target) Writer() io.Writer { return b.Buffer }

// Content returns the written content with all filters applied.
func (b *Target) Content() []byte {
	content := b.Buffer.Bytes()
	for _, filter := range b.Filters {
		content = filter(content)
	}
	return content
}

func (g *Tester) do(fn func(*testing.T, string, []byte)) {
	names := make([]string, 0, len(g.Files))
	for name := range g.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content := g.Files[name].Content()
		g.T.Run(name, func(t *testing.T) {
			fn(t, name, content)
		})
	}
}

// Assert verifies the all golden files are up-to-date.
// All file verifications are run in separate sub-tests.
//
// If the "-update" flag is passed to "go test", for example as
// "go test . -update", the files under testdata/ will be
// automatically updated.
func (g *Tester) Assert() { g.do(g.G.Assert) }

// Update updates all golden files to match the written content.
func (g *Tester) Update() {
	g.do(func(t *testing.T, name string, content []byte) { //nolint:thelper
		assert.Nil(t, g.G.Update(t, name, content))
	})
}

//nolint:gochecknoglobals
var (
	timestampRegexp = regexp.MustCompile(`\d{4}_\d{2}_\d{2}-\d{2}_\d{2}_\d{2}_[AP]M_\d{3}`)
	durationRegexp  = regexp.MustCompile(`\d+\.\d{4} seconds`)
)

// ScrubTimestamps replaces every trace timestamp, e.g.
// "2024_05_01-14_03_59_PM_042", with "<timestamp>".
func ScrubTimestamps(content []byte) []byte {
	return timestampRegexp.ReplaceAll(content, []byte("<timestamp>"))
}

// ScrubDurations replaces every duration, e.g. "0.0123 seconds", with
// "<duration>".
func ScrubDurations(content []byte) []byte {
	return durationRegexp.ReplaceAll(content, []byte("<duration>"))
}
