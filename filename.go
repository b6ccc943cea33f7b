package flowtrace

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// fileNameSeparator separates the root function name from the timestamp.
	fileNameSeparator = "__"
	fileExtension     = ".json"
)

// FileInfo is what a trace file name tells about the trace.
type FileInfo struct {
	// Root is the sanitized name of the root function.
	Root      string
	Timestamp Timestamp
	Outcome   Outcome
	// Seq is non-zero if several traces of the same root function ended
	// within the same millisecond.
	Seq int
}

// FileName returns "{root}__{timestamp}_{outcome}.json", with root sanitized
// to be safe in file names, and "-{seq}" appended to the outcome if seq > 0.
func FileName(root string, ts Timestamp, outcome Outcome, seq int) string {
	name := sanitizeFileName(root) + fileNameSeparator + ts.String() + "_" + string(outcome)
	if seq > 0 {
		name += "-" + strconv.Itoa(seq)
	}
	return name + fileExtension
}

// String returns the file name described by fi.
func (fi FileInfo) String() string { return FileName(fi.Root, fi.Timestamp, fi.Outcome, fi.Seq) }

// ParseFileName parses a name produced by FileName. Leading directories are
// ignored.
func ParseFileName(name string) (FileInfo, error) {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	base := strings.TrimSuffix(name, fileExtension)
	if base == name {
		return FileInfo{}, fmt.Errorf("invalid trace file name %q: missing %s extension", name, fileExtension)
	}
	sep := strings.LastIndex(base, fileNameSeparator)
	if sep <= 0 {
		return FileInfo{}, fmt.Errorf("invalid trace file name %q: missing %q separator", name, fileNameSeparator)
	}
	fi := FileInfo{Root: base[:sep]}
	rest := base[sep+len(fileNameSeparator):]

	// rest is {timestamp}_{outcome}[-{seq}]
	u := strings.LastIndexByte(rest, '_')
	if u < 0 {
		return FileInfo{}, fmt.Errorf("invalid trace file name %q: missing outcome", name)
	}
	outcome := rest[u+1:]
	if d := strings.LastIndexByte(outcome, '-'); d >= 0 {
		seq, err := strconv.Atoi(outcome[d+1:])
		if err != nil || seq <= 0 {
			return FileInfo{}, fmt.Errorf("invalid trace file name %q: invalid sequence number", name)
		}
		fi.Seq = seq
		outcome = outcome[:d]
	}
	switch Outcome(outcome) {
	case OutcomeSuccessful, OutcomeError, OutcomeUnknown:
		fi.Outcome = Outcome(outcome)
	default:
		return FileInfo{}, fmt.Errorf("invalid trace file name %q: unknown outcome %q", name, outcome)
	}
	ts, err := ParseTimestamp(rest[:u])
	if err != nil {
		return FileInfo{}, fmt.Errorf("invalid trace file name %q: %w", name, err)
	}
	fi.Timestamp = ts
	return fi, nil
}
