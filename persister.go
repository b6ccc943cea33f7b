package flowtrace

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// DefaultLogDir is where the default Persister writes traces.
const DefaultLogDir = "logs"

// maxCollisions bounds the search for a free file name.
const maxCollisions = 1000

// PersistError is returned from FilePersister.Persist if a trace could not
// be written.
//
// This error can be checked for equality using errors.Is(err, &PersistError{}).
type PersistError struct {
	// URL is the directory or file that could not be written.
	URL        string
	Underlying error
}

func (e *PersistError) Error() string {
	msg := fmt.Sprintf("couldn't persist trace to %q", e.URL)
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *PersistError) Is(target error) bool {
	//nolint:errorlint
	_, ok := target.(*PersistError)
	return ok
}

func (e *PersistError) Unwrap() error { return e.Underlying }

// TraceFile is a persisted trace, as listed by FilePersister.List.
type TraceFile struct {
	FileInfo
	URL string
}

// FilePersister writes each trace as a JSON document to its own file under a
// base directory, which is created when needed. It works with any storage
// afs supports, e.g. "mem://localhost/logs" in tests.
type FilePersister struct {
	baseURL string
	fs      afs.Service
	// mu serializes picking a free file name and writing to it.
	mu sync.Mutex
}

var _ Persister = &FilePersister{}

// NewFilePersister returns a FilePersister writing to baseURL. Relative paths
// are resolved against the working directory.
func NewFilePersister(baseURL string) *FilePersister {
	if baseURL == "" {
		baseURL = DefaultLogDir
	}
	return &FilePersister{
		baseURL: url.Normalize(baseURL, file.Scheme),
		fs:      afs.New(),
	}
}

// WithFS makes p use the given afs.Service.
func (p *FilePersister) WithFS(fs afs.Service) *FilePersister {
	p.fs = fs
	return p
}

// BaseURL returns the normalized directory traces are written to.
func (p *FilePersister) BaseURL() string { return p.baseURL }

// Persist implements Persister.
func (p *FilePersister) Persist(ctx context.Context, doc *Document, rootName string, outcome Outcome) error {
	_, err := p.Write(ctx, doc, rootName, outcome)
	return err
}

// Write is like Persist, but also returns the URL of the written file.
func (p *FilePersister) Write(ctx context.Context, doc *Document, rootName string, outcome Outcome) (string, error) {
	data, err := MarshalDocument(doc)
	if err != nil {
		return "", &PersistError{URL: p.baseURL, Underlying: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureDir(ctx); err != nil {
		return "", &PersistError{URL: p.baseURL, Underlying: err}
	}

	var ts Timestamp
	if root := doc.Root(); root != nil {
		ts = root.Timestamp
	}
	for seq := 0; seq < maxCollisions; seq++ {
		fileURL := url.Join(p.baseURL, FileName(rootName, ts, outcome, seq))
		exists, err := p.fs.Exists(ctx, fileURL)
		if err != nil {
			return "", &PersistError{URL: fileURL, Underlying: err}
		}
		if exists {
			continue
		}
		if err := p.fs.Upload(ctx, fileURL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return "", &PersistError{URL: fileURL, Underlying: err}
		}
		return fileURL, nil
	}
	return "", &PersistError{
		URL:        url.Join(p.baseURL, FileName(rootName, ts, outcome, 0)),
		Underlying: fmt.Errorf("%d files with the same name exist already", maxCollisions),
	}
}

func (p *FilePersister) ensureDir(ctx context.Context) error {
	exists, err := p.fs.Exists(ctx, p.baseURL)
	if err != nil || exists {
		return err
	}
	if err := p.fs.Create(ctx, p.baseURL, file.DefaultDirOsMode, true); err != nil {
		// Another process might have created it in the meantime
		if exists, _ := p.fs.Exists(ctx, p.baseURL); exists {
			return nil
		}
		return err
	}
	return nil
}

// List returns the traces under the base directory, oldest first. Files not
// named like traces are skipped. A missing directory yields no traces.
func (p *FilePersister) List(ctx context.Context) ([]TraceFile, error) {
	exists, err := p.fs.Exists(ctx, p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check %q: %w", p.baseURL, err)
	}
	if !exists {
		return nil, nil
	}
	objects, err := p.fs.List(ctx, p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", p.baseURL, err)
	}

	var files []TraceFile
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), fileExtension) {
			continue
		}
		fi, err := ParseFileName(object.Name())
		if err != nil {
			continue
		}
		files = append(files, TraceFile{FileInfo: fi, URL: object.URL()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		ti, tj := files[i].Timestamp.Time(), files[j].Timestamp.Time()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		if files[i].Root != files[j].Root {
			return files[i].Root < files[j].Root
		}
		return files[i].Seq < files[j].Seq
	})
	return files, nil
}

// Load reads the trace at fileURL. A bare file name is resolved against the
// base directory.
func (p *FilePersister) Load(ctx context.Context, fileURL string) (*Document, error) {
	if !strings.Contains(fileURL, "/") {
		fileURL = url.Join(p.baseURL, fileURL)
	}
	data, err := p.fs.DownloadWithURL(ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %q: %w", fileURL, err)
	}
	doc, err := UnmarshalDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode trace %q: %w", fileURL, err)
	}
	return doc, nil
}
