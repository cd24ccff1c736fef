package interrupts

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// AccessError reports that the interrupt table could not be read at all.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	msg := fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
	if errors.Is(e.Err, fs.ErrPermission) {
		msg += " (try running as root)"
	}
	return msg
}

func (e *AccessError) Unwrap() error { return e.Err }

// Provider supplies the raw text of the interrupt table, one call per tick.
type Provider interface {
	Snapshot() ([]byte, error)
	Path() string
}

// FileProvider reads the table from a file on an afero filesystem.
type FileProvider struct {
	fs   afero.Fs
	path string
}

// NewFileProvider reads <procRoot>/interrupts from fsys.
func NewFileProvider(fsys afero.Fs, procRoot string) *FileProvider {
	return &FileProvider{fs: fsys, path: filepath.Join(procRoot, "interrupts")}
}

func (p *FileProvider) Snapshot() ([]byte, error) { return afero.ReadFile(p.fs, p.path) }

func (p *FileProvider) Path() string { return p.path }

// Reader parses snapshots from a Provider.
type Reader struct {
	src Provider
	log logrus.FieldLogger
}

func NewReader(src Provider, log logrus.FieldLogger) *Reader {
	return &Reader{src: src, log: log}
}

// Read fetches and parses one snapshot. The only error it returns is
// *AccessError; bad lines are logged and dropped.
func (r *Reader) Read() (Table, error) {
	raw, err := r.src.Snapshot()
	if err != nil {
		return Table{}, &AccessError{Path: r.src.Path(), Err: err}
	}
	t := Parse(string(raw))
	for _, s := range t.Skipped {
		r.log.WithFields(logrus.Fields{
			"line":   s.Line,
			"reason": s.Reason,
		}).Debugf("skipping interrupt line %q", s.Text)
	}
	return t, nil
}
