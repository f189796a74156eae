package common

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatingFileWriter appends to <Prefix><date><Suffix> inside Dir, switching to
// a new file when the date changes and keeping at most MaxFiles of them.
type RotatingFileWriter struct {
	Dir      string
	Prefix   string
	Suffix   string
	MaxFiles int

	mu          sync.Mutex
	currentDate string
	file        *os.File
	now         func() time.Time
}

// NewRotatingFileWriter opens today's file immediately so a bad directory is
// reported at startup rather than on the first write.
func NewRotatingFileWriter(dir, prefix, suffix string, maxFiles int) (*RotatingFileWriter, error) {
	w := &RotatingFileWriter{
		Dir:      dir,
		Prefix:   prefix,
		Suffix:   suffix,
		MaxFiles: maxFiles,
		now:      time.Now,
	}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// CurrentPath is the file being written to.
func (w *RotatingFileWriter) CurrentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return filepath.Join(w.Dir, w.Prefix+w.currentDate+w.Suffix)
}

func (w *RotatingFileWriter) rotateIfNeeded() error {
	today := w.now().Format("2006-01-02")
	if w.currentDate == today && w.file != nil {
		return nil
	}

	if w.file != nil {
		w.file.Close()
	}

	file, err := os.OpenFile(
		filepath.Join(w.Dir, w.Prefix+today+w.Suffix),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return err
	}

	w.file = file
	w.currentDate = today

	w.cleanupOldFiles()

	return nil
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)

func (w *RotatingFileWriter) cleanupOldFiles() {
	if w.MaxFiles <= 0 {
		return
	}

	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, w.Prefix) && strings.HasSuffix(name, w.Suffix) {
			files = append(files, name)
		}
	}

	if len(files) <= w.MaxFiles {
		return
	}

	// dates sort lexically
	sort.Strings(files)

	for i := 0; i < len(files)-w.MaxFiles; i++ {
		os.Remove(filepath.Join(w.Dir, files[i]))
	}
}
