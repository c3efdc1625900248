package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// mimeByExtension maps supported file extensions to MIME types.
// Only document formats the normaliser registry handles are listed;
// anything else is skipped during the walk.
var mimeByExtension = map[string]string{
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
}

// Connector walks a directory tree and produces raw documents for
// every supported file. It can also watch the tree for changes.
type Connector struct {
	rootPath string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a filesystem connector rooted at the given path.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath}
}

// SupportedExtensions returns the file extensions the walker picks up.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(mimeByExtension))
	for ext := range mimeByExtension {
		exts = append(exts, ext)
	}
	return exts
}

// MIMETypeFor returns the MIME type for a file path, or false when the
// extension is not a supported document format.
func MIMETypeFor(path string) (string, bool) {
	mime, ok := mimeByExtension[strings.ToLower(filepath.Ext(path))]
	return mime, ok
}

// Scan walks the root directory and streams a RawDocument per
// supported file. Unreadable files are reported on the error channel
// and skipped; the walk continues. Both channels close when the walk
// finishes or the context is cancelled.
func (c *Connector) Scan(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	// Every load error must reach the consumer; sends block until the
	// consumer drains or the context is cancelled.
	sendErr := func(err error) {
		select {
		case errs <- err:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(docs)
		defer close(errs)

		info, err := os.Stat(c.rootPath)
		if err != nil {
			sendErr(fmt.Errorf("folder %q does not exist: %w", c.rootPath, err))
			return
		}
		if !info.IsDir() {
			sendErr(fmt.Errorf("%q is not a directory", c.rootPath))
			return
		}

		walkErr := filepath.WalkDir(c.rootPath, func(path string, entry fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				sendErr(fmt.Errorf("walk %s: %w", path, err))
				return nil
			}

			name := entry.Name()
			if entry.IsDir() {
				// Skip hidden directories entirely
				if strings.HasPrefix(name, ".") && path != c.rootPath {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return nil
			}

			raw, ok, err := c.loadFile(path)
			if err != nil {
				sendErr(err)
				return nil
			}
			if !ok {
				logger.Debug("skipping unsupported file: %s", path)
				return nil
			}

			select {
			case docs <- raw:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if walkErr != nil && walkErr != ctx.Err() {
			sendErr(walkErr)
		}
	}()

	return docs, errs
}

// Load reads a single supported file as a raw document.
func (c *Connector) Load(path string) (domain.RawDocument, error) {
	raw, ok, err := c.loadFile(path)
	if err != nil {
		return domain.RawDocument{}, err
	}
	if !ok {
		return domain.RawDocument{}, domain.ErrUnsupportedType
	}
	return raw, nil
}

// loadFile reads a file and wraps it as a RawDocument. The second
// return is false for unsupported extensions.
func (c *Connector) loadFile(path string) (domain.RawDocument, bool, error) {
	mime, ok := MIMETypeFor(path)
	if !ok {
		return domain.RawDocument{}, false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RawDocument{}, true, fmt.Errorf("read %s: %w", path, err)
	}

	filename := filepath.Base(path)
	return domain.RawDocument{
		URI:      path,
		MIMEType: mime,
		Content:  content,
		Metadata: map[string]any{
			"filename":  filename,
			"extension": strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		},
	}, true, nil
}

// Watch emits a RawDocument whenever a supported file under the root
// is created or modified. Removals are not emitted; index cleanup is a
// separate operation. The channel closes when the context is
// cancelled.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("connector is closed")
	}

	if _, err := os.Stat(c.rootPath); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the root and every existing subdirectory. fsnotify does
	// not recurse on its own.
	err = filepath.WalkDir(c.rootPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != c.rootPath {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, err)
	}

	c.watcher = watcher
	changes := make(chan domain.RawDocument)

	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}

				// New directories join the watch set
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if event.Has(fsnotify.Create) && !strings.HasPrefix(filepath.Base(event.Name), ".") {
						watcher.Add(event.Name)
					}
					continue
				}

				raw, ok, err := c.loadFile(event.Name)
				if err != nil {
					logger.Warn("watch: %v", err)
					continue
				}
				if !ok {
					continue
				}

				select {
				case changes <- raw:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error: %v", err)
			}
		}
	}()

	return changes, nil
}

// Close releases the watcher. Safe to call multiple times.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
