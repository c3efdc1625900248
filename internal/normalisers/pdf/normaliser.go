package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound indicates the pdftotext binary is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// Normaliser handles PDF documents by shelling out to pdftotext.
type Normaliser struct {
	runner driven.CommandRunner
}

// New creates a new PDF normaliser using the system pdftotext binary.
func New() *Normaliser {
	return &Normaliser{runner: ExecRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
// Used in tests to avoid the external binary.
func NewWithRunner(runner driven.CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format-specific normaliser
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return strings.Join([]string{
		"PDF extraction requires the pdftotext tool from poppler:",
		"  macOS:         brew install poppler",
		"  Debian/Ubuntu: apt install poppler-utils",
		"  Fedora:        dnf install poppler-utils",
	}, "\n")
}

// Normalise converts a PDF document to a normalised document.
// Page breaks reported by pdftotext (form feeds) are recorded as
// character offsets in Metadata["page_offsets"] so chunks can carry
// their page number.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	if err := CheckAvailable(); err != nil {
		return nil, err
	}

	// pdftotext reads from a file, so stage the bytes in a temp file.
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	// "-" sends extracted text to stdout. Layout mode keeps reading
	// order sane for multi-column documents.
	output, err := n.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", "-eol", "unix", tmpPath, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	content, pageOffsets := assemblePages(string(output))

	title := extractTitle(content, raw.URI)

	doc := domain.Document{
		ID:       uuid.New().String(),
		URI:      raw.URI,
		Title:    title,
		Content:  content,
		Pages:    len(pageOffsets),
		Metadata: copyMetadata(raw.Metadata),
		LoadedAt: time.Now(),
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["format"] = "pdf"
	doc.Metadata["page_offsets"] = pageOffsets

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// assemblePages splits pdftotext output on form feeds, cleans each
// page, and rejoins them recording the start offset of every page.
// Trailing empty pages (pdftotext emits a final form feed) are dropped.
func assemblePages(output string) (string, []int) {
	pages := strings.Split(output, "\f")

	// Drop trailing empty pages
	for len(pages) > 0 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}

	var builder strings.Builder
	offsets := make([]int, 0, len(pages))
	for i, page := range pages {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		offsets = append(offsets, builder.Len())
		builder.WriteString(cleanPage(page))
	}

	return builder.String(), offsets
}

// cleanPage trims trailing whitespace per line and collapses runs of
// blank lines. Paragraph breaks survive for boundary detection.
func cleanPage(page string) string {
	lines := strings.Split(page, "\n")
	var result []string
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		result = append(result, line)
	}
	return strings.TrimSpace(strings.Join(result, "\n"))
}

// extractTitle takes the first reasonable line of content as the title,
// falling back to the filename.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Skip lines too long to plausibly be a title
		if len(line) > 200 {
			continue
		}
		return line
	}

	filename := filepath.Base(uri)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the named command and returns its stdout.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s", err, msg)
		}
		return nil, err
	}
	return output, nil
}
