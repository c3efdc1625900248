package domain

// RawDocument represents opaque bytes read from a source file.
// It is the loader's output before normalisation.
type RawDocument struct {
	// URI is the original location (file path).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains loader-specific key-value pairs,
	// such as file size and modification time.
	Metadata map[string]any
}
