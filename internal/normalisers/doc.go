// Package normalisers converts raw document bytes into plain text.
//
// Each sub-package handles one format family (pdf, docx, html,
// markdown, plaintext) and registers itself with the Registry, which
// dispatches by MIME type and priority. Unsupported formats surface
// domain.ErrUnsupportedType so the ingestion pipeline can skip the
// file and continue.
package normalisers
