// Package export renders a proposal as a printable PDF.
package export

import "errors"

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates PDF export runtime dependencies are
// unavailable (no chromium on the host).
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
