package port

// Parser converts raw document bytes into plain text.
type Parser interface {
	// Parse extracts plain text from raw bytes of the declared content
	// type. Unknown types fail with domain.ErrUnsupportedFormat.
	Parse(raw []byte, contentType string) (string, error)
}
