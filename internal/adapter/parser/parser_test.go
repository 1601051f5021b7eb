package parser

import (
	"errors"
	"testing"

	"docqa/internal/domain"
)

func TestParsePlainText(t *testing.T) {
	p := NewDocumentParser()

	text, err := p.Parse([]byte("hello world"), "text/plain")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestParseMarkdownWithCharset(t *testing.T) {
	p := NewDocumentParser()

	text, err := p.Parse([]byte("# Title\n\nBody."), "text/markdown; charset=utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if text != "# Title\n\nBody." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	p := NewDocumentParser()

	_, err := p.Parse([]byte{0xff, 0xfe, 0x00}, "text/plain")
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseUnknownType(t *testing.T) {
	p := NewDocumentParser()

	_, err := p.Parse([]byte("data"), "application/zip")
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseMalformedPDF(t *testing.T) {
	p := NewDocumentParser()

	_, err := p.Parse([]byte("not a pdf at all"), "application/pdf")
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestContentTypeForPath(t *testing.T) {
	cases := map[string]string{
		"notes.txt":    "text/plain",
		"README.md":    "text/markdown",
		"paper.PDF":    "application/pdf",
		"image.png":    "",
		"no-extension": "",
	}
	for path, want := range cases {
		if got := ContentTypeForPath(path); got != want {
			t.Errorf("ContentTypeForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
