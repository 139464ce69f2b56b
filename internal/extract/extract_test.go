package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract_TextFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "about.txt", []byte("I build distributed systems."))

	text, sourceType, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "I build distributed systems." {
		t.Errorf("text = %q", text)
	}
	if sourceType != SourceTypeText {
		t.Errorf("sourceType = %q, want %q", sourceType, SourceTypeText)
	}
}

func TestExtract_MarkdownFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "faq.md", []byte("# FAQ\n\nAsk away."))

	_, sourceType, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if sourceType != SourceTypeText {
		t.Errorf("sourceType = %q, want %q", sourceType, SourceTypeText)
	}
}

func TestExtract_InvalidUTF8Replaced(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "raw.txt", []byte{'o', 'k', 0xff, '!'})

	text, _, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "ok�!" {
		t.Errorf("text = %q, want replacement character for invalid byte", text)
	}
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "photo.jpg", []byte{0xff, 0xd8})

	_, _, err := NewExtractor().Extract(path)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Extract() error = %v, want ErrUnsupported", err)
	}
}

func TestExtract_CorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.pdf", []byte("not really a pdf"))

	_, _, err := NewExtractor().Extract(path)
	if err == nil {
		t.Fatal("Extract() on corrupt PDF succeeded, want error")
	}
	if errors.Is(err, ErrUnsupported) {
		t.Fatal("corrupt PDF should be a processing error, not ErrUnsupported")
	}
}

func TestExtract_MissingFile(t *testing.T) {
	_, _, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Fatal("Extract() on missing file succeeded, want error")
	}
}
