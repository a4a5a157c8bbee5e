package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString("<w:p>")
		// split each paragraph over two runs, the way editors do
		half := len(p) / 2
		body.WriteString(`<w:r><w:t xml:space="preserve">` + p[:half] + `</w:t></w:r>`)
		body.WriteString(`<w:r><w:t>` + p[half:] + `</w:t></w:r>`)
		body.WriteString("</w:p>")
	}
	body.WriteString("<w:p></w:p></w:body></w:document>")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseDOCX(t *testing.T) {
	raw := buildDOCX(t,
		"BAB I PENDAHULUAN",
		"Penelitian ini bertujuan untuk mengembangkan sistem informasi.",
	)

	paragraphs, err := parseDOCX(raw)
	if err != nil {
		t.Fatalf("parseDOCX failed: %v", err)
	}
	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %q", paragraphs)
	}
	if paragraphs[1] != "Penelitian ini bertujuan untuk mengembangkan sistem informasi." {
		t.Errorf("runs were not joined: %q", paragraphs[1])
	}
}

func TestParseDOCX_Errors(t *testing.T) {
	if _, err := parseDOCX([]byte("not a zip")); err == nil {
		t.Error("expected error for non-zip input")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("word/styles.xml")
	_ = zw.Close()
	if _, err := parseDOCX(buf.Bytes()); err == nil {
		t.Error("expected error when document.xml is missing")
	}

	if _, err := parseDOCX(buildDOCX(t)); !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText for empty document, got %v", err)
	}
}

func TestLoader_LoadDOCXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skripsi.docx")
	if err := os.WriteFile(path, buildDOCX(t, "Paragraf pertama.", "Paragraf kedua."), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewLoader(fetchConfig(false)).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Paragraphs) != 2 || doc.Title != "skripsi" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestLoader_FetchDOCX(t *testing.T) {
	raw := buildDOCX(t, "Isi dokumen daring.")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", docxMIME)
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	doc, err := NewLoader(fetchConfig(false)).Load(context.Background(), server.URL+"/naskah")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Paragraphs) != 1 || doc.Paragraphs[0] != "Isi dokumen daring." {
		t.Errorf("unexpected paragraphs: %q", doc.Paragraphs)
	}
}

func TestParsePDF_Invalid(t *testing.T) {
	if _, err := parsePDF([]byte("%PDF-1.4 truncated")); err == nil {
		t.Error("expected error for a truncated pdf")
	}
}

func TestPDFParagraphs(t *testing.T) {
	content := strings.Join([]string{
		"Penelitian ini bertujuan untuk mengembangkan sistem informasi",
		"akademik yang dapat digunakan oleh mahasiswa dan dosen untuk",
		"mengelola data perkuliahan.",
		"Metode yang digunakan adalah waterfall dengan tahapan analisis",
		"kebutuhan, desain, implementasi, dan pengujian sistem secara",
		"bertahap sampai selesai.",
		"",
		"Hasil   penelitian menunjukkan peningkatan.",
	}, "\n")

	got := pdfParagraphs(content)
	if len(got) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "Penelitian ini") || !strings.HasSuffix(got[0], "data perkuliahan.") {
		t.Errorf("unexpected first paragraph: %q", got[0])
	}
	if got[2] != "Hasil penelitian menunjukkan peningkatan." {
		t.Errorf("whitespace not collapsed: %q", got[2])
	}
}

func TestKindFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		path        string
		want        docKind
	}{
		{"text/html; charset=utf-8", "/a", kindHTML},
		{"application/xhtml+xml", "/a", kindHTML},
		{"application/pdf", "/a", kindPDF},
		{docxMIME, "/a", kindDOCX},
		{"application/octet-stream", "/berkas.pdf", kindPDF},
		{"text/plain", "/berkas.pdf", kindText},
		{"", "/halaman.htm", kindHTML},
	}
	for _, tt := range tests {
		if got := kindFromContentType(tt.contentType, tt.path); got != tt.want {
			t.Errorf("kindFromContentType(%q, %q) = %d, want %d", tt.contentType, tt.path, got, tt.want)
		}
	}
}
