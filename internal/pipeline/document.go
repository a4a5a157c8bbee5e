package pipeline

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ppiankov/parafrasa/internal/worker"
)

// ErrNoText is returned when a document has no extractable text
var ErrNoText = errors.New("no extractable text")

type docKind int

const (
	kindText docKind = iota
	kindHTML
	kindDOCX
	kindPDF
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func kindFromExt(path string) docKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return kindHTML
	case ".docx":
		return kindDOCX
	case ".pdf":
		return kindPDF
	}
	return kindText
}

func kindFromContentType(contentType, path string) docKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return kindFromExt(path)
	}
	switch {
	case strings.Contains(mediaType, "html"):
		return kindHTML
	case mediaType == "application/pdf":
		return kindPDF
	case mediaType == docxMIME:
		return kindDOCX
	case mediaType == "application/octet-stream":
		return kindFromExt(path)
	}
	return kindText
}

func parse(data []byte, kind docKind) (*Document, error) {
	var (
		paragraphs []string
		err        error
	)
	switch kind {
	case kindHTML:
		return parseHTML(data)
	case kindDOCX:
		paragraphs, err = parseDOCX(data)
	case kindPDF:
		paragraphs, err = parsePDF(data)
	default:
		paragraphs, err = worker.ReadParagraphs(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	return &Document{Paragraphs: paragraphs}, nil
}

// parseDOCX returns the text of every non-empty w:p element in word/document.xml
func parseDOCX(raw []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("docx: word/document.xml not found")
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer func() { _ = rc.Close() }()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	flush := func() {
		if text := strings.Join(strings.Fields(current.String()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}

	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString(" ")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	flush()

	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("docx: %w", ErrNoText)
	}
	return paragraphs, nil
}

// parsePDF extracts page text and regroups the layout lines into paragraphs
func parsePDF(raw []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var paragraphs []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		paragraphs = append(paragraphs, pdfParagraphs(content)...)
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("pdf: %w", ErrNoText)
	}
	return paragraphs, nil
}

// pdfParagraphs joins layout lines. A paragraph ends at a blank line, or at a
// line that closes a sentence well short of the widest line on the page.
func pdfParagraphs(content string) []string {
	lines := strings.Split(content, "\n")
	widest := 0
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
		widest = max(widest, len([]rune(lines[i])))
	}

	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range lines {
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
		if endsSentence(line) && len([]rune(line))*10 < widest*7 {
			flush()
		}
	}
	flush()
	return paragraphs
}

func endsSentence(line string) bool {
	line = strings.TrimRight(line, `"')]`)
	return strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") ||
		strings.HasSuffix(line, "?") || strings.HasSuffix(line, ":")
}
