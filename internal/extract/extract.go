// Package extract reads checker input from .txt, .md, .pdf and .docx files.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	mimeText     = "text/plain"
	mimeMarkdown = "text/markdown"
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip      = "application/zip"
	mimeBinary   = "application/octet-stream"

	docxBody = "word/document.xml"
)

// maxFileSize bounds what the checker will read from disk.
const maxFileSize = 20 << 20

// ErrNoText is returned for documents that parse but hold no text layer,
// such as scanned PDFs.
var ErrNoText = errors.New("document contains no extractable text")

// ExtractFile reads path and returns its text. The format is taken from the
// extension, falling back to content sniffing for zip and pdf payloads.
func ExtractFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("extract file %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return "", fmt.Errorf("extract file %s: %d bytes exceeds limit of %d", path, info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract file %s: %w", path, err)
	}

	text, err := ExtractTextFromBytes(ctx, data, mimeForPath(path), filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("extract file %s: %w", path, err)
	}
	return text, nil
}

// ExtractTextFromBytes extracts text from an in-memory payload.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	kind := detectMimeType(mimeType, fileName, data)
	switch kind {
	case mimeText, mimeMarkdown:
		if !utf8.Valid(data) {
			return "", errors.New("text file is not valid UTF-8")
		}
		text = string(data)
	case mimePDF:
		text, err = extractPDF(ctx, data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("unsupported mime type: %s", kind)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" && (kind == mimePDF || kind == mimeDOCX) {
		return "", ErrNoText
	}
	return text, nil
}

func mimeForPath(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".text", "":
		return mimeText
	case ".md", ".markdown":
		return mimeMarkdown
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return mimeBinary
	}
}

// detectMimeType trusts the declared type unless it is a generic container,
// in which case the payload decides.
func detectMimeType(declared, fileName string, data []byte) string {
	clean, _, _ := strings.Cut(declared, ";")
	clean = strings.ToLower(strings.TrimSpace(clean))
	if clean != mimeZip && clean != mimeBinary {
		return clean
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return mimePDF
	}
	if zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err == nil && zipEntry(zr, docxBody) != nil {
		return mimeDOCX
	}
	if strings.EqualFold(filepath.Ext(fileName), ".docx") {
		return mimeDOCX
	}
	return clean
}

// extractPDF reads the text layer page by page. The pdf package panics on
// some malformed inputs, so panics become errors.
func extractPDF(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		content, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	body := zipEntry(zr, docxBody)
	if body == nil {
		return "", errors.New("read docx: word/document.xml not found")
	}
	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer rc.Close()
	return docxText(io.LimitReader(rc, maxFileSize))
}

// docxText keeps run text (w:t), turns w:tab into a tab and w:br, w:cr and
// paragraph ends into newlines. Deleted tracked-change text lives in
// w:delText and is dropped.
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    strings.Builder
		inText bool
	)
	newline := func() {
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				newline()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				newline()
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

func zipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return f
		}
	}
	return nil
}
