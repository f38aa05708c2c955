// Package ingest converts uploaded files into the plain text the extractor mines.
//
// Text and markdown are decoded in full. Binary formats are not parsed; they
// produce a short description of the file instead and are marked Degraded, so
// a deck can still be seeded from the file name.
package ingest

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/conorfennell/flashmind/internal/extract"
)

const (
	TypeMarkdown = "text/markdown"
	TypePlain    = "text/plain"
	TypePDF      = "application/pdf"
	typeOctet    = "application/octet-stream"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Document is the decoded content of one uploaded file.
type Document struct {
	FileName    string
	ContentType string
	Size        int
	Text        string
	Degraded    bool
}

// Decode turns data into text. contentType is the type declared by the
// uploader and may be empty; the file extension and the content itself are
// used when it is missing or generic.
func Decode(fileName, contentType string, data []byte) Document {
	mediaType, charset := resolveContentType(fileName, contentType, data)
	doc := Document{
		FileName:    fileName,
		ContentType: mediaType,
		Size:        len(data),
	}

	switch {
	case mediaType == TypeMarkdown || mediaType == "text/x-markdown":
		doc.Text = markdownText(decodeText(data, charset))
	case strings.HasPrefix(mediaType, "text/"):
		doc.Text = strings.TrimSpace(decodeText(data, charset))
	case mediaType == TypePDF:
		doc.Text = describePDF(fileName, len(data))
		doc.Degraded = true
	case strings.HasPrefix(mediaType, "image/"):
		doc.Text = describeImage(fileName, len(data))
		doc.Degraded = true
	case strings.Contains(mediaType, "word") || strings.Contains(mediaType, "document"):
		doc.Text = describeWord(fileName, len(data))
		doc.Degraded = true
	default:
		doc.Text = describeUnsupported(fileName, mediaType)
		doc.Degraded = true
	}

	slog.Debug("decoded document",
		"file", fileName,
		"content_type", mediaType,
		"bytes", len(data),
		"chars", len(doc.Text),
		"degraded", doc.Degraded,
	)
	return doc
}

// Generate decodes data and extracts card candidates from it.
func Generate(fileName, contentType string, data []byte) (Document, []extract.Candidate) {
	doc := Decode(fileName, contentType, data)
	return doc, extract.Extract(doc.Text, fileName)
}

func resolveContentType(fileName, declared string, data []byte) (string, string) {
	mediaType, params, _ := mime.ParseMediaType(declared)
	charset := params["charset"]

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".md", ".markdown":
		mediaType = TypeMarkdown
	case ".txt":
		if mediaType == "" || mediaType == typeOctet {
			mediaType = TypePlain
		}
	}

	if mediaType == "" || mediaType == typeOctet || (strings.HasPrefix(mediaType, "text/") && charset == "") {
		detected, detectedParams, err := mime.ParseMediaType(mimetype.Detect(data).String())
		if err == nil {
			if mediaType == "" || mediaType == typeOctet {
				mediaType = detected
			}
			if charset == "" {
				charset = detectedParams["charset"]
			}
		}
	}
	return mediaType, charset
}

// decodeText converts data from charset to UTF-8. Unknown charsets are read as UTF-8.
func decodeText(data []byte, charset string) string {
	if charset != "" && !strings.EqualFold(charset, "utf-8") {
		if enc, err := htmlindex.Get(charset); err == nil {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				data = out
			}
		}
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return strings.ToValidUTF8(string(data), "�")
}

func titleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

func describePDF(fileName string, size int) string {
	return fmt.Sprintf(`PDF Document: %s

This %s PDF file was stored, but its text could not be extracted automatically.

Common causes:
- The PDF contains scanned images instead of searchable text
- The PDF is password-protected or encrypted
- The document uses embedded fonts the reader cannot map

The flashcards will be generated based on the file name and general study questions related to: %s`,
		fileName, humanize.Bytes(uint64(size)), titleFromFileName(fileName))
}

func describeImage(fileName string, size int) string {
	return fmt.Sprintf(`Image File: %s

This is a %s image file. Text inside images needs optical character recognition before it can be studied.

Typical content that could be extracted:
- Handwritten notes
- Printed text from slides or documents
- Diagrams with labels

Flashcards will be generated based on the file name: %s`,
		fileName, humanize.Bytes(uint64(size)), titleFromFileName(fileName))
}

func describeWord(fileName string, size int) string {
	return fmt.Sprintf(`Word Document: %s

This is a %s Word document. Converting it to text or markdown before uploading gives the best flashcards.

Content a document parser would extract:
- Paragraph text
- Headings and subheadings
- Lists and bullet points
- Table contents

Flashcards will be generated based on the file name and document structure: %s`,
		fileName, humanize.Bytes(uint64(size)), titleFromFileName(fileName))
}

func describeUnsupported(fileName, mediaType string) string {
	return fmt.Sprintf("File: %s\n\nThis file type (%s) requires specialized processing. Flashcards will be generated based on the file name.",
		fileName, mediaType)
}
