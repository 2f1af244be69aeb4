package services

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"cavision/internal/llm"
	"cavision/utils"

	"github.com/gabriel-vasile/mimetype"
)

const MaxUploadBytes int64 = 5 << 20

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETXT  = "text/plain"
)

var documentExtensions = map[string]string{
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
	".txt":  MIMETXT,
}

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// Document is an uploaded file whose type has been checked.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ReadUpload reads a multipart file, rejecting it early when the header already shows it is too large.
func ReadUpload(fh *multipart.FileHeader, max int64) (string, []byte, error) {
	if fh.Size > max {
		return "", nil, ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > max {
		return "", nil, ErrFileTooLarge
	}
	return fh.Header.Get("Content-Type"), data, nil
}

// DetectDocument accepts PDF, DOCX and TXT study material. The extension picks
// the type; the declared type and the content must agree with it.
func DetectDocument(name, declared string, data []byte, max int64) (*Document, error) {
	if int64(len(data)) > max {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, invalid("file is empty")
	}

	kind, ok := documentExtensions[strings.ToLower(filepath.Ext(name))]
	if !ok {
		// Attachments from data URIs have no file name.
		kind = baseType(declared)
	}
	if kind != MIMEPDF && kind != MIMEDOCX && kind != MIMETXT {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, name+" "+kind)
	}
	if d := baseType(declared); d != "" && d != "application/octet-stream" && d != kind {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, d)
	}
	if !sniffDocument(kind, data) {
		return nil, fmt.Errorf("%w: content is not %s", ErrUnsupportedFile, kindName(kind))
	}
	return &Document{Name: name, MIMEType: kind, Data: data}, nil
}

// DetectImage accepts PNG, JPEG, WebP and GIF by content.
func DetectImage(data []byte, max int64) (string, error) {
	if int64(len(data)) > max {
		return "", ErrFileTooLarge
	}
	ct := baseType(mimetype.Detect(data).String())
	if !imageTypes[ct] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, ct)
	}
	return ct, nil
}

func baseType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

// sniffDocument reports whether the content is kind or one of its subtypes,
// so CSV or JSON still counts as plain text while an xlsx never counts as docx.
func sniffDocument(kind string, data []byte) bool {
	if kind == MIMETXT && !utf8.Valid(data) {
		return false
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(kind) {
			return true
		}
	}
	return false
}

func kindName(kind string) string {
	switch kind {
	case MIMEPDF:
		return "a PDF"
	case MIMEDOCX:
		return "a DOCX document"
	case MIMETXT:
		return "plain text"
	}
	return kind
}

// Parts turns the document into model input. Text formats are inlined, PDFs
// travel as attachments.
func (d *Document) Parts(label string) ([]llm.Part, error) {
	switch d.MIMEType {
	case MIMETXT:
		return []llm.Part{llm.TextPart(label + "\n" + string(d.Data))}, nil
	case MIMEDOCX:
		text, err := utils.DocxText(d.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, invalid("document has no text")
		}
		return []llm.Part{llm.TextPart(label + "\n" + text)}, nil
	default:
		return []llm.Part{llm.TextPart(label), llm.DataPart(d.MIMEType, d.Data)}, nil
	}
}
