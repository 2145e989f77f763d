package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrNoText      = errors.New("no text found")
	ErrTooLarge    = errors.New("document too large")
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Detect sniffs the content and falls back to the file extension for DOCX,
// which some writers produce as a plain zip archive.
func Detect(data []byte, filename string) string {
	mt := mimetype.Detect(data)

	switch {
	case mt.Is(MimePDF):
		return MimePDF
	case mt.Is(MimeDOCX):
		return MimeDOCX
	case mt.Is("application/zip") && strings.HasSuffix(strings.ToLower(filename), ".docx"):
		return MimeDOCX
	default:
		return mt.String()
	}
}

// Extract returns the plain text of a PDF or DOCX document along with the
// detected content type.
func Extract(data []byte, filename string) (string, string, error) {
	contentType := Detect(data, filename)

	var (
		text string
		err  error
	)

	switch contentType {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", contentType, ErrUnsupported
	}

	if err != nil {
		return "", contentType, fmt.Errorf("parse %s: %w", contentType, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", contentType, ErrNoText
	}
	return text, contentType, nil
}
