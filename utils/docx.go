package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
)

var ErrInvalidDocx = errors.New("not a valid .docx document")

// DocxText extracts the visible text of a .docx file, one line per paragraph.
func DocxText(data []byte) (string, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocx, err)
	}
	return strings.TrimSpace(text), nil
}
