package ingest

import (
	"fmt"
	"strings"

	"github.com/cognicore/textclass/pkg/textclass/internalerr"
)

// Document is a labelled training example read from a content table
type Document struct {
	Text   string `json:"text"`
	Label  string `json:"label"`
	Source string `json:"source,omitempty"` // content table the row came from: post, comment, memo
}

// Validate checks if the document has required fields
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Label) == "" {
		return fmt.Errorf("%w: document label is required", internalerr.ErrInvalidInput)
	}

	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("%w: document text is required", internalerr.ErrInvalidInput)
	}

	return nil
}
