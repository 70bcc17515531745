package index

import (
	"fmt"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
)

// Validate checks structural integrity. An index with neither documents
// nor postings is corrupt, as is any posting whose document is missing.
// Document records must pass CheckDocuments. Validate never modifies idx.
func Validate(idx *InvertedIndex) error {
	if idx == nil {
		return ierrors.Corruption("index is nil", nil)
	}
	if err := CheckDocuments(idx); err != nil {
		return err
	}
	if len(idx.Documents) == 0 && len(idx.Postings) == 0 {
		return ierrors.Corruption("index is empty", nil).
			WithDetail("tool", idx.ToolType)
	}
	for term, list := range idx.Postings {
		for _, p := range list {
			if _, ok := idx.Documents[p.DocumentID]; !ok {
				return ierrors.Corruption(
					fmt.Sprintf("posting for term %q references missing document %s", term, p.DocumentID), nil).
					WithDetail("tool", idx.ToolType)
			}
		}
	}
	return nil
}

// CheckDocuments reports a null document record, or one whose id differs
// from its key, as corruption. Every loaded index must pass it before the
// documents are dereferenced.
func CheckDocuments(idx *InvertedIndex) error {
	for key, doc := range idx.Documents {
		if doc == nil {
			return ierrors.Corruption(fmt.Sprintf("document %s is null", key), nil).
				WithDetail("tool", idx.ToolType)
		}
		if doc.ID != key {
			return ierrors.Corruption(
				fmt.Sprintf("document stored under %s has id %q", key, doc.ID), nil).
				WithDetail("tool", idx.ToolType)
		}
	}
	return nil
}
