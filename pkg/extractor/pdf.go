package extractor

import (
	"bytes"
	"fmt"

	"doc-qa-be/pkg/apperr"

	"github.com/ledongthuc/pdf"
)

// extractPDFPages returns the plain text of each page, skipping pages whose
// text layer cannot be decoded. A PDF that cannot be opened at all is
// corrupt; content loss is only accepted page by page, never silently for
// the whole document.
func extractPDFPages(data []byte) (pages []string, err error) {
	// The pdf library panics on some malformed inputs instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = apperr.NewExtractionError(apperr.KindCorruptDocument,
				fmt.Errorf("parse pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.NewExtractionError(apperr.KindCorruptDocument,
			fmt.Errorf("open pdf: %w", err))
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
