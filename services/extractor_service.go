package services

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

func init() {
	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
		}
	}
}

// TextExtractor turns an uploaded file's bytes into plain text. A
// well-formed PDF with zero extractable text yields an empty string, not
// an error; only a file the reader cannot open at all is an error.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// UniPDFExtractor extracts embedded text page by page with UniPDF.
type UniPDFExtractor struct{}

// NewUniPDFExtractor creates the default PDF text extractor.
func NewUniPDFExtractor() *UniPDFExtractor {
	return &UniPDFExtractor{}
}

// ExtractText returns the concatenated text of every page. Pages whose
// extraction fails contribute nothing; the rest of the document is still
// processed.
func (e *UniPDFExtractor) ExtractText(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to read page count: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			log.Printf("EXTRACTOR WARN: could not load page %d: %v", i, err)
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			log.Printf("EXTRACTOR WARN: could not create extractor for page %d: %v", i, err)
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			log.Printf("EXTRACTOR WARN: could not extract text from page %d: %v", i, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}
