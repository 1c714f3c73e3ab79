package ingest

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"health-analysis-server/internal/config"
)

// Category buckets an upload by how the analysis pipeline treats it.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryDICOM    Category = "dicom"
)

// ProcessedFile is the per-file result of ingestion. ExtractedText is empty
// for binary formats; Metadata carries whatever was learned about the file.
type ProcessedFile struct {
	Filename      string
	OriginalName  string
	MimeType      string
	Size          int64
	Category      Category
	ExtractedText string
	Metadata      map[string]string
}

// Processor stores uploads on disk and extracts what it can from each file.
type Processor struct {
	dir     string
	maxSize int64
}

// NewProcessor creates a Processor and makes sure the upload directory exists.
func NewProcessor(cfg config.UploadConfig) (*Processor, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Processor{dir: cfg.Dir, maxSize: cfg.MaxSizeBytes}, nil
}

// ProcessAll ingests every file in the batch. A file that fails is logged and
// skipped; it never aborts the rest of the batch.
func (p *Processor) ProcessAll(headers []*multipart.FileHeader) []ProcessedFile {
	processed := make([]ProcessedFile, 0, len(headers))
	for _, header := range headers {
		file, err := p.processOne(header)
		if err != nil {
			log.Printf("skipping file %q: %v", header.Filename, err)
			continue
		}
		processed = append(processed, file)
	}
	return processed
}

func (p *Processor) processOne(header *multipart.FileHeader) (ProcessedFile, error) {
	if p.maxSize > 0 && header.Size > p.maxSize {
		return ProcessedFile{}, fmt.Errorf("file exceeds size limit (%d bytes)", header.Size)
	}

	src, err := header.Open()
	if err != nil {
		return ProcessedFile{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return ProcessedFile{}, fmt.Errorf("failed to read upload: %w", err)
	}

	mimeType := header.Header.Get("Content-Type")
	detected := mimetype.Detect(data)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detected.String()
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	category := categorize(mimeType, ext)

	storedName := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(p.dir, storedName), data, 0o644); err != nil {
		return ProcessedFile{}, fmt.Errorf("failed to store upload: %w", err)
	}

	file := ProcessedFile{
		Filename:     storedName,
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		Category:     category,
		Metadata: map[string]string{
			"detectedMime": detected.String(),
			"extension":    ext,
		},
	}

	if category == CategoryDocument && isTextual(mimeType, ext) && utf8.Valid(data) {
		file.ExtractedText = string(data)
	}

	return file, nil
}

// categorize maps a MIME type and extension onto an ingestion category.
// DICOM is checked first since some detectors report it as octet-stream.
func categorize(mimeType, ext string) Category {
	switch {
	case ext == ".dcm" || mimeType == "application/dicom":
		return CategoryDICOM
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case strings.HasPrefix(mimeType, "video/"):
		return CategoryVideo
	default:
		return CategoryDocument
	}
}

func isTextual(mimeType, ext string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch ext {
	case ".txt", ".md", ".csv", ".json":
		return true
	}
	return false
}
