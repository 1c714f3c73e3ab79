package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"health-analysis-server/internal/analysis"
)

// FileRecord describes one processed upload attached to a health report.
// ExtractedText is only present for file types the ingestion step can read.
type FileRecord struct {
	Filename      string            `json:"filename"`
	OriginalName  string            `json:"originalName"`
	MimeType      string            `json:"mimeType"`
	Size          int64             `json:"size"`
	Category      string            `json:"category"`
	ExtractedText string            `json:"extractedText,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	ThumbnailPath string            `json:"thumbnailPath,omitempty"`
}

// FileRecords is stored as a JSON column.
type FileRecords []FileRecord

// Value implements driver.Valuer for the JSON column.
func (f FileRecords) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for the JSON column.
func (f *FileRecords) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, f)
}

// StoredAnalysis wraps the generated assessment so gorm can persist it as JSON.
type StoredAnalysis analysis.HealthAssessmentReport

// Value implements driver.Valuer for the JSON column.
func (a StoredAnalysis) Value() (driver.Value, error) {
	return json.Marshal(analysis.HealthAssessmentReport(a))
}

// Scan implements sql.Scanner for the JSON column.
func (a *StoredAnalysis) Scan(value interface{}) error {
	if value == nil {
		*a = StoredAnalysis{}
		return nil
	}
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, (*analysis.HealthAssessmentReport)(a))
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// HealthReport is one persisted analysis: the raw input a user submitted plus
// the structured assessment derived from it. Owned by exactly one user and
// immutable after creation except for deletion.
type HealthReport struct {
	BaseModel
	UserID         string         `gorm:"size:36;index" json:"userId"`
	PatientName    string         `gorm:"size:100;index" json:"patientName"`
	PatientAge     string         `gorm:"size:20" json:"patientAge"`
	PatientGender  string         `gorm:"size:20" json:"patientGender,omitempty"`
	ExamDate       string         `gorm:"size:50" json:"examDate"`
	ReportData     string         `gorm:"type:text" json:"reportData"`
	UploadedFiles  FileRecords    `gorm:"type:json" json:"uploadedFiles,omitempty"`
	AnalysisResult StoredAnalysis `gorm:"type:json" json:"analysisResult"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Analysis returns the stored assessment in its domain shape.
func (r *HealthReport) Analysis() *analysis.HealthAssessmentReport {
	report := analysis.HealthAssessmentReport(r.AnalysisResult)
	return &report
}
