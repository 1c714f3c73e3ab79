package analysis

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"health-analysis-server/internal/ingest"
)

// RepairAndValidate turns raw model output into a structurally valid
// HealthAssessmentReport. It never fails: malformed or truncated output is
// repaired when possible and otherwise replaced with a fallback report whose
// narrative tells the user the analysis failed. The second return value is
// true when the fallback was synthesized.
func RepairAndValidate(raw string, patient PatientInfo, model string, files []ingest.ProcessedFile) (*HealthAssessmentReport, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		report := FallbackReport(patient, model)
		applyFileMetadata(report, files)
		return report, true
	}

	if !strings.HasSuffix(trimmed, "}") {
		trimmed = repairTruncated(trimmed)
	}

	report, ok := parseReport(trimmed)
	if !ok {
		report = FallbackReport(patient, model)
		applyFileMetadata(report, files)
		return report, true
	}

	if report.ReportMetadata.ReportID == "" {
		report.ReportMetadata = ReportMetadata{
			ReportID:    uuid.New().String(),
			GeneratedAt: time.Now().Format(time.RFC3339),
			Model:       model,
		}
	}
	applyFileMetadata(report, files)
	return report, false
}

// repairTruncated is the best-effort recovery for output cut off at the token
// limit: truncate back to the last complete quoted-string boundary and append
// the missing closing braces. It never guesses beyond that, so the result may
// still fail to parse.
func repairTruncated(s string) string {
	missing := strings.Count(s, "{") - strings.Count(s, "}")
	if missing <= 0 {
		return s
	}
	if idx := strings.LastIndex(s, `"`); idx >= 0 {
		s = s[:idx+1]
	}
	s = strings.TrimRight(s, " \t\r\n,")
	// a dangling `"key":` cannot be closed, cut it back to the previous field
	if strings.HasSuffix(s, ":") {
		if idx := strings.LastIndex(s, ","); idx >= 0 {
			s = s[:idx]
		}
	}
	return s + strings.Repeat("}", missing)
}

// parseReport parses the candidate JSON and checks that the required
// top-level sections are present.
func parseReport(s string) (*HealthAssessmentReport, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return nil, false
	}
	for _, required := range []string{"patientInfo", "executiveSummary", "detailedAnalysis"} {
		if _, present := keys[required]; !present {
			return nil, false
		}
	}

	var report HealthAssessmentReport
	if err := json.Unmarshal([]byte(s), &report); err != nil {
		return nil, false
	}
	return &report, true
}

// FallbackReport synthesizes a structurally valid report that tells the user
// the analysis failed and must be resubmitted. The patient identity is echoed
// from the request and the report id carries an error marker.
func FallbackReport(patient PatientInfo, model string) *HealthAssessmentReport {
	return &HealthAssessmentReport{
		PatientInfo: patient,
		ExecutiveSummary: ExecutiveSummary{
			MainFindings:           []string{fallbackMainFinding},
			CoreRisks:              []string{fallbackCoreRisk},
			PrimaryRecommendations: []string{fallbackRecommendation},
		},
		DetailedAnalysis: DetailedAnalysis{
			ImagingFindings:       []string{},
			LabAbnormalities:      []LabAbnormality{},
			PossibleDiagnoses:     []Diagnosis{},
			DifferentialDiagnosis: []DifferentialDiagnosis{},
			ImagingReportSummary: ImagingReportSummary{
				TechnicalFindings:   []string{},
				ClinicalCorrelation: fallbackAssessment,
				PatientSummary:      fallbackPatientSummary,
				NextSteps:           []string{fallbackRecommendation},
			},
			RiskFactors: []string{},
		},
		RiskAssessment: RiskAssessment{
			OverallAssessment: fallbackAssessment,
			ActionableRecommendations: ActionableRecommendations{
				FollowUp:               []string{fallbackRecommendation},
				SpecialistConsultation: []string{},
				LifestyleAdjustments:   []string{},
			},
		},
		ReportMetadata: ReportMetadata{
			ReportID:    "error-" + uuid.New().String(),
			GeneratedAt: time.Now().Format(time.RFC3339),
			Model:       model,
		},
	}
}

// applyFileMetadata overlays file-derived flags onto the report metadata.
func applyFileMetadata(report *HealthAssessmentReport, files []ingest.ProcessedFile) {
	if len(files) == 0 {
		return
	}
	types := make([]string, 0, len(files))
	for _, f := range files {
		types = append(types, f.MimeType)
		switch f.Category {
		case ingest.CategoryVideo:
			report.ReportMetadata.HasVideoFiles = true
		case ingest.CategoryImage, ingest.CategoryDICOM:
			report.ReportMetadata.HasImageFiles = true
		}
	}
	report.ReportMetadata.UploadedFileTypes = types
}
