package analysis

// PatientInfo identifies the person the assessment is about. Age and gender
// are free-form strings supplied by the client; never assume a numeric age.
type PatientInfo struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender string `json:"gender,omitempty"`
}

// ExecutiveSummary is the top-of-report digest.
type ExecutiveSummary struct {
	MainFindings           []string `json:"mainFindings"`
	CoreRisks              []string `json:"coreRisks"`
	PrimaryRecommendations []string `json:"primaryRecommendations"`
}

// LabAbnormality describes one out-of-range (or notable) lab indicator.
type LabAbnormality struct {
	Indicator       string `json:"indicator"`
	Value           string `json:"value"`
	Status          string `json:"status"` // high | low | normal
	Interpretation  string `json:"interpretation"`
	PatientFriendly string `json:"patientFriendly"`
}

// Diagnosis is one candidate diagnosis with its likelihood.
type Diagnosis struct {
	Diagnosis          string `json:"diagnosis"`
	Probability        string `json:"probability"` // high | moderate | low
	Reasoning          string `json:"reasoning"`
	PatientExplanation string `json:"patientExplanation"`
}

// DifferentialDiagnosis is a condition to rule in or out.
type DifferentialDiagnosis struct {
	Condition              string `json:"condition"`
	Likelihood             string `json:"likelihood"`
	DistinguishingFeatures string `json:"distinguishingFeatures"`
	Explanation            string `json:"explanation"`
}

// VideoFinding describes one observation extracted from an uploaded video.
type VideoFinding struct {
	Finding            string `json:"finding"`
	MedicalTerms       string `json:"medicalTerms"`
	PatientExplanation string `json:"patientExplanation"`
	Significance       string `json:"significance"`
}

// ImagingReportSummary summarises imaging results for both clinicians and patients.
type ImagingReportSummary struct {
	TechnicalFindings   []string `json:"technicalFindings"`
	ClinicalCorrelation string   `json:"clinicalCorrelation"`
	PatientSummary      string   `json:"patientSummary"`
	NextSteps           []string `json:"nextSteps"`
}

// DetailedAnalysis carries the full breakdown of the assessment.
type DetailedAnalysis struct {
	ImagingFindings       []string                `json:"imagingFindings"`
	VideoFindings         []VideoFinding          `json:"videoFindings,omitempty"`
	LabAbnormalities      []LabAbnormality        `json:"labAbnormalities"`
	PossibleDiagnoses     []Diagnosis             `json:"possibleDiagnoses"`
	DifferentialDiagnosis []DifferentialDiagnosis `json:"differentialDiagnosis"`
	ImagingReportSummary  ImagingReportSummary    `json:"imagingReportSummary"`
	ClinicalReasoning     []string                `json:"clinicalReasoning,omitempty"`
	RiskFactors           []string                `json:"riskFactors"`
}

// ActionableRecommendations groups the follow-up guidance of a report.
type ActionableRecommendations struct {
	FollowUp               []string `json:"followUp"`
	SpecialistConsultation []string `json:"specialistConsultation"`
	LifestyleAdjustments   []string `json:"lifestyleAdjustments"`
}

// RiskAssessment is the report's overall conclusion.
type RiskAssessment struct {
	OverallAssessment         string                    `json:"overallAssessment"`
	DiagnosticConclusion      string                    `json:"diagnosticConclusion,omitempty"`
	ActionableRecommendations ActionableRecommendations `json:"actionableRecommendations"`
}

// ReportMetadata records provenance of a generated report.
type ReportMetadata struct {
	ReportID          string   `json:"reportId"`
	GeneratedAt       string   `json:"generatedAt"`
	Model             string   `json:"model"`
	HasVideoFiles     bool     `json:"hasVideoFiles,omitempty"`
	HasImageFiles     bool     `json:"hasImageFiles,omitempty"`
	UploadedFileTypes []string `json:"uploadedFileTypes,omitempty"`
}

// HealthAssessmentReport is the structured artifact produced by the generation
// client. PatientInfo, ExecutiveSummary and DetailedAnalysis are required; a
// value missing any of them is not a valid report.
type HealthAssessmentReport struct {
	PatientInfo      PatientInfo      `json:"patientInfo"`
	ExecutiveSummary ExecutiveSummary `json:"executiveSummary"`
	DetailedAnalysis DetailedAnalysis `json:"detailedAnalysis"`
	RiskAssessment   RiskAssessment   `json:"riskAssessment"`
	ReportMetadata   ReportMetadata   `json:"reportMetadata"`
}
