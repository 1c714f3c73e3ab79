package analysis

import (
	"context"
	"errors"

	"health-analysis-server/internal/llm"
)

// fakeLLM is a canned generation client for tests.
type fakeLLM struct {
	jsonReply string
	chatReply string
	err       error
	calls     int
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.jsonReply, nil
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.chatReply, nil
}

var errTransport = errors.New("connection refused")

// validReportJSON returns a minimal schema-valid report document.
func validReportJSON() string {
	return `{
		"patientInfo": {"name": "张三", "age": "45", "gender": "男性"},
		"executiveSummary": {
			"mainFindings": ["血压偏高"],
			"coreRisks": ["心血管风险"],
			"primaryRecommendations": ["复查血压"]
		},
		"detailedAnalysis": {
			"imagingFindings": [],
			"labAbnormalities": [
				{"indicator": "血压", "value": "150/95", "status": "high", "interpretation": "高于正常范围", "patientFriendly": "血压偏高"}
			],
			"possibleDiagnoses": [],
			"differentialDiagnosis": [],
			"imagingReportSummary": {
				"technicalFindings": [],
				"clinicalCorrelation": "无影像资料",
				"patientSummary": "本次未提供影像检查",
				"nextSteps": []
			},
			"riskFactors": ["高血压"]
		},
		"riskAssessment": {
			"overallAssessment": "血压偏高，建议随访",
			"actionableRecommendations": {
				"followUp": ["一周后复测血压"],
				"specialistConsultation": [],
				"lifestyleAdjustments": ["低盐饮食"]
			}
		},
		"reportMetadata": {"reportId": "r-1", "generatedAt": "2026-08-30T10:00:00Z", "model": "test-model"}
	}`
}
