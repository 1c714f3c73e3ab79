package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"health-analysis-server/internal/llm"
)

// ReportSnapshot is the comparison engine's view of one persisted report,
// ordered by creation time by the caller.
type ReportSnapshot struct {
	ID          string
	CreatedAt   time.Time
	ExamDate    string
	PatientName string
	PatientAge  string
	ReportData  string
	Analysis    *HealthAssessmentReport
}

// Trend buckets derived from the sign of a health-score delta.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// ErrNotEnoughReports is returned when fewer than two reports are supplied.
var ErrNotEnoughReports = errors.New("comparison requires at least two reports")

// HealthScore derives the synthetic 0-100 score for one report:
// 100 - (riskFactors*10 + abnormalLabs*5), saturated at [0,100]. This is a
// bounded monotonic heuristic, not a clinical scoring standard.
func HealthScore(a *HealthAssessmentReport) int {
	riskCount := len(a.DetailedAnalysis.RiskFactors)
	abnormal := 0
	for _, lab := range a.DetailedAnalysis.LabAbnormalities {
		if lab.Status != "normal" {
			abnormal++
		}
	}
	score := 100 - (riskCount*10 + abnormal*5)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TrendBucket maps a score delta onto its narrative bucket.
func TrendBucket(delta int) string {
	switch {
	case delta > 0:
		return TrendImproving
	case delta < 0:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// DiffRiskFactors computes plain set differences over string equality.
// No fuzzy matching: "高血压" and "血压偏高" are different risks.
func DiffRiskFactors(previous, current []string) (newRisks, resolvedRisks []string) {
	prevSet := make(map[string]struct{}, len(previous))
	for _, r := range previous {
		prevSet[r] = struct{}{}
	}
	currSet := make(map[string]struct{}, len(current))
	for _, r := range current {
		currSet[r] = struct{}{}
	}

	newRisks = []string{}
	for _, r := range current {
		if _, ok := prevSet[r]; !ok {
			newRisks = append(newRisks, r)
		}
	}
	resolvedRisks = []string{}
	for _, r := range previous {
		if _, ok := currSet[r]; !ok {
			resolvedRisks = append(resolvedRisks, r)
		}
	}
	return newRisks, resolvedRisks
}

// LabComparison pairs one current lab abnormality with its previous reading.
type LabComparison struct {
	Indicator      string `json:"indicator"`
	PreviousStatus string `json:"previousStatus"`
	CurrentStatus  string `json:"currentStatus"`
	Change         string `json:"change"` // stable | improved | worsened
}

// CompareLabs pairs current lab entries with previous ones by exact indicator
// string. Entries with no prior match are excluded from the comparison set,
// not reported as new.
func CompareLabs(previous, current []LabAbnormality) []LabComparison {
	prevByIndicator := make(map[string]LabAbnormality, len(previous))
	for _, lab := range previous {
		prevByIndicator[lab.Indicator] = lab
	}

	comparisons := []LabComparison{}
	for _, lab := range current {
		prev, ok := prevByIndicator[lab.Indicator]
		if !ok {
			continue
		}
		change := "worsened"
		switch {
		case lab.Status == prev.Status:
			change = "stable"
		case lab.Status == "normal":
			change = "improved"
		}
		comparisons = append(comparisons, LabComparison{
			Indicator:      lab.Indicator,
			PreviousStatus: prev.Status,
			CurrentStatus:  lab.Status,
			Change:         change,
		})
	}
	return comparisons
}

// ComparisonTrend is one narrative trend line.
type ComparisonTrend struct {
	Aspect string `json:"aspect"`
	Trend  string `json:"trend"`
	Detail string `json:"detail"`
}

// RiskFactorChange is one narrative risk-factor delta.
type RiskFactorChange struct {
	RiskFactor string `json:"riskFactor"`
	Change     string `json:"change"` // new | resolved | persisting
	Note       string `json:"note"`
}

// LabTrendSeries is one indicator's values across reports, for charting.
type LabTrendSeries struct {
	Indicator string   `json:"indicator"`
	Dates     []string `json:"dates"`
	Values    []string `json:"values"`
}

// RadarEntry is one dimension of the risk radar chart.
type RadarEntry struct {
	Dimension string    `json:"dimension"`
	Scores    []float64 `json:"scores"`
}

// ScorePoint is one report's overall score on the timeline.
type ScorePoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// ChartData groups the chartable series of a comparison.
type ChartData struct {
	LabTrends    []LabTrendSeries `json:"labTrends"`
	RiskRadar    []RadarEntry     `json:"riskRadar"`
	OverallScore []ScorePoint     `json:"overallScore"`
}

// NarrativeComparison is the model-generated (or synthetic) comparison body.
type NarrativeComparison struct {
	Trends               []ComparisonTrend  `json:"trends"`
	RiskFactorComparison []RiskFactorChange `json:"riskFactorComparison"`
	KeyFindings          []string           `json:"keyFindings"`
	Recommendations      []string           `json:"recommendations"`
	ChartData            ChartData          `json:"chartData"`
}

// ComparisonResult is the full output of the comparison engine. The
// deterministic section (scores, trend, diffs, lab pairs) is always computed
// from the two newest reports; the narrative section comes from the model or,
// when the model call fails or returns nothing usable, from the deterministic
// synthetic fallback flagged by Synthetic.
type ComparisonResult struct {
	HealthScores   []ScorePoint        `json:"healthScores"`
	TrendDelta     int                 `json:"trendDelta"`
	Trend          string              `json:"trend"`
	NewRisks       []string            `json:"newRisks"`
	ResolvedRisks  []string            `json:"resolvedRisks"`
	LabComparisons []LabComparison     `json:"labComparisons"`
	Narrative      NarrativeComparison `json:"narrative"`
	Synthetic      bool                `json:"synthetic"`
}

// Engine derives trends across a patient's reports.
type Engine struct {
	llm llm.Client
}

// NewEngine constructs a comparison engine around the generation client.
func NewEngine(client llm.Client) *Engine {
	return &Engine{llm: client}
}

// Compare analyses an ordered-by-creation-time list of at least two reports
// for one patient. It never hard-fails after validation: a failing or empty
// model call degrades to the synthetic narrative, trading narrative fidelity
// for availability.
func (e *Engine) Compare(ctx context.Context, reports []ReportSnapshot) (*ComparisonResult, error) {
	if len(reports) < 2 {
		return nil, ErrNotEnoughReports
	}

	scores := make([]ScorePoint, 0, len(reports))
	for _, r := range reports {
		scores = append(scores, ScorePoint{
			Date:  r.CreatedAt.Format("2006-01-02"),
			Score: HealthScore(r.Analysis),
		})
	}

	previous := reports[len(reports)-2]
	current := reports[len(reports)-1]
	delta := HealthScore(current.Analysis) - HealthScore(previous.Analysis)
	newRisks, resolvedRisks := DiffRiskFactors(
		previous.Analysis.DetailedAnalysis.RiskFactors,
		current.Analysis.DetailedAnalysis.RiskFactors,
	)

	result := &ComparisonResult{
		HealthScores:  scores,
		TrendDelta:    delta,
		Trend:         TrendBucket(delta),
		NewRisks:      newRisks,
		ResolvedRisks: resolvedRisks,
		LabComparisons: CompareLabs(
			previous.Analysis.DetailedAnalysis.LabAbnormalities,
			current.Analysis.DetailedAnalysis.LabAbnormalities,
		),
	}

	narrative, ok := e.narrativeComparison(ctx, reports)
	if !ok {
		narrative = syntheticComparison(reports)
		result.Synthetic = true
	}
	result.Narrative = *narrative
	return result, nil
}

// narrativeComparison asks the generation client for the multi-report
// narrative. Any failure (transport, empty body, unparsable body) reports
// ok=false so the caller can fall back.
func (e *Engine) narrativeComparison(ctx context.Context, reports []ReportSnapshot) (*NarrativeComparison, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "患者：%s，共 %d 份报告，按时间先后排列：\n\n", reports[0].PatientName, len(reports))
	for i, r := range reports {
		payload, err := json.Marshal(r.Analysis)
		if err != nil {
			return nil, false
		}
		fmt.Fprintf(&b, "报告 %d（创建于 %s，检查日期 %s）：\n%s\n\n",
			i+1, r.CreatedAt.Format("2006-01-02"), r.ExamDate, payload)
	}

	raw, err := e.llm.GenerateJSON(ctx, comparisonSystemPrompt, b.String())
	if err != nil {
		log.Printf("comparison generation failed, using synthetic fallback: %v", err)
		return nil, false
	}
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}

	var narrative NarrativeComparison
	if err := json.Unmarshal([]byte(raw), &narrative); err != nil {
		log.Printf("comparison output unparsable, using synthetic fallback: %v", err)
		return nil, false
	}
	if len(narrative.Trends) == 0 && len(narrative.KeyFindings) == 0 {
		return nil, false
	}
	return &narrative, true
}

// syntheticComparison builds a deterministic comparison from report count and
// ordering only. The compare endpoint always answers with something, and
// callers tell this placeholder apart via Synthetic.
func syntheticComparison(reports []ReportSnapshot) *NarrativeComparison {
	n := len(reports)
	overall := make([]ScorePoint, 0, n)
	for i, r := range reports {
		overall = append(overall, ScorePoint{
			Date:  r.CreatedAt.Format("2006-01-02"),
			Score: 70 + i*2,
		})
	}

	return &NarrativeComparison{
		Trends: []ComparisonTrend{
			{
				Aspect: "整体健康状况",
				Trend:  TrendStable,
				Detail: fmt.Sprintf("已对 %d 份报告进行对比，整体状况无明显变化。详细趋势分析暂时不可用，请稍后重试。", n),
			},
		},
		RiskFactorComparison: []RiskFactorChange{},
		KeyFindings: []string{
			fmt.Sprintf("共收集 %d 份历史报告，时间跨度从 %s 到 %s。",
				n,
				reports[0].CreatedAt.Format("2006-01-02"),
				reports[n-1].CreatedAt.Format("2006-01-02")),
		},
		Recommendations: []string{
			"建议保持定期检查，持续关注各项指标变化。",
			"趋势分析服务暂时不可用，可稍后重新发起对比。",
		},
		ChartData: ChartData{
			LabTrends:    []LabTrendSeries{},
			RiskRadar:    []RadarEntry{},
			OverallScore: overall,
		},
	}
}
