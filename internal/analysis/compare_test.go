package analysis

import (
	"context"
	"testing"
	"time"
)

func reportWith(risks []string, labs []LabAbnormality) *HealthAssessmentReport {
	return &HealthAssessmentReport{
		PatientInfo:      PatientInfo{Name: "张三", Age: "45"},
		ExecutiveSummary: ExecutiveSummary{MainFindings: []string{}, CoreRisks: []string{}, PrimaryRecommendations: []string{}},
		DetailedAnalysis: DetailedAnalysis{RiskFactors: risks, LabAbnormalities: labs},
	}
}

func snapshotsFor(reports ...*HealthAssessmentReport) []ReportSnapshot {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snaps := make([]ReportSnapshot, 0, len(reports))
	for i, r := range reports {
		snaps = append(snaps, ReportSnapshot{
			ID:          string(rune('a' + i)),
			CreatedAt:   base.AddDate(0, i, 0),
			PatientName: "张三",
			PatientAge:  "45",
			Analysis:    r,
		})
	}
	return snaps
}

func TestHealthScore_Bounds(t *testing.T) {
	cases := []struct {
		name  string
		risks int
		labs  int
		want  int
	}{
		{"no findings", 0, 0, 100},
		{"typical", 2, 3, 65},
		{"saturates at zero", 50, 0, 0},
		{"saturates with labs", 10, 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			risks := make([]string, tc.risks)
			for i := range risks {
				risks[i] = "risk"
			}
			labs := make([]LabAbnormality, tc.labs)
			for i := range labs {
				labs[i] = LabAbnormality{Indicator: "x", Status: "high"}
			}
			got := HealthScore(reportWith(risks, labs))
			if got != tc.want {
				t.Errorf("score = %d, want %d", got, tc.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("score %d outside [0,100]", got)
			}
		})
	}
}

func TestHealthScore_NormalLabsDoNotCount(t *testing.T) {
	labs := []LabAbnormality{
		{Indicator: "血糖", Status: "normal"},
		{Indicator: "血压", Status: "high"},
	}
	if got := HealthScore(reportWith(nil, labs)); got != 95 {
		t.Errorf("score = %d, want 95 (only abnormal labs count)", got)
	}
}

func TestTrendBucket(t *testing.T) {
	if got := TrendBucket(5); got != TrendImproving {
		t.Errorf("positive delta = %q, want improving", got)
	}
	if got := TrendBucket(-5); got != TrendDeclining {
		t.Errorf("negative delta = %q, want declining", got)
	}
	if got := TrendBucket(0); got != TrendStable {
		t.Errorf("zero delta = %q, want stable", got)
	}
}

func TestDiffRiskFactors(t *testing.T) {
	newRisks, resolved := DiffRiskFactors([]string{"A", "B"}, []string{"B", "C"})
	if len(newRisks) != 1 || newRisks[0] != "C" {
		t.Errorf("newRisks = %v, want [C]", newRisks)
	}
	if len(resolved) != 1 || resolved[0] != "A" {
		t.Errorf("resolvedRisks = %v, want [A]", resolved)
	}
}

func TestDiffRiskFactors_IdenticalSets(t *testing.T) {
	newRisks, resolved := DiffRiskFactors([]string{"A", "B"}, []string{"A", "B"})
	if len(newRisks) != 0 {
		t.Errorf("newRisks = %v, want empty", newRisks)
	}
	if len(resolved) != 0 {
		t.Errorf("resolvedRisks = %v, want empty", resolved)
	}
}

func TestCompareLabs(t *testing.T) {
	previous := []LabAbnormality{
		{Indicator: "血糖", Status: "high"},
		{Indicator: "血脂", Status: "high"},
		{Indicator: "尿酸", Status: "low"},
	}
	current := []LabAbnormality{
		{Indicator: "血糖", Status: "normal"}, // improved
		{Indicator: "血脂", Status: "high"},   // stable
		{Indicator: "尿酸", Status: "high"},   // worsened (changed, not normal)
		{Indicator: "肌酐", Status: "high"},   // no prior match, excluded
	}

	comparisons := CompareLabs(previous, current)
	if len(comparisons) != 3 {
		t.Fatalf("comparisons = %d, want 3 (unmatched entries excluded)", len(comparisons))
	}
	byIndicator := map[string]string{}
	for _, cmp := range comparisons {
		byIndicator[cmp.Indicator] = cmp.Change
	}
	if byIndicator["血糖"] != "improved" {
		t.Errorf("血糖 change = %q, want improved", byIndicator["血糖"])
	}
	if byIndicator["血脂"] != "stable" {
		t.Errorf("血脂 change = %q, want stable", byIndicator["血脂"])
	}
	if byIndicator["尿酸"] != "worsened" {
		t.Errorf("尿酸 change = %q, want worsened", byIndicator["尿酸"])
	}
	if _, found := byIndicator["肌酐"]; found {
		t.Error("肌酐 has no prior reading and must be excluded")
	}
}

func TestCompare_RejectsSingleReport(t *testing.T) {
	engine := NewEngine(&fakeLLM{})
	_, err := engine.Compare(context.Background(), snapshotsFor(reportWith(nil, nil)))
	if err != ErrNotEnoughReports {
		t.Fatalf("err = %v, want ErrNotEnoughReports", err)
	}
}

func TestCompare_StableWhenIdentical(t *testing.T) {
	r := reportWith([]string{"高血压"}, []LabAbnormality{{Indicator: "血压", Status: "high"}})
	engine := NewEngine(&fakeLLM{err: errTransport})

	result, err := engine.Compare(context.Background(), snapshotsFor(r, r))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if result.Trend != TrendStable {
		t.Errorf("trend = %q, want stable", result.Trend)
	}
	if len(result.NewRisks) != 0 || len(result.ResolvedRisks) != 0 {
		t.Errorf("identical reports must diff empty, got new=%v resolved=%v", result.NewRisks, result.ResolvedRisks)
	}
}

func TestCompare_SyntheticFallbackOnTransportFailure(t *testing.T) {
	r1 := reportWith([]string{"A"}, nil)
	r2 := reportWith([]string{"B"}, nil)
	engine := NewEngine(&fakeLLM{err: errTransport})

	result, err := engine.Compare(context.Background(), snapshotsFor(r1, r2))
	if err != nil {
		t.Fatalf("compare endpoint must not hard-fail on model errors: %v", err)
	}
	if !result.Synthetic {
		t.Error("fallback narrative must be flagged synthetic")
	}
	if len(result.Narrative.Trends) == 0 {
		t.Error("synthetic narrative must still carry trend content")
	}
	if len(result.Narrative.ChartData.OverallScore) != 2 {
		t.Errorf("synthetic overallScore points = %d, want one per report", len(result.Narrative.ChartData.OverallScore))
	}
}

func TestCompare_SyntheticFallbackOnEmptyBody(t *testing.T) {
	engine := NewEngine(&fakeLLM{jsonReply: "  "})
	result, err := engine.Compare(context.Background(), snapshotsFor(reportWith(nil, nil), reportWith(nil, nil)))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !result.Synthetic {
		t.Error("empty model body must fall back to synthetic comparison")
	}
}

func TestCompare_UsesModelNarrative(t *testing.T) {
	narrative := `{
		"trends": [{"aspect": "血压", "trend": "improving", "detail": "持续下降"}],
		"riskFactorComparison": [],
		"keyFindings": ["血压控制良好"],
		"recommendations": ["继续当前方案"],
		"chartData": {"labTrends": [], "riskRadar": [], "overallScore": [{"date": "2026-01-01", "score": 80}]}
	}`
	engine := NewEngine(&fakeLLM{jsonReply: narrative})

	result, err := engine.Compare(context.Background(), snapshotsFor(reportWith(nil, nil), reportWith(nil, nil)))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if result.Synthetic {
		t.Error("usable model narrative must not be flagged synthetic")
	}
	if len(result.Narrative.Trends) != 1 || result.Narrative.Trends[0].Aspect != "血压" {
		t.Errorf("narrative not taken from model output: %+v", result.Narrative)
	}
}
