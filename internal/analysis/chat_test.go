package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"health-analysis-server/internal/ingest"
)

func TestSanitizeReply_BoldBecomesBrackets(t *testing.T) {
	got := SanitizeReply("**重要**事项")
	if !strings.Contains(got, "【重要】事项") {
		t.Errorf("got %q, want bracket emphasis", got)
	}
	if strings.Contains(got, "**") {
		t.Errorf("got %q, bold markers must be removed", got)
	}
}

func TestSanitizeReply_BackticksRemovedTextKept(t *testing.T) {
	got := SanitizeReply("指标 `空腹血糖` 需要复查")
	if strings.Contains(got, "`") {
		t.Errorf("got %q, backticks must be removed", got)
	}
	if !strings.Contains(got, "空腹血糖") {
		t.Errorf("got %q, inner text must be preserved", got)
	}
}

func TestSanitizeReply_FencedCode(t *testing.T) {
	got := SanitizeReply("```\n血压 150/95\n```")
	if strings.Contains(got, "`") {
		t.Errorf("got %q, fence markers must be removed", got)
	}
	if !strings.Contains(got, "血压 150/95") {
		t.Errorf("got %q, fenced text must be preserved", got)
	}
}

func TestSanitizeReply_BulletsAndHeadings(t *testing.T) {
	got := SanitizeReply("# 总结\n- 第一点\n* 第二点\n1. 保持不变")
	if strings.Contains(got, "#") {
		t.Errorf("got %q, heading markers must be removed", got)
	}
	if !strings.Contains(got, "• 第一点") || !strings.Contains(got, "• 第二点") {
		t.Errorf("got %q, dash and asterisk bullets must become the bullet glyph", got)
	}
	if !strings.Contains(got, "1. 保持不变") {
		t.Errorf("got %q, numbered lines must pass through untouched", got)
	}
}

func TestBuildChatContent(t *testing.T) {
	files := []ingest.ProcessedFile{
		{OriginalName: "report.txt", Category: ingest.CategoryDocument, ExtractedText: "血常规正常"},
	}

	got := BuildChatContent("帮我看看", files)
	if !strings.Contains(got, "帮我看看") || !strings.Contains(got, "血常规正常") {
		t.Errorf("content must combine message and file text, got %q", got)
	}
	if !strings.Contains(got, "report.txt") {
		t.Errorf("file header must name the original file, got %q", got)
	}

	// Empty message substitutes a generic analyze instruction.
	got = BuildChatContent("", files)
	if !strings.Contains(got, chatAnalyzeInstruction) {
		t.Errorf("empty message must substitute the analyze instruction, got %q", got)
	}

	// No files: message passes through unchanged.
	if got := BuildChatContent("你好", nil); got != "你好" {
		t.Errorf("got %q, want bare message", got)
	}
}

func TestBuildHistoryDigest_Bounds(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("血压记录。", 100) // far beyond the excerpt limit

	history := make([]ReportSnapshot, 5)
	for i := range history {
		history[i] = ReportSnapshot{
			CreatedAt:   base.AddDate(0, 0, i),
			PatientName: "张三",
			PatientAge:  "45",
			ExamDate:    "2026-01-01",
			ReportData:  long,
			Analysis: reportWithSummary([]string{"f1", "f2", "f3", "f4", "f5"}),
		}
	}

	digest := BuildHistoryDigest(history)
	if n := strings.Count(digest, "报告原文节选"); n != 3 {
		t.Errorf("digest covers %d reports, want the 3 most recent", n)
	}
	// Newest first: the latest creation date appears, the oldest two do not.
	if !strings.Contains(digest, "2026-01-05") {
		t.Error("digest must include the newest report")
	}
	if strings.Contains(digest, "2026-01-01）") || strings.Contains(digest, "2026-01-02") {
		t.Error("digest must drop the oldest reports")
	}
	if strings.Contains(digest, "f4") {
		t.Error("digest must cap summary lists at three items")
	}
	for _, line := range strings.Split(digest, "\n") {
		if strings.HasPrefix(line, "报告原文节选") && len([]rune(line)) > 250 {
			t.Errorf("excerpt line too long (%d runes)", len([]rune(line)))
		}
	}
}

func reportWithSummary(findings []string) *HealthAssessmentReport {
	return &HealthAssessmentReport{
		PatientInfo: PatientInfo{Name: "张三", Age: "45"},
		ExecutiveSummary: ExecutiveSummary{
			MainFindings:           findings,
			CoreRisks:              []string{"r1"},
			PrimaryRecommendations: []string{"p1"},
		},
	}
}

func TestChatReply_EmptyModelOutputSubstituted(t *testing.T) {
	svc := NewChatService(&fakeLLM{chatReply: "   "})
	got, err := svc.Reply(context.Background(), "你好", nil, nil)
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got != chatFallbackMessage {
		t.Errorf("got %q, want the apologetic substitute", got)
	}
}

func TestChatReply_TransportFailurePropagates(t *testing.T) {
	svc := NewChatService(&fakeLLM{err: errTransport})
	if _, err := svc.Reply(context.Background(), "你好", nil, nil); err == nil {
		t.Fatal("transport failure must propagate as a hard failure")
	}
}

func TestChatReply_Sanitized(t *testing.T) {
	svc := NewChatService(&fakeLLM{chatReply: "**注意**复查血压"})
	got, err := svc.Reply(context.Background(), "你好", nil, nil)
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(got, "【注意】") {
		t.Errorf("got %q, reply must be sanitized", got)
	}
}
