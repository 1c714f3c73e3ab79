package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"health-analysis-server/internal/ingest"
	"health-analysis-server/internal/llm"
)

// Bounds on the historical grounding to keep prompt size under control.
const (
	chatHistoryLimit  = 3
	chatExcerptRunes  = 200
	chatDigestMaxItem = 3
)

// ChatService answers free-text questions grounded in the user's report
// history.
type ChatService struct {
	llm llm.Client
}

// NewChatService constructs the chat service around the generation client.
func NewChatService(client llm.Client) *ChatService {
	return &ChatService{llm: client}
}

// Reply builds the grounded prompt from the live message, any freshly
// uploaded files and the user's persisted reports, asks the model, and
// returns the sanitized plain-text answer. Transport failure of the
// generation call propagates as a hard failure of the chat turn.
func (s *ChatService) Reply(ctx context.Context, message string, files []ingest.ProcessedFile, history []ReportSnapshot) (string, error) {
	content := BuildChatContent(message, files)
	if digest := BuildHistoryDigest(history); digest != "" {
		content += "\n\n" + digest
	}

	raw, err := s.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: chatSystemPrompt},
		{Role: "user", Content: content},
	})
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return chatFallbackMessage, nil
	}
	return SanitizeReply(raw), nil
}

// BuildChatContent combines the user message with extracted file text. When
// files are present but the message is empty, a generic analyze instruction
// substitutes for it.
func BuildChatContent(message string, files []ingest.ProcessedFile) string {
	fileText := FileTextSection(files)
	if fileText == "" {
		return message
	}
	if message == "" {
		message = chatAnalyzeInstruction
	}
	return message + "\n\n" + fileText
}

// BuildHistoryDigest renders a compact digest of at most the three
// most-recently-created reports: creation date, patient identity, exam date,
// a truncated excerpt of the raw report text, and up to three items each from
// the executive summary lists.
func BuildHistoryDigest(history []ReportSnapshot) string {
	if len(history) == 0 {
		return ""
	}

	sorted := make([]ReportSnapshot, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > chatHistoryLimit {
		sorted = sorted[:chatHistoryLimit]
	}

	var b strings.Builder
	b.WriteString("以下是该用户的历史健康报告摘要：\n")
	for i, r := range sorted {
		fmt.Fprintf(&b, "\n报告 %d（%s）：\n", i+1, r.CreatedAt.Format("2006-01-02"))
		fmt.Fprintf(&b, "患者：%s，年龄：%s，检查日期：%s\n", r.PatientName, r.PatientAge, r.ExamDate)
		if excerpt := truncateRunes(r.ReportData, chatExcerptRunes); excerpt != "" {
			fmt.Fprintf(&b, "报告原文节选：%s\n", excerpt)
		}
		if r.Analysis == nil {
			continue
		}
		writeDigestList(&b, "主要发现", r.Analysis.ExecutiveSummary.MainFindings)
		writeDigestList(&b, "核心风险", r.Analysis.ExecutiveSummary.CoreRisks)
		writeDigestList(&b, "主要建议", r.Analysis.ExecutiveSummary.PrimaryRecommendations)
	}
	return b.String()
}

func writeDigestList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	if len(items) > chatDigestMaxItem {
		items = items[:chatDigestMaxItem]
	}
	fmt.Fprintf(b, "%s：%s\n", label, strings.Join(items, "；"))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// The sanitizer targets the specific Markdown artifacts the model is known to
// produce; it is not a Markdown parser.
var (
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	bulletRe   = regexp.MustCompile(`(?m)^(\s*)[-*]\s+`)
	emphasisRe = regexp.MustCompile(`\*([^*\n]+)\*`)
	headingRe  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	backtickRe = regexp.MustCompile("`+")
)

// SanitizeReply strips Markdown artifacts from a model reply: bold spans
// become the bracket-emphasis convention, bullet markers become a plain
// bullet glyph, emphasis, heading and inline-code markers are removed.
// Numbered-list lines pass through untouched.
func SanitizeReply(s string) string {
	s = boldRe.ReplaceAllString(s, "【$1】")
	s = bulletRe.ReplaceAllString(s, "$1• ")
	s = emphasisRe.ReplaceAllString(s, "$1")
	s = headingRe.ReplaceAllString(s, "")
	s = backtickRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
