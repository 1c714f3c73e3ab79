package analysis

import (
	"fmt"
	"strings"

	"health-analysis-server/internal/ingest"
)

// PromptInput is everything the prompt builder needs for one analysis call.
type PromptInput struct {
	PatientName   string
	PatientAge    string
	PatientGender string
	ExamDate      string
	ReportData    string
	Files         []ingest.ProcessedFile
}

// BuildAnalysisPrompt assembles the user prompt for the generation client from
// patient info, free-text report data and extracted file text. It is a pure
// transform: empty report data with no file text is accepted, the API boundary
// is responsible for requiring at least one data source.
func BuildAnalysisPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("患者信息：\n")
	fmt.Fprintf(&b, "姓名：%s\n", in.PatientName)
	fmt.Fprintf(&b, "年龄：%s\n", in.PatientAge)
	if in.PatientGender != "" {
		fmt.Fprintf(&b, "性别：%s\n", in.PatientGender)
	}
	if in.ExamDate != "" {
		fmt.Fprintf(&b, "检查日期：%s\n", in.ExamDate)
	}

	if in.ReportData != "" {
		b.WriteString("\n检查报告内容：\n")
		b.WriteString(in.ReportData)
		b.WriteString("\n")
	}

	if fileText := FileTextSection(in.Files); fileText != "" {
		b.WriteString("\n上传文件内容：\n")
		b.WriteString(fileText)
	}

	return b.String()
}

// FileTextSection concatenates the extracted text of each file, prefixed with
// a synthetic header naming the source category and the original filename.
// Files without extracted text contribute nothing.
func FileTextSection(files []ingest.ProcessedFile) string {
	var b strings.Builder
	for _, f := range files {
		if f.ExtractedText == "" {
			continue
		}
		fmt.Fprintf(&b, "【%s：%s】\n%s\n\n", categoryHeader(f.Category), f.OriginalName, f.ExtractedText)
	}
	return b.String()
}

func categoryHeader(c ingest.Category) string {
	switch c {
	case ingest.CategoryImage:
		return "影像分析"
	case ingest.CategoryVideo:
		return "视频分析"
	case ingest.CategoryDICOM:
		return "影像分析"
	default:
		return "文档资料"
	}
}
