package analysis

import (
	"strings"
	"testing"

	"health-analysis-server/internal/ingest"
)

func TestRepairAndValidate_ValidInputUnchanged(t *testing.T) {
	patient := PatientInfo{Name: "张三", Age: "45"}

	report, degraded := RepairAndValidate(validReportJSON(), patient, "test-model", nil)
	if degraded {
		t.Fatal("valid input must not degrade to fallback")
	}
	if report.PatientInfo.Name != "张三" {
		t.Errorf("patient name = %q, want 张三", report.PatientInfo.Name)
	}
	if report.ReportMetadata.ReportID != "r-1" {
		t.Errorf("existing metadata must be preserved, got reportId %q", report.ReportMetadata.ReportID)
	}
	if len(report.DetailedAnalysis.LabAbnormalities) != 1 {
		t.Errorf("lab abnormalities = %d, want 1", len(report.DetailedAnalysis.LabAbnormalities))
	}
}

func TestRepairAndValidate_EmptyInputYieldsFallback(t *testing.T) {
	patient := PatientInfo{Name: "李四", Age: "60"}

	for _, raw := range []string{"", "   ", "\n\t"} {
		report, degraded := RepairAndValidate(raw, patient, "test-model", nil)
		if !degraded {
			t.Fatalf("input %q must degrade to fallback", raw)
		}
		if report.PatientInfo.Name != "李四" || report.PatientInfo.Age != "60" {
			t.Errorf("fallback must echo patient identity, got %+v", report.PatientInfo)
		}
		if !strings.Contains(report.ReportMetadata.ReportID, "error") {
			t.Errorf("fallback reportId %q must carry an error marker", report.ReportMetadata.ReportID)
		}
	}
}

func TestRepairAndValidate_TruncatedInput(t *testing.T) {
	full := validReportJSON()
	// Cut off inside the lab abnormality object, after at least one complete
	// field has been emitted.
	cut := strings.Index(full, `"interpretation"`)
	if cut < 0 {
		t.Fatal("test fixture changed")
	}
	truncated := full[:cut]

	patient := PatientInfo{Name: "张三", Age: "45"}
	report, degraded := RepairAndValidate(truncated, patient, "test-model", nil)

	// Two-outcome contract: either the repair parsed and the fully-present
	// fields survived, or the fallback echoes the patient identity. Either
	// way no panic and a structurally valid report.
	if degraded {
		if report.PatientInfo.Name != "张三" || report.PatientInfo.Age != "45" {
			t.Errorf("fallback must echo patient identity, got %+v", report.PatientInfo)
		}
	} else {
		if report.PatientInfo.Name != "张三" {
			t.Errorf("repaired report lost patientInfo: %+v", report.PatientInfo)
		}
		if len(report.ExecutiveSummary.MainFindings) != 1 {
			t.Errorf("repaired report lost executiveSummary: %+v", report.ExecutiveSummary)
		}
	}
}

func TestRepairAndValidate_MissingSectionYieldsFallback(t *testing.T) {
	raw := `{"patientInfo": {"name": "张三", "age": "45"}, "executiveSummary": {"mainFindings": [], "coreRisks": [], "primaryRecommendations": []}}`

	_, degraded := RepairAndValidate(raw, PatientInfo{Name: "张三", Age: "45"}, "test-model", nil)
	if !degraded {
		t.Fatal("report without detailedAnalysis must degrade to fallback")
	}
}

func TestRepairAndValidate_GarbageYieldsFallback(t *testing.T) {
	_, degraded := RepairAndValidate("I'm sorry, I cannot help with that.", PatientInfo{Name: "王五", Age: "30"}, "test-model", nil)
	if !degraded {
		t.Fatal("non-JSON output must degrade to fallback")
	}
}

func TestRepairAndValidate_FileFlagOverlay(t *testing.T) {
	files := []ingest.ProcessedFile{
		{OriginalName: "ct.dcm", MimeType: "application/dicom", Category: ingest.CategoryDICOM},
		{OriginalName: "gait.mp4", MimeType: "video/mp4", Category: ingest.CategoryVideo},
	}

	report, degraded := RepairAndValidate(validReportJSON(), PatientInfo{Name: "张三", Age: "45"}, "test-model", files)
	if degraded {
		t.Fatal("valid input must not degrade")
	}
	if !report.ReportMetadata.HasImageFiles {
		t.Error("dicom upload must set hasImageFiles")
	}
	if !report.ReportMetadata.HasVideoFiles {
		t.Error("video upload must set hasVideoFiles")
	}
	if len(report.ReportMetadata.UploadedFileTypes) != 2 {
		t.Errorf("uploadedFileTypes = %v, want both mime types", report.ReportMetadata.UploadedFileTypes)
	}
}

func TestRepairTruncated_ClosesBraces(t *testing.T) {
	in := `{"a": {"b": "complete", "c": "cut off mid-val`
	out := repairTruncated(in)
	if strings.Count(out, "{") != strings.Count(out, "}") {
		t.Errorf("braces unbalanced after repair: %q", out)
	}
}
