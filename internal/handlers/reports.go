package handlers

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"health-analysis-server/internal/analysis"
	"health-analysis-server/internal/ingest"
	"health-analysis-server/internal/middleware"
	"health-analysis-server/internal/models"
	"health-analysis-server/internal/utils"
)

// minReportTextLen is the shortest free-text report accepted when no files
// are uploaded.
const minReportTextLen = 10

// ReportHandler handles analysis, report retrieval, comparison and chat.
type ReportHandler struct {
	DB        *gorm.DB
	Service   *analysis.Service
	Engine    *analysis.Engine
	Chat      *analysis.ChatService
	Processor *ingest.Processor
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(db *gorm.DB, svc *analysis.Service, engine *analysis.Engine, chat *analysis.ChatService, processor *ingest.Processor) *ReportHandler {
	return &ReportHandler{DB: db, Service: svc, Engine: engine, Chat: chat, Processor: processor}
}

// Analyze handles one analysis submission: multipart patient fields + free
// text + optional files. Input validation happens here, before any
// generation call; the analysis service itself never rejects empty input.
func (h *ReportHandler) Analyze(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	patientName := strings.TrimSpace(c.PostForm("patientName"))
	patientAge := strings.TrimSpace(c.PostForm("patientAge"))
	patientGender := strings.TrimSpace(c.PostForm("patientGender"))
	examDate := strings.TrimSpace(c.PostForm("examDate"))
	reportData := strings.TrimSpace(c.PostForm("reportData"))

	if patientName == "" || patientAge == "" {
		utils.BadRequest(c, "patientName and patientAge are required")
		return
	}

	form, err := c.MultipartForm()
	var processed []ingest.ProcessedFile
	if err == nil && form != nil {
		processed = h.Processor.ProcessAll(form.File["files"])
	}

	if reportData == "" && len(processed) == 0 {
		utils.BadRequest(c, "Either report text or at least one file is required")
		return
	}
	if len(processed) == 0 && len([]rune(reportData)) < minReportTextLen {
		utils.BadRequest(c, "Report text is too short for analysis")
		return
	}

	input := analysis.PromptInput{
		PatientName:   patientName,
		PatientAge:    patientAge,
		PatientGender: patientGender,
		ExamDate:      examDate,
		ReportData:    reportData,
		Files:         processed,
	}

	result, err := h.Service.Analyze(c.Request.Context(), input, func(p analysis.Progress) {
		log.Printf("analysis progress user=%s orchestrator=%s imaging=%s lab=%s history=%s comprehensive=%s",
			userID, p.Orchestrator, p.Imaging, p.Lab, p.History, p.Comprehensive)
	})
	if err != nil {
		utils.InternalServerError(c, "Analysis failed, please try again later")
		return
	}

	report := models.HealthReport{
		UserID:         userID,
		PatientName:    patientName,
		PatientAge:     patientAge,
		PatientGender:  patientGender,
		ExamDate:       examDate,
		ReportData:     reportData,
		UploadedFiles:  fileRecords(processed),
		AnalysisResult: models.StoredAnalysis(*result.Report),
	}
	if err := h.DB.Create(&report).Error; err != nil {
		utils.InternalServerError(c, "Failed to persist report: "+err.Error())
		return
	}

	utils.Created(c, "Analysis completed", gin.H{
		"reportId":       report.ID,
		"analysis":       result.Report,
		"processedFiles": len(processed),
		"degraded":       result.Degraded,
	})
}

// GetReports returns the authenticated user's reports, newest first.
func (h *ReportHandler) GetReports(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var reports []models.HealthReport
	if err := h.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	utils.Success(c, "Reports fetched successfully", reports)
}

// GetReportByID returns one report. A report owned by someone else is
// reported as not found, never as forbidden.
func (h *ReportHandler) GetReportByID(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var report models.HealthReport
	if err := h.DB.First(&report, "id = ? AND user_id = ?", c.Param("id"), userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Report fetched successfully", report)
}

// GetReportsByPatient returns the user's reports for one patient name,
// oldest first, for same-patient historical comparison. Scoped to the
// authenticated user like every other report read.
func (h *ReportHandler) GetReportsByPatient(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var reports []models.HealthReport
	if err := h.DB.Where("user_id = ? AND patient_name = ?", userID, c.Param("name")).
		Order("created_at asc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}

	utils.Success(c, "Reports fetched successfully", reports)
}

// DeleteReport deletes a report iff the caller owns it.
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var report models.HealthReport
	if err := h.DB.First(&report, "id = ? AND user_id = ?", c.Param("id"), userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Report not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&report).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete report: "+err.Error())
		return
	}

	utils.Success(c, "Report deleted successfully", nil)
}

// CompareReportsRequest represents the request body for report comparison.
type CompareReportsRequest struct {
	ReportIDs []string `json:"reportIds" binding:"required,min=2"`
}

// CompareReports runs the comparison engine over the selected reports.
// Selection is validated before the engine or the database is touched.
func (h *ReportHandler) CompareReports(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CompareReportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "At least two report ids are required for comparison")
		return
	}

	var reports []models.HealthReport
	if err := h.DB.Where("id IN ? AND user_id = ?", req.ReportIDs, userID).
		Order("created_at asc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reports: "+err.Error())
		return
	}
	if len(reports) < 2 {
		utils.NotFound(c, "Fewer than two of the selected reports were found")
		return
	}

	snapshots := make([]analysis.ReportSnapshot, 0, len(reports))
	for i := range reports {
		snapshots = append(snapshots, snapshotOf(&reports[i]))
	}

	result, err := h.Engine.Compare(c.Request.Context(), snapshots)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	utils.Success(c, "Comparison completed", result)
}

// ChatMessage answers a chat turn grounded in the user's report history.
// Multipart: message + optional files.
func (h *ReportHandler) ChatMessage(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	message := strings.TrimSpace(c.PostForm("message"))

	form, err := c.MultipartForm()
	var processed []ingest.ProcessedFile
	if err == nil && form != nil {
		processed = h.Processor.ProcessAll(form.File["files"])
	}

	if message == "" && len(processed) == 0 {
		utils.BadRequest(c, "Either a message or at least one file is required")
		return
	}

	var reports []models.HealthReport
	if err := h.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&reports).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch report history: "+err.Error())
		return
	}

	history := make([]analysis.ReportSnapshot, 0, len(reports))
	for i := range reports {
		history = append(history, snapshotOf(&reports[i]))
	}

	reply, err := h.Chat.Reply(c.Request.Context(), message, processed, history)
	if err != nil {
		utils.InternalServerError(c, "Chat processing failed, please try again")
		return
	}

	utils.Success(c, "Chat reply generated", gin.H{"message": reply})
}

// SummarizeRequest represents the request body for a quick summary.
type SummarizeRequest struct {
	ReportData string `json:"reportData" binding:"required"`
}

// Summarize returns a quick narrative summary of raw report text.
func (h *ReportHandler) Summarize(c *gin.Context) {
	var req SummarizeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	summary, err := h.Service.Summarize(c.Request.Context(), req.ReportData)
	if err != nil {
		utils.InternalServerError(c, "Summary generation failed, please try again")
		return
	}

	utils.Success(c, "Summary generated", gin.H{"summary": summary})
}

func snapshotOf(r *models.HealthReport) analysis.ReportSnapshot {
	return analysis.ReportSnapshot{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		ExamDate:    r.ExamDate,
		PatientName: r.PatientName,
		PatientAge:  r.PatientAge,
		ReportData:  r.ReportData,
		Analysis:    r.Analysis(),
	}
}

func fileRecords(files []ingest.ProcessedFile) models.FileRecords {
	if len(files) == 0 {
		return nil
	}
	records := make(models.FileRecords, 0, len(files))
	for _, f := range files {
		records = append(records, models.FileRecord{
			Filename:      f.Filename,
			OriginalName:  f.OriginalName,
			MimeType:      f.MimeType,
			Size:          f.Size,
			Category:      string(f.Category),
			ExtractedText: f.ExtractedText,
			Metadata:      f.Metadata,
		})
	}
	return records
}
