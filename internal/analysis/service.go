package analysis

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"health-analysis-server/internal/llm"
)

// Service orchestrates one analysis: prompt building, the generation call,
// response repair and progress reporting. The generation client and model
// name are injected at startup; request handlers share one Service.
type Service struct {
	llm      llm.Client
	model    string
	progress *ProgressTracker
}

// NewService constructs the analysis service.
func NewService(client llm.Client, model string) *Service {
	return &Service{
		llm:      client,
		model:    model,
		progress: NewProgressTracker(),
	}
}

// Progress exposes the tracker, mainly for tests.
func (s *Service) Progress() *ProgressTracker {
	return s.progress
}

// AnalyzeResult pairs the report with whether it was degraded to the
// fallback.
type AnalyzeResult struct {
	Report   *HealthAssessmentReport
	Degraded bool
}

// Analyze runs the full pipeline for one submission. A transport failure of
// the generation call is returned as an error; malformed model output is
// repaired or replaced and never surfaces as an error. The optional callback
// receives simulated stage snapshots while the call runs.
func (s *Service) Analyze(ctx context.Context, in PromptInput, onProgress ProgressCallback) (*AnalyzeResult, error) {
	analysisID := uuid.New().String()

	// finishProgress stops the simulator, emits the terminal snapshot on
	// success, and always removes the callback registration.
	finishProgress := func(success bool) {}
	if onProgress != nil {
		s.progress.Subscribe(analysisID, onProgress)
		simCtx, cancel := context.WithCancel(ctx)
		simDone := make(chan struct{})
		go func() {
			s.progress.Simulate(simCtx, analysisID)
			close(simDone)
		}()
		finishProgress = func(success bool) {
			cancel()
			<-simDone
			if success {
				s.progress.Finish(analysisID)
			}
			s.progress.Unsubscribe(analysisID)
		}
	}

	prompt := BuildAnalysisPrompt(in)
	raw, err := s.llm.GenerateJSON(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		finishProgress(false)
		return nil, fmt.Errorf("generation call failed: %w", err)
	}

	patient := PatientInfo{Name: in.PatientName, Age: in.PatientAge, Gender: in.PatientGender}
	report, degraded := RepairAndValidate(raw, patient, s.model, in.Files)

	finishProgress(true)
	return &AnalyzeResult{Report: report, Degraded: degraded}, nil
}

// Summarize produces a quick narrative summary of raw report text. No schema
// is enforced; the reply is plain text.
func (s *Service) Summarize(ctx context.Context, reportData string) (string, error) {
	reply, err := s.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: summarizeSystemPrompt},
		{Role: "user", Content: reportData},
	})
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	return reply, nil
}
