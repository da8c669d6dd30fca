package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/safemeals/menu-analysis-service/internal/ai"
	"github.com/safemeals/menu-analysis-service/internal/db"
	"github.com/safemeals/menu-analysis-service/internal/escalate"
	"github.com/safemeals/menu-analysis-service/internal/models"
	"github.com/safemeals/menu-analysis-service/internal/ocr"
	"github.com/safemeals/menu-analysis-service/internal/preprocess"
	"github.com/safemeals/menu-analysis-service/internal/quick"
	"github.com/safemeals/menu-analysis-service/internal/storage"
	"github.com/safemeals/menu-analysis-service/internal/verify"
)

// InputError marks a request the client can fix (bad image payload,
// unknown format, invalid profile data).
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InputError) Unwrap() error { return e.Err }

// Service runs the full two-phase analysis: preprocess and OCR the
// capture, return a deterministic quick verdict fast, and finish the
// AI + DB-cross-check path in the background under a job id.
type Service struct {
	cfg       models.AnalysisConfig
	extractor ocr.TextExtractor
	quick     *quick.Analyzer
	ai        *ai.Analyzer
	verifier  *verify.Verifier
	engine    *escalate.Engine
	jobs      *JobStore
}

// NewService wires the pipeline stages together.
func NewService(cfg models.AnalysisConfig, extractor ocr.TextExtractor, provider ai.Provider) *Service {
	if cfg.FinalDeadlineSeconds <= 0 {
		cfg.FinalDeadlineSeconds = 8
	}
	if cfg.AITimeoutSeconds <= 0 {
		cfg.AITimeoutSeconds = 45
	}
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		quick:     quick.NewAnalyzer(),
		ai:        ai.NewAnalyzer(provider),
		verifier:  verify.NewVerifier(),
		engine:    escalate.NewEngine(),
		jobs:      NewJobStore(time.Duration(cfg.JobRetentionSeconds) * time.Second),
	}
}

// Analyze runs one capture through the pipeline. It always produces the
// quick verdict synchronously, then waits up to the configured deadline
// for the AI path: FINAL when it makes it, PARTIAL with a pollable job id
// when it does not. AI failures within the deadline surface as errors.
func (s *Service) Analyze(ctx context.Context, userID string, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	start := time.Now()

	imageData, mimeType, err := parseDataURI(req.Image)
	if err != nil {
		return nil, &InputError{Message: "invalid image payload", Err: err}
	}

	user, err := s.resolveUserContext(ctx, userID, req.UserContext)
	if err != nil {
		return nil, err
	}

	locale := req.Language
	if locale == "" {
		locale = "en"
	}

	// Normalize the capture. The color buffer after orientation and
	// margin trimming goes to the vision model; the OCR engine gets the
	// grayscale-sharpened variant on top of it.
	pp := preprocess.NewPreprocessor()
	if err := pp.Load(imageData, mimeType); err != nil {
		return nil, &InputError{Message: "could not decode image", Err: err}
	}
	if err := pp.AutoCrop(); err != nil {
		log.Printf("[Pipeline] auto-crop failed, using full frame: %v", err)
	}
	aiBlob := pp.Current().Blob
	originalBlob := pp.Original().Blob

	if err := pp.OptimizeForOCR(); err != nil {
		log.Printf("[Pipeline] OCR optimization failed, using unoptimized frame: %v", err)
	}
	ocrFrame := pp.Current()

	extracted, err := s.extractor.ExtractText(ctx, ocrFrame.Blob, ocrFrame.Width, ocrFrame.Height)
	if err != nil {
		// The quick analyzer turns a failed extraction into a CAUTION
		// verdict; the AI path still sees the full image.
		log.Printf("[Pipeline] OCR failed: %v", err)
		extracted = nil
	}

	quickVerdict := s.quick.Analyze(extracted, user, locale)
	quickMs := time.Since(start).Milliseconds()
	log.Printf("[Pipeline] Quick verdict %s (%v) in %dms", quickVerdict.Level, quickVerdict.TriggerCodes, quickMs)

	job := s.jobs.Create(userID, quickVerdict, quickMs)

	var ocrText string
	if extracted != nil {
		ocrText = extracted.FullText
	}
	go s.finalize(job, finalizeInput{
		userID:       userID,
		locale:       locale,
		user:         user,
		aiBlob:       aiBlob,
		originalBlob: originalBlob,
		ocrText:      ocrText,
		quickMs:      quickMs,
		started:      start,
		platform:     req.DeviceInfo.Platform,
	})

	deadline := time.NewTimer(time.Duration(s.cfg.FinalDeadlineSeconds) * time.Second)
	defer deadline.Stop()

	select {
	case <-job.Done():
		return respondWithFailure(job.Snapshot())
	case <-deadline.C:
		return respondWithFailure(job.Snapshot())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Poll returns the current state of a job. Jobs that failed on a
// malformed AI response return the recorded provider error; transient
// failures still deliver the quick verdict.
func (s *Service) Poll(jobID, userID string) (*models.AnalyzeResponse, error) {
	job, err := s.jobs.Get(jobID, userID)
	if err != nil {
		return nil, err
	}
	return respondWithFailure(job.Snapshot())
}

// respondWithFailure decides how a failed AI path surfaces. A rate limit
// or timeout is transient: the quick verdict stands as a safe interim and
// the caller may retry, so the response carries the verdict plus the
// failure code. A malformed response is a hard failure of the call.
func respondWithFailure(resp *models.AnalyzeResponse, perr *ai.ProviderError) (*models.AnalyzeResponse, error) {
	if perr == nil {
		return resp, nil
	}
	if perr.RateLimit || perr.Timeout {
		resp.ErrorCode = perr.Code
		resp.RetryAfter = perr.RetryAfter
		return resp, nil
	}
	return nil, perr
}

type finalizeInput struct {
	userID       string
	locale       string
	user         models.UserSafetyContext
	aiBlob       []byte
	originalBlob []byte
	ocrText      string
	quickMs      int64
	started      time.Time
	platform     string
}

// finalize runs the slow path detached from the request: AI analysis,
// independent DB cross-check, monotonic escalation, then persistence.
func (s *Service) finalize(job *Job, in finalizeInput) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.AITimeoutSeconds)*time.Second)
	defer cancel()

	analysis, aiElapsed, err := s.ai.Analyze(ctx, in.aiBlob, "jpeg", in.locale, in.user)
	geminiMs := aiElapsed.Milliseconds()
	if err != nil {
		perr := ai.AsProviderError(err)
		log.Printf("[Pipeline] job %s AI analysis failed: %v", job.ID, err)
		timings := models.Timings{QuickMs: in.quickMs, GeminiMs: geminiMs, TotalMs: time.Since(in.started).Milliseconds()}
		job.fail(perr, timings)
		s.persist(job, in, nil, timings)
		return
	}

	checks := s.verifier.VerifyAll(ctx, analysis.Menus, in.user)
	menus, overall := s.engine.Apply(analysis.Menus, checks)

	final := &models.FinalVerdict{
		Menus:      menus,
		Results:    menus,
		Summary:    analysis.Summary,
		Overall:    overall,
		DBEnhanced: in.user.HasAllergies(),
	}
	timings := models.Timings{
		QuickMs:  in.quickMs,
		GeminiMs: geminiMs,
		TotalMs:  time.Since(in.started).Milliseconds(),
	}
	job.completeFinal(final, timings)
	log.Printf("[Pipeline] job %s FINAL: %d items, overall %s in %dms", job.ID, len(menus), overall, timings.TotalMs)

	s.persist(job, in, final, timings)
}

// persist stores the original capture and the analysis record. Both are
// best-effort: the service degrades gracefully without DB or storage.
func (s *Service) persist(job *Job, in finalizeInput, final *models.FinalVerdict, timings models.Timings) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	imageURL := ""
	if storage.Client != nil {
		url, err := storage.UploadMenuImage(ctx, in.userID, job.ID+".jpg",
			bytes.NewReader(in.originalBlob), int64(len(in.originalBlob)), "image/jpeg")
		if err != nil {
			log.Printf("[Pipeline] job %s image upload failed: %v", job.ID, err)
		} else {
			imageURL = url
		}
	}

	resp, _ := job.Snapshot()
	rec := &models.AnalysisRecord{
		UserID:         in.userID,
		JobID:          job.ID,
		ImageURL:       imageURL,
		Language:       in.locale,
		Status:         resp.Status,
		QuickLevel:     resp.QuickResult.Level,
		OCRText:        in.ocrText,
		QuickMs:        timings.QuickMs,
		GeminiMs:       timings.GeminiMs,
		TotalMs:        timings.TotalMs,
		DevicePlatform: in.platform,
	}
	if quickJSON, err := json.Marshal(resp.QuickResult); err == nil {
		rec.QuickJSON = string(quickJSON)
	}
	if final != nil {
		rec.Overall = final.Overall
		rec.ItemCount = len(final.Menus)
		if resultJSON, err := json.Marshal(final); err == nil {
			rec.ResultJSON = string(resultJSON)
		}
	}

	if err := db.SaveAnalysis(ctx, rec); err != nil {
		if err != db.ErrNoDatabase {
			log.Printf("[Pipeline] job %s save failed: %v", job.ID, err)
		}
		return
	}
	log.Printf("[Pipeline] job %s saved as analysis %s", job.ID, rec.ID)
}

// resolveUserContext prefers the profile embedded in the request, falling
// back to the stored profile. Both paths validate severity values.
func (s *Service) resolveUserContext(ctx context.Context, userID string, override *models.UserSafetyContext) (models.UserSafetyContext, error) {
	if override != nil {
		// Allergy and diet codes form sets; duplicates from the client are
		// collapsed keeping the first entry, like the stored-profile loader.
		user := models.UserSafetyContext{}
		seenAllergy := map[string]bool{}
		for _, a := range override.Allergies {
			if a.Code == "" {
				return models.UserSafetyContext{}, &InputError{Message: "allergy entry missing code"}
			}
			if a.Severity != "" && !models.ValidSeverity(a.Severity) {
				return models.UserSafetyContext{}, &InputError{Message: fmt.Sprintf("unknown allergy severity %q", a.Severity)}
			}
			if seenAllergy[a.Code] {
				continue
			}
			seenAllergy[a.Code] = true
			user.Allergies = append(user.Allergies, a)
		}
		seenDiet := map[string]bool{}
		for _, d := range override.Diets {
			if seenDiet[d] {
				continue
			}
			seenDiet[d] = true
			user.Diets = append(user.Diets, d)
		}
		return user, nil
	}

	profile, err := db.GetUserSafetyContext(ctx, userID)
	if err != nil {
		if err != db.ErrNoDatabase {
			log.Printf("[Pipeline] safety context lookup failed for user %s: %v", userID, err)
		}
		return models.UserSafetyContext{}, nil
	}
	return *profile, nil
}

// parseDataURI decodes a base64 data URI ("data:image/jpeg;base64,...").
// Bare base64 without the prefix is accepted and assumed JPEG.
func parseDataURI(uri string) ([]byte, string, error) {
	if uri == "" {
		return nil, "", fmt.Errorf("image is required")
	}

	mimeType := "image/jpeg"
	payload := uri
	if strings.HasPrefix(uri, "data:") {
		idx := strings.Index(uri, ";base64,")
		if idx < 0 {
			return nil, "", fmt.Errorf("data URI is not base64 encoded")
		}
		mimeType = uri[len("data:"):idx]
		payload = uri[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image payload")
	}
	return data, mimeType, nil
}
