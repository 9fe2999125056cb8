package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse-backend/internal/core/provider"
	"github.com/pixelmuse/pixelmuse-backend/internal/core/router"
	"github.com/pixelmuse/pixelmuse-backend/internal/core/storage"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/repositories"
	"github.com/pixelmuse/pixelmuse-backend/internal/shared/utils"
)

// Dispatcher is the slice of the provider router the pipeline needs.
type Dispatcher interface {
	ResolveTool(tool router.ToolType) (router.ToolConfig, error)
	GenerateFromTemplate(ctx context.Context, directive string, opts router.TemplateOptions) ([]provider.Artifact, error)
	RunTool(ctx context.Context, tool router.ToolType, req *router.ToolRequest) ([]provider.Artifact, error)
}

// GenerationService runs the credit-gated generation pipeline:
// record → debit → dispatch → persist → reconcile. Credits move if and
// only if the attempt reaches dispatch; retries are brand-new attempts.
type GenerationService struct {
	templateRepo   repositories.TemplateRepo
	balanceRepo    repositories.BalanceRepo
	generationRepo repositories.GenerationRepo
	dispatcher     Dispatcher
	storage        storage.Provider

	timeout         time.Duration // outer deadline around dispatch+persist
	refundOnFailure bool          // policy: credit back post-debit failures
	httpClient      *http.Client  // downloads provider-hosted artifacts
}

func NewGenerationService(
	templateRepo repositories.TemplateRepo,
	balanceRepo repositories.BalanceRepo,
	generationRepo repositories.GenerationRepo,
	dispatcher Dispatcher,
	storageProvider storage.Provider,
	timeout time.Duration,
	refundOnFailure bool,
) *GenerationService {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &GenerationService{
		templateRepo:    templateRepo,
		balanceRepo:     balanceRepo,
		generationRepo:  generationRepo,
		dispatcher:      dispatcher,
		storage:         storageProvider,
		timeout:         timeout,
		refundOnFailure: refundOnFailure,
		httpClient:      &http.Client{Timeout: 2 * time.Minute},
	}
}

// TemplateGenerationRequest are the caller-chosen knobs; the directive
// itself never appears here.
type TemplateGenerationRequest struct {
	AspectRatio string
	Model       string
	Style       string
	Count       int
}

// GenerateFromTemplate runs one template generation attempt end to end.
func (s *GenerationService) GenerateFromTemplate(ctx context.Context, userID uuid.UUID, templateID string, req *TemplateGenerationRequest) (*models.Generation, error) {
	template, err := s.templateRepo.GetByID(templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownTemplate
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if template.Status != models.TemplateStatusPublished {
		return nil, ErrUnknownTemplate
	}

	opts := router.TemplateOptions{
		AspectRatio: req.AspectRatio,
		Model:       req.Model,
		Style:       req.Style,
		Count:       req.Count,
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = template.AspectRatio
	}
	if opts.Model == "" {
		opts.Model = template.ModelSlug
	}

	rec := &models.Generation{
		UserID:      userID,
		Source:      models.GenerationSourceTemplate,
		TemplateID:  &template.ID,
		ModelSlug:   opts.Model,
		AspectRatio: opts.AspectRatio,
		Status:      models.GenerationStatusPending,
	}

	dispatch := func(ctx context.Context) ([]provider.Artifact, error) {
		directive, err := s.templateRepo.GetDirective(templateID)
		if err != nil {
			return nil, ErrDirectiveUnavailable
		}
		return s.dispatcher.GenerateFromTemplate(ctx, directive, opts)
	}

	err = s.run(ctx, rec, template.CreditCost, "template:"+template.Title, dispatch)
	if err != nil {
		return rec, err
	}

	if err := s.templateRepo.IncrementUsage(templateID); err != nil {
		utils.LogWarn("failed to increment template usage", map[string]interface{}{
			"template_id": templateID, "error": err.Error(),
		})
	}
	return rec, nil
}

// GenerateWithTool runs one tool generation attempt end to end.
func (s *GenerationService) GenerateWithTool(ctx context.Context, userID uuid.UUID, tool router.ToolType, req *router.ToolRequest) (*models.Generation, error) {
	tc, err := s.dispatcher.ResolveTool(tool)
	if err != nil {
		return nil, err
	}

	rec := &models.Generation{
		UserID:      userID,
		Source:      models.GenerationSourceTool,
		ToolType:    string(tool),
		ModelSlug:   tc.Model,
		AspectRatio: req.AspectRatio,
		Status:      models.GenerationStatusPending,
	}

	dispatch := func(ctx context.Context) ([]provider.Artifact, error) {
		return s.dispatcher.RunTool(ctx, tool, req)
	}

	err = s.run(ctx, rec, tc.Cost, "tool:"+string(tool), dispatch)
	return rec, err
}

// run is the shared state machine: pending record (best-effort) →
// atomic debit → dispatch under the outer deadline → persist artifacts →
// reconcile the record and counters.
func (s *GenerationService) run(ctx context.Context, rec *models.Generation, cost int, reason string, dispatch func(context.Context) ([]provider.Artifact, error)) error {
	started := time.Now()

	// Best-effort accounting entry before any money moves. Its failure
	// is logged but does not block the attempt.
	recorded := true
	if err := s.generationRepo.Create(rec); err != nil {
		recorded = false
		utils.LogWarn("failed to create pending generation record", map[string]interface{}{
			"user_id": rec.UserID.String(), "error": err.Error(),
		})
	}

	var generationID *uuid.UUID
	if recorded {
		generationID = &rec.ID
	}

	debited, err := s.balanceRepo.TryDebit(rec.UserID, cost, generationID, reason)
	if err != nil {
		s.markFailed(rec, recorded, "credit debit failed: "+err.Error())
		return fmt.Errorf("credit debit failed: %w", err)
	}
	if !debited {
		have := 0
		if balance, berr := s.balanceRepo.GetByUserID(rec.UserID); berr == nil {
			have = balance.Credits
		}
		insufficientErr := &InsufficientCreditsError{Need: cost, Have: have}
		s.markFailed(rec, recorded, insufficientErr.Error())
		return insufficientErr
	}

	rec.CreditsCharged = cost
	rec.Status = models.GenerationStatusProcessing
	if recorded {
		if err := s.generationRepo.Update(rec.ID.String(), map[string]interface{}{
			"status":          models.GenerationStatusProcessing,
			"credits_charged": cost,
		}); err != nil {
			utils.LogWarn("failed to mark generation processing", map[string]interface{}{
				"generation_id": rec.ID.String(), "error": err.Error(),
			})
		}
	}

	// Outer deadline, distinct from each adapter's own polling ceiling,
	// so a hung provider cannot hold the charged credits in limbo.
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	artifacts, err := dispatch(runCtx)
	if err != nil {
		return s.failAfterCharge(rec, recorded, err)
	}
	if len(artifacts) == 0 {
		return s.failAfterCharge(rec, recorded, ErrEmptyOutput)
	}

	outputURL, outputType, err := s.persistArtifacts(runCtx, rec, artifacts)
	if err != nil {
		return s.failAfterCharge(rec, recorded, err)
	}

	elapsed := time.Since(started)
	rec.OutputURL = outputURL
	rec.OutputType = outputType
	rec.DurationMs = elapsed.Milliseconds()
	rec.Status = models.GenerationStatusCompleted

	if recorded {
		if err := s.generationRepo.Update(rec.ID.String(), map[string]interface{}{
			"status":      models.GenerationStatusCompleted,
			"output_url":  outputURL,
			"output_type": outputType,
			"duration_ms": elapsed.Milliseconds(),
		}); err != nil {
			utils.LogError("failed to reconcile completed generation", err, map[string]interface{}{
				"generation_id": rec.ID.String(),
			})
		}
	}

	if err := s.balanceRepo.IncrementGenerationCount(rec.UserID); err != nil {
		utils.LogWarn("failed to increment generation count", map[string]interface{}{
			"user_id": rec.UserID.String(), "error": err.Error(),
		})
	}

	log.Printf("✅ Generation %s completed for user %s in %s (%d credits)", rec.ID, rec.UserID, elapsed.Round(time.Millisecond), cost)
	return nil
}

// persistArtifacts writes every artifact to durable storage and returns
// the URL and kind of the first one for the record.
func (s *GenerationService) persistArtifacts(ctx context.Context, rec *models.Generation, artifacts []provider.Artifact) (string, string, error) {
	outputURL := ""
	outputType := models.OutputTypeImage

	for i, artifact := range artifacts {
		data := artifact.Data
		if len(data) == 0 {
			if artifact.URL == "" {
				return "", "", ErrEmptyOutput
			}
			downloaded, err := s.download(ctx, artifact.URL)
			if err != nil {
				return "", "", fmt.Errorf("failed to fetch provider artifact: %w", err)
			}
			data = downloaded
		}

		url, err := s.storage.PutArtifact(ctx, rec.UserID.String(), rec.ID.String(), i, data, storage.ExtForMIME(artifact.MIME))
		if err != nil {
			return "", "", fmt.Errorf("failed to persist artifact: %w", err)
		}

		if i == 0 {
			outputURL = url
			if artifact.Kind == provider.KindVideo {
				outputType = models.OutputTypeVideo
			}
		}
	}

	return outputURL, outputType, nil
}

func (s *GenerationService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact download failed (status: %d)", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// failAfterCharge reconciles a post-debit failure: the provider's error
// text is captured verbatim on the record, and the charge stands unless
// the refund policy is enabled.
func (s *GenerationService) failAfterCharge(rec *models.Generation, recorded bool, cause error) error {
	s.markFailed(rec, recorded, cause.Error())

	if s.refundOnFailure && rec.CreditsCharged > 0 {
		var generationID *uuid.UUID
		if recorded {
			generationID = &rec.ID
		}
		if err := s.balanceRepo.Refund(rec.UserID, rec.CreditsCharged, generationID); err != nil {
			utils.LogError("failed to refund credits", err, map[string]interface{}{
				"generation_id": rec.ID.String(), "amount": rec.CreditsCharged,
			})
		}
	}

	return cause
}

func (s *GenerationService) markFailed(rec *models.Generation, recorded bool, message string) {
	rec.Status = models.GenerationStatusFailed
	rec.ErrorMessage = message

	if !recorded {
		return
	}
	if err := s.generationRepo.Update(rec.ID.String(), map[string]interface{}{
		"status":        models.GenerationStatusFailed,
		"error_message": message,
	}); err != nil {
		utils.LogError("failed to mark generation failed", err, map[string]interface{}{
			"generation_id": rec.ID.String(),
		})
	}
}
