package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse-backend/internal/core/provider"
	"github.com/pixelmuse/pixelmuse-backend/internal/core/router"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/models"
)

// --- in-memory fakes ---

type fakeTemplateRepo struct {
	templates  map[string]*models.Template
	directives map[string]string
	usage      map[string]int
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{
		templates:  map[string]*models.Template{},
		directives: map[string]string{},
		usage:      map[string]int{},
	}
}

func (f *fakeTemplateRepo) add(t *models.Template, directive string) {
	f.templates[t.ID.String()] = t
	f.directives[t.ID.String()] = directive
}

func (f *fakeTemplateRepo) GetByID(id string) (*models.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeTemplateRepo) ListPublished(category string, limit int) ([]models.Template, error) {
	return nil, nil
}

func (f *fakeTemplateRepo) GetDirective(id string) (string, error) {
	d, ok := f.directives[id]
	if !ok || d == "" {
		return "", gorm.ErrRecordNotFound
	}
	return d, nil
}

func (f *fakeTemplateRepo) IncrementUsage(id string) error {
	f.usage[id]++
	return nil
}

func (f *fakeTemplateRepo) IncrementLikes(id string) error { return nil }

type fakeBalanceRepo struct {
	mu       sync.Mutex
	credits  map[uuid.UUID]int
	used     map[uuid.UUID]int
	refunds  int
	debits   int
	genCount map[uuid.UUID]int64
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{
		credits:  map[uuid.UUID]int{},
		used:     map[uuid.UUID]int{},
		genCount: map[uuid.UUID]int64{},
	}
}

func (f *fakeBalanceRepo) GetByUserID(userID uuid.UUID) (*models.UserBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.UserBalance{UserID: userID, Credits: f.credits[userID], CreditsUsed: f.used[userID]}, nil
}

func (f *fakeBalanceRepo) CreateForUser(userID uuid.UUID, initialCredits int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits[userID] = initialCredits
	return nil
}

func (f *fakeBalanceRepo) TryDebit(userID uuid.UUID, amount int, generationID *uuid.UUID, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credits[userID] < amount {
		return false, nil
	}
	f.credits[userID] -= amount
	f.used[userID] += amount
	f.debits++
	return true, nil
}

func (f *fakeBalanceRepo) Grant(userID uuid.UUID, amount int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits[userID] += amount
	return nil
}

func (f *fakeBalanceRepo) Refund(userID uuid.UUID, amount int, generationID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits[userID] += amount
	f.refunds++
	return nil
}

func (f *fakeBalanceRepo) IncrementGenerationCount(userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCount[userID]++
	return nil
}

type fakeGenerationRepo struct {
	mu      sync.Mutex
	records map[string]*models.Generation
	updates map[string][]map[string]interface{}
}

func newFakeGenerationRepo() *fakeGenerationRepo {
	return &fakeGenerationRepo{
		records: map[string]*models.Generation{},
		updates: map[string][]map[string]interface{}{},
	}
}

func (f *fakeGenerationRepo) Create(g *models.Generation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	f.records[g.ID.String()] = g
	return nil
}

func (f *fakeGenerationRepo) Update(id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = append(f.updates[id], fields)
	return nil
}

func (f *fakeGenerationRepo) GetByID(id string) (*models.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (f *fakeGenerationRepo) GetByUserID(userID string, limit int) ([]models.Generation, error) {
	return nil, nil
}

func (f *fakeGenerationRepo) FailStaleProcessing(olderThan time.Time, message string) (int64, error) {
	return 0, nil
}

func (f *fakeGenerationRepo) lastUpdate(id string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ups := f.updates[id]
	if len(ups) == 0 {
		return nil
	}
	return ups[len(ups)-1]
}

type fakeDispatcher struct {
	mu            sync.Mutex
	artifacts     []provider.Artifact
	err           error
	lastDirective string
	lastOpts      router.TemplateOptions
	calls         int
}

func (f *fakeDispatcher) ResolveTool(tool router.ToolType) (router.ToolConfig, error) {
	if tool == "generate-image" {
		return router.ToolConfig{Provider: provider.ProviderOpenAI, Cost: 1, Model: "dall-e-3"}, nil
	}
	return router.ToolConfig{}, router.ErrUnknownTool
}

func (f *fakeDispatcher) GenerateFromTemplate(ctx context.Context, directive string, opts router.TemplateOptions) ([]provider.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastDirective = directive
	f.lastOpts = opts
	return f.artifacts, f.err
}

func (f *fakeDispatcher) RunTool(ctx context.Context, tool router.ToolType, req *router.ToolRequest) ([]provider.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.artifacts, f.err
}

type fakeStorage struct {
	mu   sync.Mutex
	puts int
}

func (f *fakeStorage) PutArtifact(ctx context.Context, userID, generationID string, index int, data []byte, ext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	return fmt.Sprintf("https://storage.local/generations/%s/%s_%d%s", userID, generationID, index, ext), nil
}

func (f *fakeStorage) GetProviderName() string { return "fake" }

// --- fixtures ---

type fixture struct {
	svc       *GenerationService
	templates *fakeTemplateRepo
	balances  *fakeBalanceRepo
	gens      *fakeGenerationRepo
	disp      *fakeDispatcher
	store     *fakeStorage
	userID    uuid.UUID
	template  *models.Template
}

func newFixture(refund bool) *fixture {
	templates := newFakeTemplateRepo()
	balances := newFakeBalanceRepo()
	gens := newFakeGenerationRepo()
	disp := &fakeDispatcher{
		artifacts: []provider.Artifact{{Data: []byte("png"), MIME: "image/png", Kind: provider.KindImage}},
	}
	store := &fakeStorage{}

	template := &models.Template{
		ID:          uuid.New(),
		Title:       "Neon Portrait",
		CreditCost:  2,
		AspectRatio: "1:1",
		Status:      models.TemplateStatusPublished,
	}
	templates.add(template, "hyperdetailed neon portrait, secret house style")

	userID := uuid.New()
	balances.credits[userID] = 10

	svc := NewGenerationService(templates, balances, gens, disp, store, time.Minute, refund)
	return &fixture{
		svc: svc, templates: templates, balances: balances, gens: gens,
		disp: disp, store: store, userID: userID, template: template,
	}
}

// --- tests ---

func TestTemplateGenerationHappyPath(t *testing.T) {
	f := newFixture(false)

	rec, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{Style: "anime"})
	if err != nil {
		t.Fatalf("GenerateFromTemplate returned error: %v", err)
	}

	if rec.Status != models.GenerationStatusCompleted {
		t.Errorf("status = %s, want completed", rec.Status)
	}
	if rec.CreditsCharged != 2 {
		t.Errorf("credits charged = %d, want 2", rec.CreditsCharged)
	}
	if rec.OutputURL == "" || rec.OutputType != models.OutputTypeImage {
		t.Errorf("output not recorded: url=%q type=%q", rec.OutputURL, rec.OutputType)
	}
	if f.balances.credits[f.userID] != 8 {
		t.Errorf("balance = %d, want 8", f.balances.credits[f.userID])
	}
	if f.disp.lastDirective != "hyperdetailed neon portrait, secret house style" {
		t.Errorf("directive not passed through: %q", f.disp.lastDirective)
	}
	if f.templates.usage[f.template.ID.String()] != 1 {
		t.Error("template usage not incremented")
	}
	if f.balances.genCount[f.userID] != 1 {
		t.Error("generation count not incremented")
	}
	if f.store.puts != 1 {
		t.Errorf("expected 1 artifact persisted, got %d", f.store.puts)
	}
}

func TestTemplateFallsBackToTemplateDefaults(t *testing.T) {
	f := newFixture(false)
	f.template.ModelSlug = "gemini-2.5-flash-image"
	f.template.AspectRatio = "9:16"

	_, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if err != nil {
		t.Fatalf("GenerateFromTemplate returned error: %v", err)
	}
	if f.disp.lastOpts.Model != "gemini-2.5-flash-image" || f.disp.lastOpts.AspectRatio != "9:16" {
		t.Errorf("template defaults not applied: %+v", f.disp.lastOpts)
	}
}

func TestTemplateNotFound(t *testing.T) {
	f := newFixture(false)

	_, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, uuid.NewString(), &TemplateGenerationRequest{})
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	if f.balances.credits[f.userID] != 10 {
		t.Error("credits must not move for a missing template")
	}
}

func TestTemplateDraftRejected(t *testing.T) {
	f := newFixture(false)
	f.template.Status = models.TemplateStatusDraft

	_, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("draft template should read as not found, got %v", err)
	}
}

func TestInsufficientCreditsFailsClosed(t *testing.T) {
	f := newFixture(false)
	f.balances.credits[f.userID] = 1 // template costs 2

	rec, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})

	var insufficient *InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if insufficient.Need != 2 || insufficient.Have != 1 {
		t.Errorf("shortfall = need %d have %d, want need 2 have 1", insufficient.Need, insufficient.Have)
	}
	if f.disp.calls != 0 {
		t.Error("provider must not be called without a successful debit")
	}
	if f.balances.credits[f.userID] != 1 {
		t.Error("balance must be untouched on insufficient credits")
	}
	if rec.Status != models.GenerationStatusFailed {
		t.Errorf("record status = %s, want failed", rec.Status)
	}
}

func TestProviderFailureKeepsChargeByDefault(t *testing.T) {
	f := newFixture(false)
	f.disp.err = errors.New("Runway error (status: 500): internal worker crash")

	rec, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if err == nil {
		t.Fatal("expected dispatch error")
	}

	if f.balances.credits[f.userID] != 8 {
		t.Errorf("charge must stand without refund policy, balance = %d", f.balances.credits[f.userID])
	}
	if f.balances.refunds != 0 {
		t.Error("no refund expected with the policy disabled")
	}
	if rec.Status != models.GenerationStatusFailed {
		t.Errorf("record status = %s, want failed", rec.Status)
	}
	if !strings.Contains(rec.ErrorMessage, "internal worker crash") {
		t.Errorf("provider error text not captured verbatim: %q", rec.ErrorMessage)
	}
}

func TestProviderFailureRefundsWhenEnabled(t *testing.T) {
	f := newFixture(true)
	f.disp.err = errors.New("provider exploded")

	_, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if err == nil {
		t.Fatal("expected dispatch error")
	}
	if f.balances.refunds != 1 {
		t.Errorf("expected 1 refund, got %d", f.balances.refunds)
	}
	if f.balances.credits[f.userID] != 10 {
		t.Errorf("balance after refund = %d, want 10", f.balances.credits[f.userID])
	}
}

func TestEmptyOutputIsFailure(t *testing.T) {
	f := newFixture(false)
	f.disp.artifacts = nil

	rec, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if !errors.Is(err, ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}
	if rec.Status != models.GenerationStatusFailed {
		t.Errorf("record status = %s, want failed", rec.Status)
	}
}

func TestDirectiveUnavailableAfterDebit(t *testing.T) {
	f := newFixture(false)
	f.templates.directives[f.template.ID.String()] = ""

	_, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if !errors.Is(err, ErrDirectiveUnavailable) {
		t.Fatalf("expected ErrDirectiveUnavailable, got %v", err)
	}
	if f.disp.calls != 0 {
		t.Error("dispatcher must not run without a directive")
	}
}

func TestToolGenerationHappyPath(t *testing.T) {
	f := newFixture(false)

	rec, err := f.svc.GenerateWithTool(context.Background(), f.userID, "generate-image", &router.ToolRequest{Prompt: "a red bicycle"})
	if err != nil {
		t.Fatalf("GenerateWithTool returned error: %v", err)
	}
	if rec.Source != models.GenerationSourceTool || rec.ToolType != "generate-image" {
		t.Errorf("tool provenance not recorded: %+v", rec)
	}
	if rec.CreditsCharged != 1 {
		t.Errorf("credits charged = %d, want 1", rec.CreditsCharged)
	}
	if f.balances.credits[f.userID] != 9 {
		t.Errorf("balance = %d, want 9", f.balances.credits[f.userID])
	}
}

func TestToolUnknownRejectedBeforeDebit(t *testing.T) {
	f := newFixture(false)

	_, err := f.svc.GenerateWithTool(context.Background(), f.userID, "colorize", &router.ToolRequest{})
	if !errors.Is(err, router.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	if f.balances.credits[f.userID] != 10 {
		t.Error("credits must not move for an unknown tool")
	}
}

func TestVideoArtifactRecordsVideoType(t *testing.T) {
	f := newFixture(false)
	f.disp.artifacts = []provider.Artifact{{Data: []byte("mp4"), MIME: "video/mp4", Kind: provider.KindVideo}}

	rec, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if err != nil {
		t.Fatalf("GenerateFromTemplate returned error: %v", err)
	}
	if rec.OutputType != models.OutputTypeVideo {
		t.Errorf("output type = %s, want video", rec.OutputType)
	}
}

func TestConcurrentDebitsNeverOversell(t *testing.T) {
	f := newFixture(false)
	f.balances.credits[f.userID] = 5 // template costs 2, room for exactly 2 runs

	const attempts = 10
	var wg sync.WaitGroup
	var successes, insufficient int32
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
			mu.Lock()
			defer mu.Unlock()
			var ice *InsufficientCreditsError
			switch {
			case err == nil:
				successes++
			case errors.As(err, &ice):
				insufficient++
			}
		}()
	}
	wg.Wait()

	if successes != 2 {
		t.Errorf("successes = %d, want exactly 2", successes)
	}
	if insufficient != attempts-2 {
		t.Errorf("insufficient = %d, want %d", insufficient, attempts-2)
	}
	if f.balances.credits[f.userID] != 1 {
		t.Errorf("final balance = %d, want 1 (never negative)", f.balances.credits[f.userID])
	}
}

func TestCreditServiceGrant(t *testing.T) {
	balances := newFakeBalanceRepo()
	userID := uuid.New()
	balances.credits[userID] = 3
	svc := NewCreditService(balances)

	if err := svc.Grant(userID, 10, "promo"); err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if balances.credits[userID] != 13 {
		t.Errorf("balance = %d, want 13", balances.credits[userID])
	}

	if err := svc.Grant(userID, 0, ""); err == nil {
		t.Error("zero grant must be rejected")
	}
	if err := svc.Grant(userID, -5, ""); err == nil {
		t.Error("negative grant must be rejected")
	}

	balance, err := svc.GetBalance(userID)
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if balance.Credits != 13 {
		t.Errorf("GetBalance credits = %d, want 13", balance.Credits)
	}
}

func TestGenerationRecordLifecycleUpdates(t *testing.T) {
	f := newFixture(false)

	rec, err := f.svc.GenerateFromTemplate(context.Background(), f.userID, f.template.ID.String(), &TemplateGenerationRequest{})
	if err != nil {
		t.Fatalf("GenerateFromTemplate returned error: %v", err)
	}

	last := f.gens.lastUpdate(rec.ID.String())
	if last == nil {
		t.Fatal("record was never reconciled")
	}
	if last["status"] != models.GenerationStatusCompleted {
		t.Errorf("final update status = %v, want completed", last["status"])
	}
	if last["output_url"] == "" {
		t.Error("final update missing output url")
	}
}
