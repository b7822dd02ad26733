package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/magellan/internal/document/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

type memDocRepo struct {
	docs   map[string]*domain.ApplicationDocument
	nextID uint
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{docs: map[string]*domain.ApplicationDocument{}, nextID: 1}
}

func (r *memDocRepo) Create(_ context.Context, doc *domain.ApplicationDocument) error {
	doc.ID = r.nextID
	r.nextID++
	r.docs[doc.DocumentID] = doc
	return nil
}

func (r *memDocRepo) Update(_ context.Context, doc *domain.ApplicationDocument) error {
	r.docs[doc.DocumentID] = doc
	return nil
}

func (r *memDocRepo) GetByDocumentID(_ context.Context, documentID string) (*domain.ApplicationDocument, error) {
	return r.docs[documentID], nil
}

func (r *memDocRepo) GetByRequirement(_ context.Context, applicationID string, requirementID uint) (*domain.ApplicationDocument, error) {
	for _, d := range r.docs {
		if d.ApplicationID == applicationID && d.RequirementID == requirementID {
			return d, nil
		}
	}
	return nil, nil
}

func (r *memDocRepo) ListByApplication(_ context.Context, applicationID string) ([]*domain.ApplicationDocument, error) {
	var out []*domain.ApplicationDocument
	for _, d := range r.docs {
		if d.ApplicationID == applicationID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDocRepo) ListByStage(_ context.Context, applicationID string, stageID uint) ([]*domain.ApplicationDocument, error) {
	var out []*domain.ApplicationDocument
	for _, d := range r.docs {
		if d.ApplicationID == applicationID && d.StageID == stageID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDocRepo) ListExpiring(_ context.Context, before time.Time, _ int) ([]*domain.ApplicationDocument, error) {
	var out []*domain.ApplicationDocument
	for _, d := range r.docs {
		if d.Status == domain.StatusApproved && d.ExpirationMonths != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDocRepo) CountByStatus(_ context.Context) (map[domain.DocumentStatus]int64, error) {
	out := map[domain.DocumentStatus]int64{}
	for _, d := range r.docs {
		out[d.Status]++
	}
	return out, nil
}

func (r *memDocRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCatalog struct {
	reqs map[uint]*domain.RequirementInfo
}

func (c *fakeCatalog) GetRequirement(_ context.Context, id uint) (*domain.RequirementInfo, error) {
	req, ok := c.reqs[id]
	if !ok {
		return nil, apperrors.NotFound("requirement", "unknown")
	}
	return req, nil
}

func (c *fakeCatalog) ValidateFile(_ context.Context, id uint, fileName string, sizeBytes int64) error {
	if sizeBytes > 5*1024*1024 {
		return apperrors.Validation("file exceeds 5MB limit")
	}
	return nil
}

type recordingProgress struct {
	calls []uint
}

func (p *recordingProgress) StageChanged(_ context.Context, _ string, stageID uint) error {
	p.calls = append(p.calls, stageID)
	return nil
}

type recordingTracker struct {
	inits []string
}

func (t *recordingTracker) InitTracking(_ context.Context, documentID, _ string, _, _ uint, _ string, _ bool, _ time.Time) error {
	t.inits = append(t.inits, documentID)
	return nil
}

type noopPublisher struct {
	topics []string
}

func (p *noopPublisher) Publish(_ context.Context, topic string, _ string, _ any) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *noopPublisher) PublishInTx(_ context.Context, _ any, topic string, _ string, _ any) error {
	p.topics = append(p.topics, topic)
	return nil
}

type fixture struct {
	svc       *CommandService
	repo      *memDocRepo
	progress  *recordingProgress
	tracker   *recordingTracker
	publisher *noopPublisher
}

func newFixture() *fixture {
	repo := newMemDocRepo()
	catalog := &fakeCatalog{reqs: map[uint]*domain.RequirementInfo{
		10: {ID: 10, ProgramID: "PRG1", StageID: 2, Name: "Passport Copy", Category: "personal", IsRequired: true, TracksOriginal: true},
		11: {ID: 11, ProgramID: "PRG1", StageID: 2, Name: "Bank Statement", Category: "financial", IsRequired: true},
		12: {ID: 12, ProgramID: "PRG1", StageID: 2, Name: "Marriage Certificate", Category: "legal", IsRequired: false, TracksOriginal: true},
	}}
	progress := &recordingProgress{}
	tracker := &recordingTracker{}
	publisher := &noopPublisher{}
	svc := NewCommandService(repo, catalog, progress, tracker, publisher, slog.Default())
	return &fixture{svc: svc, repo: repo, progress: progress, tracker: tracker, publisher: publisher}
}

func upload(t *testing.T, f *fixture, requirementID uint) *domain.ApplicationDocument {
	t.Helper()
	doc, err := f.svc.Upload(context.Background(), UploadCommand{
		ApplicationID: "APP1",
		RequirementID: requirementID,
		FileName:      "scan.pdf",
		FileURL:       "s3://docs/scan.pdf",
		FileSizeBytes: 1024,
		UploadedBy:    "client-1",
	})
	require.NoError(t, err)
	return doc
}

func TestUploadCreatesDocument(t *testing.T) {
	f := newFixture()

	doc := upload(t, f, 10)
	assert.Equal(t, domain.StatusUploaded, doc.Status)
	assert.NotEmpty(t, doc.DocumentID)
	assert.Equal(t, uint(2), doc.StageID)
	assert.Contains(t, f.publisher.topics, domain.DocumentUploadedEventType)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Upload(context.Background(), UploadCommand{
		ApplicationID: "APP1",
		RequirementID: 10,
		FileName:      "scan.pdf",
		FileURL:       "s3://docs/scan.pdf",
		FileSizeBytes: 50 * 1024 * 1024,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestApproveTriggersProgressAndOriginals(t *testing.T) {
	f := newFixture()
	doc := upload(t, f, 10)

	_, err := f.svc.StartReview(context.Background(), doc.DocumentID)
	require.NoError(t, err)

	approved, err := f.svc.Approve(context.Background(), ApproveCommand{DocumentID: doc.DocumentID, ReviewedBy: "advisor-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	// personal 类别参与原件追踪
	assert.Equal(t, []string{doc.DocumentID}, f.tracker.inits)
	assert.Equal(t, []uint{2}, f.progress.calls)
	assert.Contains(t, f.publisher.topics, domain.DocumentApprovedEventType)
}

func TestApproveFinancialSkipsOriginals(t *testing.T) {
	f := newFixture()
	doc := upload(t, f, 11)

	_, err := f.svc.StartReview(context.Background(), doc.DocumentID)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), ApproveCommand{DocumentID: doc.DocumentID, ReviewedBy: "advisor-1"})
	require.NoError(t, err)

	assert.Empty(t, f.tracker.inits)
}

func TestRejectThenReapproveRoundTrip(t *testing.T) {
	f := newFixture()
	doc := upload(t, f, 11)

	_, err := f.svc.StartReview(context.Background(), doc.DocumentID)
	require.NoError(t, err)
	_, err = f.svc.Reject(context.Background(), RejectCommand{DocumentID: doc.DocumentID, ReviewedBy: "advisor-1", Reason: "illegible"})
	require.NoError(t, err)

	// 重传 → 评审 → 通过，最终贡献与首轮直接通过一致
	reuploaded := upload(t, f, 11)
	assert.Equal(t, doc.DocumentID, reuploaded.DocumentID)

	_, err = f.svc.StartReview(context.Background(), doc.DocumentID)
	require.NoError(t, err)
	final, err := f.svc.Approve(context.Background(), ApproveCommand{DocumentID: doc.DocumentID, ReviewedBy: "advisor-2"})
	require.NoError(t, err)
	assert.True(t, final.CountsTowardCompletion())
}

func TestRejectWithoutReason(t *testing.T) {
	f := newFixture()
	doc := upload(t, f, 11)
	_, err := f.svc.StartReview(context.Background(), doc.DocumentID)
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), RejectCommand{DocumentID: doc.DocumentID, ReviewedBy: "advisor-1"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestWaiveConditionalRequirement(t *testing.T) {
	f := newFixture()

	// 尚无上传记录也可以豁免，会先落一条 pending 记录
	err := f.svc.Waive(context.Background(), "APP1", 12, "advisor-1")
	require.NoError(t, err)

	doc, err := f.repo.GetByRequirement(context.Background(), "APP1", 12)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, doc.Waived)
	assert.Equal(t, domain.StatusPending, doc.Status)
	assert.Equal(t, []uint{2}, f.progress.calls)
}

func TestWaiveMandatoryRequirementFails(t *testing.T) {
	f := newFixture()

	err := f.svc.Waive(context.Background(), "APP1", 10, "advisor-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestExpireDueDocuments(t *testing.T) {
	f := newFixture()
	six := 6
	doc := domain.NewApplicationDocument("DOCX", "APP1", 11, 2, "financial", &six)
	uploaded := time.Now().AddDate(0, -7, 0)
	require.NoError(t, doc.AttachFile("f.pdf", "url", 1, "c", uploaded))
	require.NoError(t, doc.StartReview())
	require.NoError(t, doc.Approve("a", "", uploaded))
	require.NoError(t, f.repo.Create(context.Background(), doc))

	expired, err := f.svc.ExpireDueDocuments(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, domain.StatusExpired, doc.Status)
	assert.Contains(t, f.publisher.topics, domain.DocumentExpiredEventType)
}
