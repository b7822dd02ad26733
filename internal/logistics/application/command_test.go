package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

type memOriginalRepo struct {
	originals map[string]*domain.OriginalDocument
	nextID    uint
}

func newMemOriginalRepo() *memOriginalRepo {
	return &memOriginalRepo{originals: map[string]*domain.OriginalDocument{}, nextID: 1}
}

func (r *memOriginalRepo) Create(_ context.Context, o *domain.OriginalDocument) error {
	o.ID = r.nextID
	r.nextID++
	r.originals[o.OriginalID] = o
	return nil
}

func (r *memOriginalRepo) Update(_ context.Context, o *domain.OriginalDocument) error {
	r.originals[o.OriginalID] = o
	return nil
}

func (r *memOriginalRepo) Delete(_ context.Context, o *domain.OriginalDocument) error {
	delete(r.originals, o.OriginalID)
	return nil
}

func (r *memOriginalRepo) GetByOriginalID(_ context.Context, originalID string) (*domain.OriginalDocument, error) {
	return r.originals[originalID], nil
}

func (r *memOriginalRepo) GetByDocumentID(_ context.Context, documentID string) (*domain.OriginalDocument, error) {
	for _, o := range r.originals {
		if o.DocumentID == documentID {
			return o, nil
		}
	}
	return nil, nil
}

func (r *memOriginalRepo) ListByApplication(_ context.Context, applicationID string) ([]*domain.OriginalDocument, error) {
	var out []*domain.OriginalDocument
	for _, o := range r.originals {
		if o.ApplicationID == applicationID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOriginalRepo) ListUrgentPending(_ context.Context, _ int) ([]*domain.OriginalDocument, error) {
	var out []*domain.OriginalDocument
	for _, o := range r.originals {
		if o.IsUrgent && (o.Status == domain.StatusOriginalsRequested || o.Status == domain.StatusOriginalsShipped) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOriginalRepo) CountByStatus(_ context.Context, applicationID string) (map[domain.OriginalStatus]int64, error) {
	out := map[domain.OriginalStatus]int64{}
	for _, o := range r.originals {
		if applicationID == "" || o.ApplicationID == applicationID {
			out[o.Status]++
		}
	}
	return out, nil
}

func (r *memOriginalRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingAuthenticator struct {
	marked map[string]time.Time
}

func (a *recordingAuthenticator) MarkAuthenticated(_ context.Context, documentID string, at time.Time) error {
	if a.marked == nil {
		a.marked = map[string]time.Time{}
	}
	a.marked[documentID] = at
	return nil
}

type recordingReadiness struct {
	states map[string]bool
}

func (n *recordingReadiness) SetGovernmentReady(_ context.Context, applicationID string, ready bool) error {
	if n.states == nil {
		n.states = map[string]bool{}
	}
	n.states[applicationID] = ready
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
	repo      *memOriginalRepo
	auth      *recordingAuthenticator
	readiness *recordingReadiness
	publisher *noopPublisher
}

func newFixture() *fixture {
	repo := newMemOriginalRepo()
	auth := &recordingAuthenticator{}
	readiness := &recordingReadiness{}
	publisher := &noopPublisher{}
	svc := NewCommandService(repo, auth, readiness, publisher, slog.Default())
	return &fixture{svc: svc, repo: repo, auth: auth, readiness: readiness, publisher: publisher}
}

func initTracked(t *testing.T, f *fixture, documentID string, requirementID uint, required bool) *domain.OriginalDocument {
	t.Helper()
	err := f.svc.InitTracking(context.Background(), documentID, "APP1", requirementID, 3, "Passport", required, time.Now())
	require.NoError(t, err)
	o, err := f.repo.GetByDocumentID(context.Background(), documentID)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o
}

func driveToReceived(t *testing.T, f *fixture, o *domain.OriginalDocument) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Request(ctx, RequestCommand{OriginalID: o.OriginalID, ShippingAddress: "12 Harbour Rd", RequestedBy: "ADV1"})
	require.NoError(t, err)
	_, err = f.svc.UpdateShipping(ctx, ShippingCommand{OriginalID: o.OriginalID, CourierService: "DHL", TrackingNumber: "TRK1"})
	require.NoError(t, err)
	_, err = f.svc.ConfirmReceipt(ctx, ReceiptCommand{OriginalID: o.OriginalID, Condition: domain.ConditionGood, ReceivedBy: "OPS1"})
	require.NoError(t, err)
}

func TestInitTrackingIsIdempotent(t *testing.T) {
	f := newFixture()
	initTracked(t, f, "DOC1", 10, true)
	require.NoError(t, f.svc.InitTracking(context.Background(), "DOC1", "APP1", 10, 3, "Passport", true, time.Now()))
	assert.Len(t, f.repo.originals, 1)
}

func TestVerificationSyncsAuthenticationDate(t *testing.T) {
	f := newFixture()
	o := initTracked(t, f, "DOC1", 10, true)
	driveToReceived(t, f, o)

	_, err := f.svc.CompleteVerification(context.Background(), VerificationCommand{
		OriginalID:      o.OriginalID,
		Status:          domain.VerificationVerified,
		IsAuthenticated: true,
		VerifiedBy:      "OPS1",
	})
	require.NoError(t, err)
	assert.Contains(t, f.auth.marked, "DOC1")
	assert.Contains(t, f.publisher.topics, domain.OriginalVerifiedEventType)
}

func TestVerificationWithoutAuthenticationSkipsSync(t *testing.T) {
	f := newFixture()
	o := initTracked(t, f, "DOC1", 10, true)
	driveToReceived(t, f, o)

	_, err := f.svc.CompleteVerification(context.Background(), VerificationCommand{
		OriginalID: o.OriginalID,
		Status:     domain.VerificationVerified,
		VerifiedBy: "OPS1",
	})
	require.NoError(t, err)
	assert.Empty(t, f.auth.marked)
}

func TestGovernmentReadinessRequiresAllRequiredVerified(t *testing.T) {
	f := newFixture()
	o1 := initTracked(t, f, "DOC1", 10, true)
	o2 := initTracked(t, f, "DOC2", 11, true)

	driveToReceived(t, f, o1)
	_, err := f.svc.CompleteVerification(context.Background(), VerificationCommand{
		OriginalID: o1.OriginalID, Status: domain.VerificationVerified, VerifiedBy: "OPS1",
	})
	require.NoError(t, err)
	assert.False(t, f.readiness.states["APP1"], "one of two required originals is not enough")

	driveToReceived(t, f, o2)
	_, err = f.svc.CompleteVerification(context.Background(), VerificationCommand{
		OriginalID: o2.OriginalID, Status: domain.VerificationVerified, VerifiedBy: "OPS1",
	})
	require.NoError(t, err)
	assert.True(t, f.readiness.states["APP1"])
	assert.Contains(t, f.publisher.topics, domain.GovernmentReadyEventType)

	// 就绪时全部核验完的原件批量盖章
	assert.Equal(t, domain.StatusReadyForGovernment, f.repo.originals[o1.OriginalID].Status)
	assert.Equal(t, domain.StatusReadyForGovernment, f.repo.originals[o2.OriginalID].Status)
}

func TestOptionalOriginalDoesNotBlockReadiness(t *testing.T) {
	f := newFixture()
	o1 := initTracked(t, f, "DOC1", 10, true)
	initTracked(t, f, "DOC2", 12, false)

	driveToReceived(t, f, o1)
	_, err := f.svc.CompleteVerification(context.Background(), VerificationCommand{
		OriginalID: o1.OriginalID, Status: domain.VerificationVerified, VerifiedBy: "OPS1",
	})
	require.NoError(t, err)
	assert.True(t, f.readiness.states["APP1"], "optional original must not gate readiness")
}

func TestRejectedVerificationDoesNotAdvance(t *testing.T) {
	f := newFixture()
	o := initTracked(t, f, "DOC1", 10, true)
	driveToReceived(t, f, o)

	_, err := f.svc.CompleteVerification(context.Background(), VerificationCommand{
		OriginalID: o.OriginalID,
		Status:     domain.VerificationRejected,
		Notes:      "seal missing",
		VerifiedBy: "OPS1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOriginalsReceived, f.repo.originals[o.OriginalID].Status)
	assert.False(t, f.readiness.states["APP1"])
	assert.Contains(t, f.publisher.topics, domain.OriginalRejectedEventType)
	assert.Empty(t, f.auth.marked)
}

func TestCancelRequiresConfirmationOnceShipped(t *testing.T) {
	f := newFixture()
	o := initTracked(t, f, "DOC1", 10, true)
	ctx := context.Background()

	// digital_approved 窗口之外
	err := f.svc.Cancel(ctx, o.OriginalID, "ADV1", false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	_, err = f.svc.Request(ctx, RequestCommand{OriginalID: o.OriginalID, ShippingAddress: "12 Harbour Rd", RequestedBy: "ADV1"})
	require.NoError(t, err)
	_, err = f.svc.UpdateShipping(ctx, ShippingCommand{OriginalID: o.OriginalID, CourierService: "DHL", TrackingNumber: "TRK1"})
	require.NoError(t, err)

	err = f.svc.Cancel(ctx, o.OriginalID, "ADV1", false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePreconditionNotMet, apperrors.CodeOf(err))

	require.NoError(t, f.svc.Cancel(ctx, o.OriginalID, "ADV1", true))
	assert.Empty(t, f.repo.originals)
	assert.Contains(t, f.publisher.topics, domain.OriginalCancelledEventType)
}

func TestCancelUnblocksReadiness(t *testing.T) {
	f := newFixture()
	o1 := initTracked(t, f, "DOC1", 10, true)
	o2 := initTracked(t, f, "DOC2", 11, true)
	ctx := context.Background()

	driveToReceived(t, f, o1)
	_, err := f.svc.CompleteVerification(ctx, VerificationCommand{
		OriginalID: o1.OriginalID, Status: domain.VerificationVerified, VerifiedBy: "OPS1",
	})
	require.NoError(t, err)
	require.False(t, f.readiness.states["APP1"])

	// 第二份原件取消追踪后不再计入就绪度
	_, err = f.svc.Request(ctx, RequestCommand{OriginalID: o2.OriginalID, ShippingAddress: "12 Harbour Rd", RequestedBy: "ADV1"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, o2.OriginalID, "ADV1", false))
	assert.True(t, f.readiness.states["APP1"])
}

// 最后一份在途原件取消后集合为空，就绪度按空集为真回写。
func TestCancelLastOriginalLeavesApplicationReady(t *testing.T) {
	f := newFixture()
	o := initTracked(t, f, "DOC1", 10, true)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, RequestCommand{OriginalID: o.OriginalID, ShippingAddress: "12 Harbour Rd", RequestedBy: "ADV1"})
	require.NoError(t, err)
	require.False(t, f.readiness.states["APP1"])

	require.NoError(t, f.svc.Cancel(ctx, o.OriginalID, "ADV1", false))
	assert.Empty(t, f.repo.originals)
	assert.True(t, f.readiness.states["APP1"])
}

func TestRequestWithoutAddressFails(t *testing.T) {
	f := newFixture()
	o := initTracked(t, f, "DOC1", 10, true)

	_, err := f.svc.Request(context.Background(), RequestCommand{OriginalID: o.OriginalID, RequestedBy: "ADV1"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
