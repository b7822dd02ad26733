package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/magellan/internal/casefile/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

type memAppRepo struct {
	apps   map[string]*domain.Application
	nextID uint
}

func newMemAppRepo() *memAppRepo {
	return &memAppRepo{apps: map[string]*domain.Application{}, nextID: 1}
}

func (r *memAppRepo) Create(_ context.Context, app *domain.Application) error {
	app.ID = r.nextID
	r.nextID++
	r.apps[app.ApplicationID] = app
	return nil
}

func (r *memAppRepo) Update(_ context.Context, app *domain.Application) error {
	r.apps[app.ApplicationID] = app
	return nil
}

func (r *memAppRepo) GetByApplicationID(_ context.Context, applicationID string) (*domain.Application, error) {
	return r.apps[applicationID], nil
}

func (r *memAppRepo) ListByClient(_ context.Context, clientID string) ([]*domain.Application, error) {
	var out []*domain.Application
	for _, a := range r.apps {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAppRepo) ListByAdvisor(_ context.Context, advisor string) ([]*domain.Application, error) {
	var out []*domain.Application
	for _, a := range r.apps {
		if a.AssignedAdvisor == advisor {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAppRepo) CountByStatus(_ context.Context) (map[domain.ApplicationStatus]int64, error) {
	out := map[domain.ApplicationStatus]int64{}
	for _, a := range r.apps {
		out[a.Status]++
	}
	return out, nil
}

func (r *memAppRepo) CountByPriority(_ context.Context) (map[domain.Priority]int64, error) {
	out := map[domain.Priority]int64{}
	for _, a := range r.apps {
		out[a.Priority]++
	}
	return out, nil
}

func (r *memAppRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memProgressRepo struct {
	rows []*domain.StageProgress
}

func (r *memProgressRepo) Create(_ context.Context, p *domain.StageProgress) error {
	r.rows = append(r.rows, p)
	return nil
}

func (r *memProgressRepo) Update(_ context.Context, p *domain.StageProgress) error {
	return nil
}

func (r *memProgressRepo) Get(_ context.Context, applicationID string, stageID uint) (*domain.StageProgress, error) {
	for _, p := range r.rows {
		if p.ApplicationID == applicationID && p.StageID == stageID {
			return p, nil
		}
	}
	return nil, nil
}

func (r *memProgressRepo) ListByApplication(_ context.Context, applicationID string) ([]*domain.StageProgress, error) {
	var out []*domain.StageProgress
	for _, p := range r.rows {
		if p.ApplicationID == applicationID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeStageCatalog struct {
	stages []*domain.StageInfo
}

func (c *fakeStageCatalog) ListStages(_ context.Context, _ uint) ([]*domain.StageInfo, error) {
	return c.stages, nil
}

// fakeDocStats 每阶段的 (approved, total) 可变快照
type fakeDocStats struct {
	stats map[uint][2]int
}

func (d *fakeDocStats) StageApprovalStats(_ context.Context, _ string, stageID uint) (int, int, error) {
	s := d.stats[stageID]
	return s[0], s[1], nil
}

// fakeOriginalInventory 申请名下是否存在原件追踪记录
type fakeOriginalInventory struct {
	tracked bool
}

func (i *fakeOriginalInventory) HasTrackedOriginals(_ context.Context, _ string) (bool, error) {
	return i.tracked, nil
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
	commands  *CommandService
	tracker   *ProgressTracker
	appRepo   *memAppRepo
	progress  *memProgressRepo
	stats     *fakeDocStats
	inventory *fakeOriginalInventory
	publisher *noopPublisher
}

// newFixture 三阶段模板：1 无依赖自动推进，2 依赖 1 且手动完成，
// 3 依赖 2、可跳过、非必要。
func newFixture() *fixture {
	catalog := &fakeStageCatalog{stages: []*domain.StageInfo{
		{ID: 1, Order: 1, Name: "Document Collection", IsRequired: true, AutoProgress: true},
		{ID: 2, Order: 2, Name: "Due Diligence", IsRequired: true, AutoProgress: false, DependsOn: []uint{1}},
		{ID: 3, Order: 3, Name: "Optional Interview", IsRequired: false, CanSkip: true, DependsOn: []uint{2}},
	}}
	appRepo := newMemAppRepo()
	progressRepo := &memProgressRepo{}
	stats := &fakeDocStats{stats: map[uint][2]int{
		1: {0, 3},
		2: {0, 2},
		3: {0, 0},
	}}
	inventory := &fakeOriginalInventory{tracked: true}
	publisher := &noopPublisher{}
	tracker := NewProgressTracker(appRepo, progressRepo, catalog, stats, publisher, slog.Default())
	commands := NewCommandService(appRepo, progressRepo, catalog, inventory, tracker, publisher, slog.Default())
	return &fixture{
		commands:  commands,
		tracker:   tracker,
		appRepo:   appRepo,
		progress:  progressRepo,
		stats:     stats,
		inventory: inventory,
		publisher: publisher,
	}
}

func createApp(t *testing.T, f *fixture) *domain.Application {
	t.Helper()
	app, err := f.commands.CreateApplication(context.Background(), CreateApplicationCommand{
		ClientID:         "CLI1",
		ApplicantName:    "Jane Doe",
		ProgramID:        "PRG1",
		TemplateID:       1,
		InvestmentAmount: decimal.NewFromInt(250000),
	})
	require.NoError(t, err)
	return app
}

func stageStatus(t *testing.T, f *fixture, appID string, stageID uint) *domain.StageProgress {
	t.Helper()
	row, err := f.progress.Get(context.Background(), appID, stageID)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row
}

func TestCreateInitializesProgress(t *testing.T) {
	f := newFixture()
	app := createApp(t, f)

	assert.Equal(t, domain.StageActive, stageStatus(t, f, app.ApplicationID, 1).Status, "no-dependency stage unlocks immediately")
	assert.Equal(t, domain.StagePending, stageStatus(t, f, app.ApplicationID, 2).Status)
	assert.Equal(t, domain.StagePending, stageStatus(t, f, app.ApplicationID, 3).Status)
}

// 3 份必要材料按任意顺序通过，只要数到 3/3，阶段都自动完成。
func TestAutoProgressOrderIndependence(t *testing.T) {
	ctx := context.Background()
	for _, order := range [][2]int{{1, 2}, {2, 1}} {
		f := newFixture()
		app := createApp(t, f)

		f.stats.stats[1] = [2]int{order[0], 3}
		require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))
		row := stageStatus(t, f, app.ApplicationID, 1)
		assert.Equal(t, domain.StageActive, row.Status)
		assert.Less(t, row.CompletionPercentage, 100)

		f.stats.stats[1] = [2]int{3, 3}
		require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))
		row = stageStatus(t, f, app.ApplicationID, 1)
		assert.Equal(t, domain.StageCompleted, row.Status)
		assert.Equal(t, 100, row.CompletionPercentage)

		// 下游阶段随之解锁
		assert.Equal(t, domain.StageActive, stageStatus(t, f, app.ApplicationID, 2).Status)
		assert.Contains(t, f.publisher.topics, domain.StageCompletedEventType)
		assert.Contains(t, f.publisher.topics, domain.StageUnlockedEventType)
	}
}

// 材料先于阶段解锁全部通过：前置完成时自动推进阶段必须
// 解锁即完成，并继续解锁它自己的下游，不能卡在 active 100%。
func TestAutoProgressCompletesOnUnlock(t *testing.T) {
	catalog := &fakeStageCatalog{stages: []*domain.StageInfo{
		{ID: 1, Order: 1, Name: "Document Collection", IsRequired: true, AutoProgress: false},
		{ID: 2, Order: 2, Name: "Source of Funds", IsRequired: true, AutoProgress: true, DependsOn: []uint{1}},
		{ID: 3, Order: 3, Name: "Government Forms", IsRequired: true, AutoProgress: false, DependsOn: []uint{2}},
	}}
	appRepo := newMemAppRepo()
	progressRepo := &memProgressRepo{}
	stats := &fakeDocStats{stats: map[uint][2]int{1: {0, 3}, 2: {0, 2}, 3: {0, 1}}}
	inventory := &fakeOriginalInventory{tracked: true}
	publisher := &noopPublisher{}
	tracker := NewProgressTracker(appRepo, progressRepo, catalog, stats, publisher, slog.Default())
	commands := NewCommandService(appRepo, progressRepo, catalog, inventory, tracker, publisher, slog.Default())
	f := &fixture{commands: commands, tracker: tracker, appRepo: appRepo, progress: progressRepo, stats: stats, inventory: inventory, publisher: publisher}

	app := createApp(t, f)
	ctx := context.Background()

	// 阶段 2 尚未解锁时材料已全部通过：只记录完成率，不提前完成
	f.stats.stats[2] = [2]int{2, 2}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 2))
	row := stageStatus(t, f, app.ApplicationID, 2)
	assert.Equal(t, domain.StagePending, row.Status)
	assert.Equal(t, 100, row.CompletionPercentage)

	// 前置阶段完成后，阶段 2 解锁即自动完成，阶段 3 随之解锁
	f.stats.stats[1] = [2]int{3, 3}
	_, err := f.commands.CompleteStage(ctx, app.ApplicationID, 1, "ADV1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, stageStatus(t, f, app.ApplicationID, 2).Status)
	assert.Equal(t, domain.StageActive, stageStatus(t, f, app.ApplicationID, 3).Status)
}

// 三必一选场景：选配材料自始至终 pending，对完成率无影响。
func TestOptionalRequirementHasNoEffect(t *testing.T) {
	f := newFixture()
	app := createApp(t, f)
	ctx := context.Background()

	// total=3 只计必要材料，选配的第 4 份不进分母
	for approved := 1; approved <= 3; approved++ {
		f.stats.stats[1] = [2]int{approved, 3}
		require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))
	}
	row := stageStatus(t, f, app.ApplicationID, 1)
	assert.Equal(t, domain.StageCompleted, row.Status)
	assert.Equal(t, 100, row.CompletionPercentage)
}

func TestManualStageRequiresExplicitCompletion(t *testing.T) {
	f := newFixture()
	app := createApp(t, f)
	ctx := context.Background()

	f.stats.stats[1] = [2]int{3, 3}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))

	// 阶段 2 是手动完成：100% 也不会自动前进
	f.stats.stats[2] = [2]int{2, 2}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 2))
	assert.Equal(t, domain.StageActive, stageStatus(t, f, app.ApplicationID, 2).Status)

	row, err := f.commands.CompleteStage(ctx, app.ApplicationID, 2, "ADV1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, row.Status)
	assert.Equal(t, "ADV1", row.CompletedBy)
	assert.Equal(t, domain.StageActive, stageStatus(t, f, app.ApplicationID, 3).Status)
}

func TestManualCompletionBelowHundredFails(t *testing.T) {
	f := newFixture()
	app := createApp(t, f)
	ctx := context.Background()

	f.stats.stats[1] = [2]int{3, 3}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))

	f.stats.stats[2] = [2]int{1, 2}
	_, err := f.commands.CompleteStage(ctx, app.ApplicationID, 2, "ADV1")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePreconditionNotMet, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Due Diligence")
}

func TestSkipRequiresCanSkip(t *testing.T) {
	f := newFixture()
	app := createApp(t, f)
	ctx := context.Background()

	_, err := f.commands.SkipStage(ctx, app.ApplicationID, 1, "ADV1")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePreconditionNotMet, apperrors.CodeOf(err))

	// 阶段 3 可跳过
	f.stats.stats[1] = [2]int{3, 3}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))
	f.stats.stats[2] = [2]int{2, 2}
	_, err = f.commands.CompleteStage(ctx, app.ApplicationID, 2, "ADV1")
	require.NoError(t, err)

	row, err := f.commands.SkipStage(ctx, app.ApplicationID, 3, "ADV1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageSkipped, row.Status)
}

func statusChain(t *testing.T, f *fixture, appID string, targets ...domain.ApplicationStatus) {
	t.Helper()
	for _, target := range targets {
		_, err := f.commands.UpdateStatus(context.Background(), UpdateStatusCommand{
			ApplicationID: appID, TargetStatus: target, ChangedBy: "ADV1",
		})
		require.NoError(t, err)
	}
}

// 反例构造：一个必要阶段未完成，ready_for_submission 必须被拒绝。
func TestReadyForSubmissionGatedByStages(t *testing.T) {
	f := newFixture()
	app := createApp(t, f)
	ctx := context.Background()
	statusChain(t, f, app.ApplicationID, domain.StatusStarted, domain.StatusSubmitted)

	f.stats.stats[1] = [2]int{3, 3}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))
	// 阶段 2 仍未完成
	_, err := f.commands.UpdateStatus(ctx, UpdateStatusCommand{
		ApplicationID: app.ApplicationID, TargetStatus: domain.StatusReadyForSubmission, ChangedBy: "ADV1",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePreconditionNotMet, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Due Diligence")

	f.stats.stats[2] = [2]int{2, 2}
	_, err = f.commands.CompleteStage(ctx, app.ApplicationID, 2, "ADV1")
	require.NoError(t, err)

	// 阶段 3 非必要，不阻塞
	statusChain(t, f, app.ApplicationID, domain.StatusReadyForSubmission)
	assert.Equal(t, domain.StatusReadyForSubmission, f.appRepo.apps[app.ApplicationID].Status)
}

func TestGovernmentSubmissionGatedByOriginals(t *testing.T) {
	f := newFixture()
	app := createApp(t, f)
	ctx := context.Background()
	statusChain(t, f, app.ApplicationID, domain.StatusStarted, domain.StatusSubmitted)

	f.stats.stats[1] = [2]int{3, 3}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))
	f.stats.stats[2] = [2]int{2, 2}
	_, err := f.commands.CompleteStage(ctx, app.ApplicationID, 2, "ADV1")
	require.NoError(t, err)
	statusChain(t, f, app.ApplicationID, domain.StatusReadyForSubmission)

	_, err = f.commands.UpdateStatus(ctx, UpdateStatusCommand{
		ApplicationID: app.ApplicationID, TargetStatus: domain.StatusSubmittedToGovernment, ChangedBy: "ADV1",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePreconditionNotMet, apperrors.CodeOf(err))

	// 物流上下文回写就绪度后放行
	require.NoError(t, f.commands.SetGovernmentReady(ctx, app.ApplicationID, true))
	statusChain(t, f, app.ApplicationID, domain.StatusSubmittedToGovernment, domain.StatusUnderReview, domain.StatusApproved)
	assert.Equal(t, domain.StatusApproved, f.appRepo.apps[app.ApplicationID].Status)
}

// 模板不含原件追踪类别的要求：物流上下文从不回写就绪度，
// 政府递交门控对空集放行，不能永久阻塞。
func TestGovernmentSubmissionAllowedWithoutTrackedOriginals(t *testing.T) {
	f := newFixture()
	f.inventory.tracked = false
	app := createApp(t, f)
	ctx := context.Background()
	statusChain(t, f, app.ApplicationID, domain.StatusStarted, domain.StatusSubmitted)

	f.stats.stats[1] = [2]int{3, 3}
	require.NoError(t, f.tracker.StageChanged(ctx, app.ApplicationID, 1))
	f.stats.stats[2] = [2]int{2, 2}
	_, err := f.commands.CompleteStage(ctx, app.ApplicationID, 2, "ADV1")
	require.NoError(t, err)
	statusChain(t, f, app.ApplicationID, domain.StatusReadyForSubmission)

	// GovernmentReady 从未被回写，递交仍应放行
	require.False(t, f.appRepo.apps[app.ApplicationID].GovernmentReady)
	statusChain(t, f, app.ApplicationID, domain.StatusSubmittedToGovernment)
	assert.Equal(t, domain.StatusSubmittedToGovernment, f.appRepo.apps[app.ApplicationID].Status)
}
