package proctor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
)

// ─── Test doubles ──────────────────────────────────────────────────────

type fakeContent struct {
	groups []model.GroupRef
	items  map[uuid.UUID][]model.Question
	err    error
}

func (f *fakeContent) FetchExamGroups(_ context.Context, _ uuid.UUID) ([]model.GroupRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.groups, nil
}

func (f *fakeContent) FetchGroupItems(_ context.Context, groupID uuid.UUID) ([]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[groupID], nil
}

type fakeSink struct {
	mu         sync.Mutex
	startCalls int
	startErr   error
	violations []model.TerminationReason
	reports    []model.ScoreReport
}

func (f *fakeSink) RecordProctoringStart(_ context.Context, _ model.SessionKey) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return 0, f.startErr
	}
	return int64(f.startCalls), nil
}

func (f *fakeSink) RecordViolation(_ context.Context, _ model.SessionKey, reason model.TerminationReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violations = append(f.violations, reason)
	return nil
}

func (f *fakeSink) SubmitScores(_ context.Context, report model.ScoreReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeSink) violationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.violations)
}

func (f *fakeSink) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type fakeScreen struct {
	mu         sync.Mutex
	acquireErr error
	acquired   int
	released   int
}

func (f *fakeScreen) Acquire(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.acquired++
	return nil
}

func (f *fakeScreen) Release() {
	f.mu.Lock()
	f.released++
	f.mu.Unlock()
}

func (f *fakeScreen) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

type fakePresence struct {
	mu     sync.Mutex
	res    PresenceResult
	closed int
}

func (f *fakePresence) set(res PresenceResult) {
	f.mu.Lock()
	f.res = res
	f.mu.Unlock()
}

func (f *fakePresence) Check(_ context.Context) PresenceResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res
}

func (f *fakePresence) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func (f *fakePresence) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// ─── Fixture ───────────────────────────────────────────────────────────

type fixture struct {
	session  *Session
	content  *fakeContent
	sink     *fakeSink
	screen   *fakeScreen
	presence *fakePresence
	groupA   uuid.UUID
	groupB   uuid.UUID
}

// threeQuestions builds two groups: A with two questions, B with one.
func threeQuestions() (*fakeContent, uuid.UUID, uuid.UUID) {
	examID := uuid.New()
	groupA := uuid.New()
	groupB := uuid.New()

	mk := func(group uuid.UUID, order int, correct model.OptionLabel) model.Question {
		return model.Question{ID: uuid.New(), GroupID: group, CorrectOption: correct, OrderNum: order}
	}

	return &fakeContent{
		groups: []model.GroupRef{
			{ID: groupA, ExamID: examID, OrderNum: 1},
			{ID: groupB, ExamID: examID, OrderNum: 2},
		},
		items: map[uuid.UUID][]model.Question{
			groupA: {mk(groupA, 1, model.OptionA), mk(groupA, 2, model.OptionB)},
			groupB: {mk(groupB, 1, model.OptionC)},
		},
	}, groupA, groupB
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	content, groupA, groupB := threeQuestions()
	f := &fixture{
		content:  content,
		sink:     &fakeSink{},
		screen:   &fakeScreen{},
		presence: &fakePresence{res: PresenceResult{Present: true}},
		groupA:   groupA,
		groupB:   groupB,
	}

	if cfg.Duration == 0 {
		cfg.Duration = 5 * time.Second
	}
	if cfg.Grace == 0 {
		cfg.Grace = 80 * time.Millisecond
	}
	cfg.PresencePoll = 5 * time.Millisecond
	cfg.Tick = 5 * time.Millisecond

	key := model.SessionKey{EmployeeID: 7, ExamID: content.groups[0].ExamID, JobID: 3}
	f.session = New(key, cfg, Deps{
		Content:  f.content,
		Sink:     f.sink,
		Presence: f.presence,
		Screen:   f.screen,
		Log:      zerolog.Nop(),
	}, Hooks{})

	t.Cleanup(func() {
		select {
		case <-f.session.Done():
		default:
			f.session.Cancel(context.Background())
		}
	})
	return f
}

// startExam drives the fixture into InProgress.
func (f *fixture) startExam(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.session.Proceed(ctx))
	require.Eventually(t, func() bool {
		return f.session.Snapshot().LastPresence.Visible()
	}, 2*time.Second, 5*time.Millisecond, "presence poll never confirmed the face")

	require.NoError(t, f.session.Start(ctx))
	require.Equal(t, StateInProgress, f.session.Snapshot().State)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session never closed")
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

func TestSessionHappyPath(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	snap := f.session.Snapshot()
	require.Equal(t, 3, snap.QuestionCount)
	require.NotNil(t, snap.Question)

	// Answer group A correct, correct, then group B wrong.
	require.NoError(t, f.session.SelectOption(ctx, model.OptionA))
	require.NoError(t, f.session.Next(ctx))
	require.NoError(t, f.session.SelectOption(ctx, model.OptionB))
	require.NoError(t, f.session.Next(ctx))
	require.NoError(t, f.session.SelectOption(ctx, model.OptionD))
	require.NoError(t, f.session.Submit(ctx))

	waitDone(t, f.session)

	snap = f.session.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	require.Len(t, snap.Scores, 2)
	assert.Equal(t, f.groupA, snap.Scores[0].GroupID)
	assert.Equal(t, 2, snap.Scores[0].Total)
	assert.Equal(t, 2, snap.Scores[0].Correct)
	assert.Equal(t, f.groupB, snap.Scores[1].GroupID)
	assert.Equal(t, 1, snap.Scores[1].Total)
	assert.Equal(t, 0, snap.Scores[1].Correct)

	// Resources released exactly once, score report delivered once.
	assert.Equal(t, 1, f.screen.releaseCount())
	assert.Equal(t, 1, f.presence.closeCount())
	assert.Equal(t, 1, f.sink.reportCount())
	assert.Equal(t, 0, f.sink.violationCount())

	// Every further command fails the same way.
	assert.ErrorIs(t, f.session.Next(ctx), ErrSessionClosed)
	assert.ErrorIs(t, f.session.Submit(ctx), ErrSessionClosed)
}

func TestProceedRequiresResolvedIdentity(t *testing.T) {
	content, _, _ := threeQuestions()
	s := New(model.SessionKey{EmployeeID: 0, ExamID: uuid.New(), JobID: 1},
		Config{PresencePoll: 5 * time.Millisecond, Tick: 5 * time.Millisecond},
		Deps{Content: content, Sink: &fakeSink{}, Presence: &fakePresence{}, Screen: &fakeScreen{}, Log: zerolog.Nop()},
		Hooks{})
	defer s.Cancel(context.Background())

	err := s.Proceed(context.Background())
	assert.ErrorIs(t, err, ErrUnresolvedIdentity)
	assert.Equal(t, StateInstructions, s.Snapshot().State)
}

func TestRefresherJobIDIsResolved(t *testing.T) {
	f := newFixture(t, Config{})
	// JobID 0 is the refresher sentinel, not an unresolved id.
	s := New(model.SessionKey{EmployeeID: 7, ExamID: f.session.Key().ExamID, JobID: model.RefresherJobID},
		Config{PresencePoll: 5 * time.Millisecond, Tick: 5 * time.Millisecond},
		Deps{Content: f.content, Sink: &fakeSink{}, Presence: &fakePresence{}, Screen: &fakeScreen{}, Log: zerolog.Nop()},
		Hooks{})
	defer s.Cancel(context.Background())

	assert.NoError(t, s.Proceed(context.Background()))
	assert.Equal(t, StateCameraSetup, s.Snapshot().State)
}

func TestStartRequiresConfirmedPresence(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.presence.set(PresenceResult{Present: false, Failure: FailureDeviceUnavailable})

	require.NoError(t, f.session.Proceed(ctx))
	time.Sleep(30 * time.Millisecond) // let the poller deliver

	err := f.session.Start(ctx)
	assert.ErrorIs(t, err, ErrPresenceNotConfirmed)
	assert.Equal(t, StateCameraSetup, f.session.Snapshot().State)

	// Confirming presence unblocks the start.
	f.presence.set(PresenceResult{Present: true})
	require.Eventually(t, func() bool {
		return f.session.Snapshot().LastPresence.Visible()
	}, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, f.session.Start(ctx))
}

func TestStartRequiresFullscreen(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.screen.acquireErr = errors.New("display surface is not fullscreen")

	require.NoError(t, f.session.Proceed(ctx))
	require.Eventually(t, func() bool {
		return f.session.Snapshot().LastPresence.Visible()
	}, 2*time.Second, 5*time.Millisecond)

	err := f.session.Start(ctx)
	assert.ErrorIs(t, err, ErrFullscreenRequired)
	assert.Equal(t, StateCameraSetup, f.session.Snapshot().State)

	f.screen.mu.Lock()
	f.screen.acquireErr = nil
	f.screen.mu.Unlock()
	assert.NoError(t, f.session.Start(ctx))
}

func TestStartWithoutQuestions(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.content.items = map[uuid.UUID][]model.Question{}

	require.NoError(t, f.session.Proceed(ctx))
	require.Eventually(t, func() bool {
		return f.session.Snapshot().LastPresence.Visible()
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, f.session.Start(ctx), ErrNoQuestions)
	assert.Equal(t, StateCameraSetup, f.session.Snapshot().State)
}

// ─── Guards ────────────────────────────────────────────────────────────

func TestFullscreenExitTerminates(t *testing.T) {
	f := newFixture(t, Config{})
	f.startExam(t)

	f.session.ReportFullscreen(false)
	waitDone(t, f.session)

	snap := f.session.Snapshot()
	assert.Equal(t, StateTerminated, snap.State)
	assert.Equal(t, model.ReasonFullscreenExited, snap.Reason)
	assert.Equal(t, 1, f.sink.violationCount())
	assert.Equal(t, 0, f.sink.reportCount(), "terminated sessions are never scored")
	assert.Equal(t, 1, f.screen.releaseCount())
	assert.Equal(t, 1, f.presence.closeCount())
}

func TestVisibilityLossTerminates(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	require.NoError(t, f.session.SelectOption(ctx, model.OptionA))

	f.session.ReportVisibility(false)
	waitDone(t, f.session)

	snap := f.session.Snapshot()
	assert.Equal(t, StateTerminated, snap.State)
	assert.Equal(t, model.ReasonTabOrWindowSwitched, snap.Reason)
	assert.Equal(t, 0, f.sink.reportCount())
}

func TestGuardsNotArmedBeforeStart(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	require.NoError(t, f.session.Proceed(ctx))

	// Host setup noise during camera setup must not terminate anything.
	f.session.ReportFullscreen(false)
	f.session.ReportVisibility(false)
	f.session.ReportFullscreen(true)
	f.session.ReportVisibility(true)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateCameraSetup, f.session.Snapshot().State)
	assert.Equal(t, 0, f.sink.violationCount())
}

func TestRepeatedFullscreenTrueIsNoOp(t *testing.T) {
	f := newFixture(t, Config{})
	f.startExam(t)

	// Level reports without a true→false edge must not terminate.
	f.session.ReportFullscreen(true)
	f.session.ReportVisibility(true)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, StateInProgress, f.session.Snapshot().State)
}

// ─── Presence grace ────────────────────────────────────────────────────

func TestPresenceLossRecoveryWithinGrace(t *testing.T) {
	f := newFixture(t, Config{Grace: 150 * time.Millisecond})
	f.startExam(t)

	f.presence.set(PresenceResult{Present: false, Failure: FailureDetectionFailed})
	require.Eventually(t, func() bool {
		return f.session.Snapshot().GraceActive
	}, 2*time.Second, 5*time.Millisecond, "grace countdown never started")

	f.presence.set(PresenceResult{Present: true})
	require.Eventually(t, func() bool {
		return !f.session.Snapshot().GraceActive
	}, 2*time.Second, 5*time.Millisecond, "grace countdown never cancelled")

	// Wait out the original grace window: recovery must leave no trace.
	time.Sleep(200 * time.Millisecond)
	snap := f.session.Snapshot()
	assert.Equal(t, StateInProgress, snap.State)
	assert.Equal(t, 0, f.sink.violationCount())
}

func TestPresenceLossGraceExpiryTerminates(t *testing.T) {
	f := newFixture(t, Config{Grace: 60 * time.Millisecond})
	f.startExam(t)

	f.presence.set(PresenceResult{Present: false, Failure: FailureDeviceUnavailable})
	waitDone(t, f.session)

	snap := f.session.Snapshot()
	assert.Equal(t, StateTerminated, snap.State)
	assert.Equal(t, model.ReasonPresenceLost, snap.Reason)
	assert.Equal(t, 1, f.sink.violationCount())
}

// ─── Navigation ────────────────────────────────────────────────────────

func TestNextRequiresAnswer(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	assert.ErrorIs(t, f.session.Next(ctx), ErrAnswerRequired)

	require.NoError(t, f.session.SelectOption(ctx, model.OptionA))
	require.NoError(t, f.session.Next(ctx))
	assert.Equal(t, 1, f.session.Snapshot().Cursor)

	// Going back never requires an answer; answered questions stay answered.
	require.NoError(t, f.session.Previous(ctx))
	assert.Equal(t, 0, f.session.Snapshot().Cursor)
	require.NoError(t, f.session.Next(ctx))
}

func TestPreviousClampedAtFirstQuestion(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	require.NoError(t, f.session.Previous(ctx))
	assert.Equal(t, 0, f.session.Snapshot().Cursor)
}

func TestSubmitOnlyFromLastQuestion(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	assert.ErrorIs(t, f.session.Submit(ctx), ErrNotLastQuestion)
}

func TestSelectRejectsInvalidOption(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	assert.ErrorIs(t, f.session.SelectOption(ctx, model.OptionLabel("E")), ErrInvalidOption)
	assert.ErrorIs(t, f.session.SelectOption(ctx, model.OptionLabel("")), ErrInvalidOption)
}

func TestAnswerOverwrite(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	require.NoError(t, f.session.SelectOption(ctx, model.OptionD))
	require.NoError(t, f.session.SelectOption(ctx, model.OptionA))

	snap := f.session.Snapshot()
	require.NotNil(t, snap.Question)
	assert.Equal(t, model.OptionA, snap.Answers[snap.Question.ID])
}

// ─── Time limit ────────────────────────────────────────────────────────

func TestTimeExpiryForcesCompletion(t *testing.T) {
	f := newFixture(t, Config{Duration: 80 * time.Millisecond})
	ctx := context.Background()
	f.startExam(t)

	require.NoError(t, f.session.SelectOption(ctx, model.OptionA))
	waitDone(t, f.session)

	snap := f.session.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Zero(t, snap.RemainingSeconds)
	require.Len(t, snap.Scores, 2)
	assert.Equal(t, 1, snap.Scores[0].Correct, "partial answers are scored")
	assert.Equal(t, 1, f.sink.reportCount())
}

// ─── Cancellation ──────────────────────────────────────────────────────

func TestCancelBeforeStart(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	require.NoError(t, f.session.Proceed(ctx))
	require.NoError(t, f.session.Cancel(ctx))
	waitDone(t, f.session)

	assert.Equal(t, 1, f.screen.releaseCount())
	assert.Equal(t, 1, f.presence.closeCount())
	assert.Equal(t, 0, f.sink.violationCount())
	assert.Equal(t, 0, f.sink.reportCount())
	assert.ErrorIs(t, f.session.Proceed(ctx), ErrSessionClosed)
}

func TestCancelRejectedOnceInProgress(t *testing.T) {
	f := newFixture(t, Config{})
	f.startExam(t)

	assert.ErrorIs(t, f.session.Cancel(context.Background()), ErrInvalidTransition)
	assert.Equal(t, StateInProgress, f.session.Snapshot().State)
}

// ─── Ordering ──────────────────────────────────────────────────────────

func TestFirstTerminalEventWins(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.startExam(t)

	require.NoError(t, f.session.SelectOption(ctx, model.OptionA))
	require.NoError(t, f.session.Next(ctx))
	require.NoError(t, f.session.SelectOption(ctx, model.OptionB))
	require.NoError(t, f.session.Next(ctx))
	require.NoError(t, f.session.SelectOption(ctx, model.OptionC))

	// A submit followed immediately by a violation signal: the engine
	// processes them in arrival order, so exactly one outcome is recorded.
	require.NoError(t, f.session.Submit(ctx))
	f.session.ReportFullscreen(false)
	waitDone(t, f.session)

	snap := f.session.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 1, f.sink.reportCount())
	assert.Equal(t, 0, f.sink.violationCount())
}
