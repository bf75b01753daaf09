package proctor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
)

// State is the session lifecycle position.
type State string

const (
	StateInstructions State = "INSTRUCTIONS"
	StateCameraSetup  State = "CAMERA_SETUP"
	StateInProgress   State = "IN_PROGRESS"
	StateCompleted    State = "COMPLETED"
	StateTerminated   State = "TERMINATED"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTerminated
}

// Domain errors surfaced to the candidate.
var (
	ErrSessionClosed        = errors.New("session is closed")
	ErrInvalidTransition    = errors.New("action not allowed in current state")
	ErrUnresolvedIdentity   = errors.New("employee, exam and job identifiers must be resolved")
	ErrPresenceNotConfirmed = errors.New("face presence not confirmed")
	ErrFullscreenRequired   = errors.New("fullscreen required")
	ErrNoQuestions          = errors.New("exam has no questions")
	ErrAnswerRequired       = errors.New("current question must be answered first")
	ErrNotLastQuestion      = errors.New("submit is only allowed on the last question")
	ErrInvalidOption        = errors.New("option must be one of A, B, C, D")
)

// ContentProvider supplies exam questions, grouped. Used once per session
// at the start transition; the engine flattens groups in group order,
// each group's items in their stored order.
type ContentProvider interface {
	FetchExamGroups(ctx context.Context, examID uuid.UUID) ([]model.GroupRef, error)
	FetchGroupItems(ctx context.Context, groupID uuid.UUID) ([]model.Question, error)
}

// ResultsSink receives proctoring records and the final score report.
// SubmitScores is fire-and-forget from the engine's perspective: a
// failure is logged but never reopens the already-terminal session.
type ResultsSink interface {
	RecordProctoringStart(ctx context.Context, key model.SessionKey) (int64, error)
	RecordViolation(ctx context.Context, key model.SessionKey, reason model.TerminationReason) error
	SubmitScores(ctx context.Context, report model.ScoreReport) error
}

// ScreenLock is the host environment's fullscreen capability. Acquire
// must fail when the display surface is not locked; Release must be safe
// to call regardless of lock state.
type ScreenLock interface {
	Acquire(ctx context.Context) error
	Release()
}

// Config holds the per-session policy knobs.
type Config struct {
	Duration     time.Duration // hard exam time limit
	Grace        time.Duration // presence-loss grace window
	PresencePoll time.Duration // interval between presence checks
	Tick         time.Duration // engine clock resolution
	StartTimeout time.Duration // bound on the start transition's suspensions
}

func (c Config) withDefaults() Config {
	if c.Grace <= 0 {
		c.Grace = 10 * time.Second
	}
	if c.PresencePoll <= 0 {
		c.PresencePoll = 1250 * time.Millisecond
	}
	if c.Tick <= 0 {
		c.Tick = 500 * time.Millisecond
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 15 * time.Second
	}
	return c
}

// Deps are the injected capabilities a session runs against.
type Deps struct {
	Content  ContentProvider
	Sink     ResultsSink
	Presence PresenceSource
	Screen   ScreenLock
	Log      zerolog.Logger
}

// Hooks are observer callbacks, invoked from the engine goroutine.
// They must not block and must not call back into the session.
type Hooks struct {
	OnState  func(Snapshot)
	OnAnswer func(questionID uuid.UUID, option model.OptionLabel)
}

// Snapshot is the read-only projection handed to the UI layer.
type Snapshot struct {
	Key              model.SessionKey               `json:"key"`
	State            State                          `json:"state"`
	Cursor           int                            `json:"cursor"`
	QuestionCount    int                            `json:"question_count"`
	Question         *model.CandidateView           `json:"question,omitempty"`
	Answers          map[uuid.UUID]model.OptionLabel `json:"answers,omitempty"`
	RemainingSeconds float64                        `json:"remaining_seconds"`
	GraceActive      bool                           `json:"grace_active"`
	GraceSeconds     float64                        `json:"grace_seconds"`
	Reason           model.TerminationReason        `json:"reason,omitempty"`
	Scores           []model.GroupScore             `json:"scores,omitempty"`
	LastPresence     PresenceResult                 `json:"last_presence"`
}

type cmdKind int

const (
	cmdProceed cmdKind = iota
	cmdStart
	cmdSelect
	cmdNext
	cmdPrevious
	cmdSubmit
	cmdCancel
)

type command struct {
	kind   cmdKind
	ctx    context.Context
	option model.OptionLabel
	reply  chan error
}

type eventKind int

const (
	evCommand eventKind = iota
	evPresence
	evFullscreen
	evVisibility
)

type event struct {
	kind     eventKind
	cmd      command
	presence PresenceResult
	flag     bool
}

// Session is one proctored exam attempt. All state transitions run on a
// single goroutine processing events strictly one at a time, so a timer
// expiry and a simultaneous violation can never interleave: whichever
// event the loop observes first wins, and anything arriving after a
// terminal transition is a no-op.
type Session struct {
	key   model.SessionKey
	cfg   Config
	deps  Deps
	hooks Hooks

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// Mutable session state. Written only by the engine goroutine while
	// holding mu; read by Snapshot under RLock. The engine goroutine may
	// read without locking.
	mu           sync.RWMutex
	state        State
	questions    []model.Question
	answers      map[uuid.UUID]model.OptionLabel
	cursor       int
	clock        countdown
	deb          *debouncer
	reason       model.TerminationReason
	lastPresence PresenceResult
	procEventID  *int64
	scores       []model.GroupScore

	// Guard bookkeeping, engine goroutine only.
	armed      bool
	fullscreen bool
	visible    bool
	released   bool
	polling    bool
}

// New creates a session in Instructions and starts its engine goroutine.
func New(key model.SessionKey, cfg Config, deps Deps, hooks Hooks) *Session {
	s := &Session{
		key:    key,
		cfg:    cfg.withDefaults(),
		deps:   deps,
		hooks:  hooks,
		events: make(chan event, 64),
		done:   make(chan struct{}),
		state:  StateInstructions,
		deb:    newDebouncer(cfg.withDefaults().Grace),
	}
	go s.run()
	return s
}

// Key returns the session's identifier triple.
func (s *Session) Key() model.SessionKey { return s.key }

// Done is closed once the session reached a terminal state or was
// cancelled. No commands are accepted afterwards.
func (s *Session) Done() <-chan struct{} { return s.done }

// ─── Candidate actions ─────────────────────────────────────────────────

// Proceed advances Instructions → CameraSetup and starts presence polling.
func (s *Session) Proceed(ctx context.Context) error {
	return s.do(ctx, command{kind: cmdProceed})
}

// Start advances CameraSetup → InProgress: loads questions, acquires the
// screen lock, records the proctoring start and arms all monitors.
func (s *Session) Start(ctx context.Context) error {
	return s.do(ctx, command{kind: cmdStart})
}

// SelectOption records the answer for the current question, overwriting
// any previous selection.
func (s *Session) SelectOption(ctx context.Context, option model.OptionLabel) error {
	return s.do(ctx, command{kind: cmdSelect, option: option})
}

// Next moves the cursor forward; rejected while the current question is
// unanswered.
func (s *Session) Next(ctx context.Context) error {
	return s.do(ctx, command{kind: cmdNext})
}

// Previous moves the cursor backward; always allowed while in progress.
func (s *Session) Previous(ctx context.Context) error {
	return s.do(ctx, command{kind: cmdPrevious})
}

// Submit finishes the exam from the last question and triggers scoring.
func (s *Session) Submit(ctx context.Context) error {
	return s.do(ctx, command{kind: cmdSubmit})
}

// Cancel discards a session that has not started yet. Once InProgress,
// the only ways out are submit, timeout or violation.
func (s *Session) Cancel(ctx context.Context) error {
	return s.do(ctx, command{kind: cmdCancel})
}

// ─── Host environment signals ──────────────────────────────────────────

// ReportFullscreen feeds the host's current fullscreen state. Edge
// detection and arming rules are applied by the engine goroutine.
func (s *Session) ReportFullscreen(active bool) {
	s.postSignal(event{kind: evFullscreen, flag: active})
}

// ReportVisibility feeds whether the session's display surface is
// foregrounded.
func (s *Session) ReportVisibility(visible bool) {
	s.postSignal(event{kind: evVisibility, flag: visible})
}

func (s *Session) postSignal(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) do(ctx context.Context, c command) error {
	c.ctx = ctx
	c.reply = make(chan error, 1)
	select {
	case s.events <- event{kind: evCommand, cmd: c}:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		// The session went terminal while the command was queued. The
		// reply may still have been sent just before shutdown.
		select {
		case err := <-c.reply:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// ─── Engine loop ───────────────────────────────────────────────────────

func (s *Session) run() {
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handle(ev)
		case now := <-ticker.C:
			s.onTick(now)
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evCommand:
		ev.cmd.reply <- s.handleCommand(ev.cmd)
	case evPresence:
		s.handlePresence(ev.presence, time.Now())
	case evFullscreen:
		s.handleFullscreen(ev.flag)
	case evVisibility:
		s.handleVisibility(ev.flag)
	}
}

func (s *Session) handleCommand(c command) error {
	switch c.kind {
	case cmdProceed:
		return s.handleProceed()
	case cmdStart:
		return s.handleStart(c.ctx)
	case cmdSelect:
		return s.handleSelect(c.option)
	case cmdNext:
		return s.handleNext()
	case cmdPrevious:
		return s.handlePrevious()
	case cmdSubmit:
		return s.handleSubmit()
	case cmdCancel:
		return s.handleCancel()
	}
	return ErrInvalidTransition
}

func (s *Session) handleProceed() error {
	if s.state != StateInstructions {
		return ErrInvalidTransition
	}
	if !s.key.Resolved() {
		return ErrUnresolvedIdentity
	}

	s.setState(StateCameraSetup)
	if !s.polling {
		s.polling = true
		go s.pollPresence()
	}
	s.pushState()
	return nil
}

// pollPresence drives the presence adapter on a fixed interval from
// CameraSetup until the session closes.
func (s *Session) pollPresence() {
	ticker := time.NewTicker(s.cfg.PresencePoll)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			res := s.deps.Presence.Check(context.Background())
			select {
			case s.events <- event{kind: evPresence, presence: res}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *Session) handleStart(ctx context.Context) error {
	if s.state != StateCameraSetup {
		return ErrInvalidTransition
	}
	if !s.lastPresence.Visible() {
		return ErrPresenceNotConfirmed
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StartTimeout)
	defer cancel()

	questions, err := s.fetchQuestions(ctx)
	if err != nil {
		return fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Guards are armed only after the fullscreen lock is held, so the
	// session can never enter InProgress partially monitored.
	if err := s.deps.Screen.Acquire(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrFullscreenRequired, err)
	}

	if id, err := s.deps.Sink.RecordProctoringStart(ctx, s.key); err != nil {
		// Degrades to "no event id"; never blocks the exam.
		s.deps.Log.Warn().Err(err).Msg("Proctoring start not recorded")
	} else {
		s.mu.Lock()
		s.procEventID = &id
		s.mu.Unlock()
	}

	now := time.Now()
	s.mu.Lock()
	s.questions = questions
	s.answers = make(map[uuid.UUID]model.OptionLabel, len(questions))
	s.cursor = 0
	s.clock.start(s.cfg.Duration, now)
	s.state = StateInProgress
	s.mu.Unlock()

	s.armed = true
	s.fullscreen = true
	s.visible = true

	s.deps.Log.Info().
		Int("questions", len(questions)).
		Dur("duration", s.cfg.Duration).
		Msg("Exam started")
	s.pushState()
	return nil
}

// fetchQuestions loads and flattens the exam content: groups in their
// stored order, each group's items in their stored order.
func (s *Session) fetchQuestions(ctx context.Context) ([]model.Question, error) {
	groups, err := s.deps.Content.FetchExamGroups(ctx, s.key.ExamID)
	if err != nil {
		return nil, fmt.Errorf("fetch groups: %w", err)
	}

	var questions []model.Question
	for _, g := range groups {
		items, err := s.deps.Content.FetchGroupItems(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch group %s items: %w", g.ID, err)
		}
		questions = append(questions, items...)
	}
	return questions, nil
}

func (s *Session) handleSelect(option model.OptionLabel) error {
	if s.state != StateInProgress {
		return ErrInvalidTransition
	}
	if !option.Valid() {
		return ErrInvalidOption
	}

	q := s.questions[s.cursor]
	s.mu.Lock()
	s.answers[q.ID] = option
	s.mu.Unlock()

	if s.hooks.OnAnswer != nil {
		s.hooks.OnAnswer(q.ID, option)
	}
	s.pushState()
	return nil
}

func (s *Session) handleNext() error {
	if s.state != StateInProgress {
		return ErrInvalidTransition
	}
	if _, answered := s.answers[s.questions[s.cursor].ID]; !answered {
		return ErrAnswerRequired
	}

	s.mu.Lock()
	if s.cursor < len(s.questions)-1 {
		s.cursor++
	}
	s.mu.Unlock()
	s.pushState()
	return nil
}

func (s *Session) handlePrevious() error {
	if s.state != StateInProgress {
		return ErrInvalidTransition
	}

	s.mu.Lock()
	if s.cursor > 0 {
		s.cursor--
	}
	s.mu.Unlock()
	s.pushState()
	return nil
}

func (s *Session) handleSubmit() error {
	if s.state != StateInProgress {
		return ErrInvalidTransition
	}
	if s.cursor != len(s.questions)-1 {
		return ErrNotLastQuestion
	}

	s.complete(time.Now())
	return nil
}

func (s *Session) handleCancel() error {
	if s.state != StateInstructions && s.state != StateCameraSetup {
		return ErrInvalidTransition
	}

	s.disarmAndRelease()
	s.deps.Log.Info().Msg("Session cancelled before start")
	s.close()
	return nil
}

// ─── Monitor signal handling ───────────────────────────────────────────

func (s *Session) handlePresence(res PresenceResult, now time.Time) {
	prev := s.lastPresence
	s.mu.Lock()
	s.lastPresence = res
	s.mu.Unlock()

	if s.state == StateInProgress && s.armed {
		wasActive := s.deb.active
		s.mu.Lock()
		s.deb.observe(res.Visible(), now)
		s.mu.Unlock()
		if s.deb.active != wasActive {
			if s.deb.active {
				s.deps.Log.Warn().
					Str("failure", string(res.Failure)).
					Msg("Presence lost, grace countdown started")
			}
			s.pushState()
		}
		return
	}

	if prev != res {
		s.pushState()
	}
}

func (s *Session) handleFullscreen(active bool) {
	if s.armed && s.state == StateInProgress && s.fullscreen && !active {
		s.fullscreen = false
		s.terminate(model.ReasonFullscreenExited)
		return
	}
	s.fullscreen = active
}

func (s *Session) handleVisibility(visible bool) {
	if s.armed && s.state == StateInProgress && s.visible && !visible {
		s.visible = false
		s.terminate(model.ReasonTabOrWindowSwitched)
		return
	}
	s.visible = visible
}

func (s *Session) onTick(now time.Time) {
	if s.state != StateInProgress || !s.armed {
		return
	}
	if s.deb.expired(now) {
		s.terminate(model.ReasonPresenceLost)
		return
	}
	if s.clock.expired(now) {
		// Timeout forces a submit with whatever answers exist.
		s.deps.Log.Info().Msg("Time limit reached, forcing submit")
		s.complete(now)
		return
	}
	// Keep the countdown and grace projections fresh for the UI.
	s.pushState()
}

// ─── Terminal transitions ──────────────────────────────────────────────

func (s *Session) complete(now time.Time) {
	s.disarmAndRelease()

	s.mu.Lock()
	s.clock.freeze(now)
	s.deb.active = false
	s.state = StateCompleted
	report := model.ScoreReport{
		Key:               s.key,
		ProctoringEventID: s.procEventID,
		Scores:            Score(s.questions, s.answers),
		SubmittedAt:       now,
	}
	s.scores = report.Scores
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Sink.SubmitScores(ctx, report); err != nil {
		// The candidate-facing outcome is independent of downstream
		// persistence; the session stays Completed.
		s.deps.Log.Error().Err(err).Msg("Score submission failed")
	}

	s.deps.Log.Info().Int("groups", len(report.Scores)).Msg("Session completed")
	s.pushState()
	s.close()
}

func (s *Session) terminate(reason model.TerminationReason) {
	s.disarmAndRelease()

	now := time.Now()
	s.mu.Lock()
	s.clock.freeze(now)
	s.deb.active = false
	s.reason = reason
	s.state = StateTerminated
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Sink.RecordViolation(ctx, s.key, reason); err != nil {
		s.deps.Log.Error().Err(err).Msg("Violation not recorded")
	}

	s.deps.Log.Warn().Str("reason", string(reason)).Msg("Session terminated")
	s.pushState()
	s.close()
}

// disarmAndRelease disarms all guards, then releases the fullscreen lock
// and camera exactly once. Disarming precedes every terminal side effect
// so no guard can fire after the session left the state that armed it.
func (s *Session) disarmAndRelease() {
	s.armed = false
	if s.released {
		return
	}
	s.released = true
	s.deps.Screen.Release()
	s.deps.Presence.Close()
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) pushState() {
	if s.hooks.OnState != nil {
		s.hooks.OnState(s.Snapshot())
	}
}

// Snapshot returns the read-only projection of the session. Safe to call
// from any goroutine, including after the session closed.
func (s *Session) Snapshot() Snapshot {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Key:              s.key,
		State:            s.state,
		Cursor:           s.cursor,
		QuestionCount:    len(s.questions),
		RemainingSeconds: s.clock.remaining(now).Seconds(),
		GraceActive:      s.deb.active,
		GraceSeconds:     s.deb.remaining(now).Seconds(),
		Reason:           s.reason,
		Scores:           s.scores,
		LastPresence:     s.lastPresence,
	}

	if len(s.questions) > 0 && s.cursor >= 0 && s.cursor < len(s.questions) {
		view := s.questions[s.cursor].View()
		snap.Question = &view
	}
	if len(s.answers) > 0 {
		snap.Answers = make(map[uuid.UUID]model.OptionLabel, len(s.answers))
		for qid, opt := range s.answers {
			snap.Answers[qid] = opt
		}
	}
	return snap
}
