package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/config"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/proctor"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/repository"
)

// How long a closed session stays readable before the registry drops it.
// The UI needs one last state read to show the terminal screen.
const sessionRetention = 2 * time.Minute

// Session lifecycle errors.
var (
	ErrSessionActive = errors.New("another proctored session is already live")
	ErrAttemptExists = errors.New("exam was already attempted for this job")
	ErrNoSession     = errors.New("no live session for this exam")
)

// Notifier receives engine pushes for the currently attached transport.
// Implemented by the WebSocket connection.
type Notifier interface {
	PushState(proctor.Snapshot)
	PushRelease()
}

// screenGate implements proctor.ScreenLock over the host state the client
// reports. Browsers can only enter fullscreen from a user gesture, so the
// client acquires the lock and the server verifies it before arming.
type screenGate struct {
	mu         sync.Mutex
	fullscreen bool
	onRelease  func()
}

func (g *screenGate) set(active bool) {
	g.mu.Lock()
	g.fullscreen = active
	g.mu.Unlock()
}

// Acquire fails unless the host currently reports fullscreen.
func (g *screenGate) Acquire(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.fullscreen {
		return errors.New("display surface is not fullscreen")
	}
	return nil
}

// Release asks the host to drop fullscreen and stop the camera.
func (g *screenGate) Release() {
	g.mu.Lock()
	release := g.onRelease
	g.fullscreen = false
	g.mu.Unlock()
	if release != nil {
		release()
	}
}

// LiveSession couples one engine with its per-attempt capabilities and
// fans engine pushes out to whichever transport is currently attached.
type LiveSession struct {
	Engine   *proctor.Session
	Presence *proctor.ReportedPresence

	screen  *screenGate
	updates chan proctor.Snapshot
	release chan struct{}

	mu       sync.Mutex
	notifier Notifier
}

func newLiveSession(stale time.Duration) *LiveSession {
	ls := &LiveSession{
		Presence: proctor.NewReportedPresence(stale),
		screen:   &screenGate{},
		updates:  make(chan proctor.Snapshot, 32),
		release:  make(chan struct{}, 1),
	}
	ls.screen.onRelease = ls.queueRelease
	return ls
}

// start launches the push forwarder. Must be called after Engine is set.
func (ls *LiveSession) start() {
	go ls.forward()
}

// Attach registers the transport that should receive engine pushes.
func (ls *LiveSession) Attach(n Notifier) {
	ls.mu.Lock()
	ls.notifier = n
	ls.mu.Unlock()
}

// Detach removes the transport if it is still the attached one.
func (ls *LiveSession) Detach(n Notifier) {
	ls.mu.Lock()
	if ls.notifier == n {
		ls.notifier = nil
	}
	ls.mu.Unlock()
}

// SetFullscreen feeds the host's reported fullscreen state into both the
// gate (start precondition) and the engine (armed guard).
func (ls *LiveSession) SetFullscreen(active bool) {
	ls.screen.set(active)
	ls.Engine.ReportFullscreen(active)
}

// SetVisibility feeds the host's reported foreground state.
func (ls *LiveSession) SetVisibility(visible bool) {
	ls.Engine.ReportVisibility(visible)
}

// ReportPresence feeds one client-side face detection observation.
func (ls *LiveSession) ReportPresence(res proctor.PresenceResult) {
	ls.Presence.Report(res)
}

// queueState enqueues a snapshot push without ever blocking the engine
// goroutine; under backpressure older snapshots are dropped because each
// snapshot is complete on its own.
func (ls *LiveSession) queueState(snap proctor.Snapshot) {
	for {
		select {
		case ls.updates <- snap:
			return
		default:
			select {
			case <-ls.updates:
			default:
			}
		}
	}
}

func (ls *LiveSession) queueRelease() {
	select {
	case ls.release <- struct{}{}:
	default:
	}
}

func (ls *LiveSession) forward() {
	for {
		select {
		case snap, ok := <-ls.updates:
			if !ok {
				return
			}
			if n := ls.current(); n != nil {
				n.PushState(snap)
			}
		case <-ls.release:
			if n := ls.current(); n != nil {
				n.PushRelease()
			}
		case <-ls.Engine.Done():
			// Flush anything queued before the terminal transition.
			for {
				select {
				case snap := <-ls.updates:
					if n := ls.current(); n != nil {
						n.PushState(snap)
					}
				case <-ls.release:
					if n := ls.current(); n != nil {
						n.PushRelease()
					}
				default:
					return
				}
			}
		}
	}
}

func (ls *LiveSession) current() Notifier {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.notifier
}

// SessionService owns the live session registry: at most one proctored
// session per employee, because the camera stream and fullscreen lock
// are exclusive resources.
type SessionService struct {
	cfg         *config.Config
	content     *ContentService
	sink        *ResultsSinkService
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger

	mu       sync.Mutex
	sessions map[int]*LiveSession
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	content *ContentService,
	sink *ResultsSinkService,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:         cfg,
		content:     content,
		sink:        sink,
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "session_service").Logger(),
		sessions:    make(map[int]*LiveSession),
	}
}

// Create opens a new proctored session in Instructions. The identifier
// triple is validated here once; everything downstream receives resolved
// ids. Re-attempts are rejected against the attempts table before any
// session state exists.
func (s *SessionService) Create(ctx context.Context, key model.SessionKey) (*LiveSession, error) {
	if !key.Resolved() {
		return nil, proctor.ErrUnresolvedIdentity
	}

	finished, err := s.attemptRepo.HasFinishedAttempt(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if finished {
		return nil, ErrAttemptExists
	}

	exam, err := s.content.GetExam(ctx, key.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	s.mu.Lock()
	if _, live := s.sessions[key.EmployeeID]; live {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	// Reserve the slot before the attempt row is opened so two rapid
	// requests cannot both pass the registry check.
	s.sessions[key.EmployeeID] = nil
	s.mu.Unlock()

	if _, err := s.attemptRepo.Open(ctx, key); err != nil {
		s.remove(key.EmployeeID)
		return nil, fmt.Errorf("open attempt: %w", err)
	}

	ls := newLiveSession(s.cfg.PresenceStaleAfter)

	engineLog := s.log.With().
		Int("employee_id", key.EmployeeID).
		Str("exam_id", key.ExamID.String()).
		Int("job_id", key.JobID).
		Logger()

	ls.Engine = proctor.New(key,
		proctor.Config{
			Duration:     time.Duration(exam.DurationMinutes) * time.Minute,
			Grace:        s.cfg.PresenceGrace,
			PresencePoll: s.cfg.PresencePollInterval,
			Tick:         s.cfg.EngineTick,
		},
		proctor.Deps{
			Content:  s.content,
			Sink:     s.sink,
			Presence: ls.Presence,
			Screen:   ls.screen,
			Log:      engineLog,
		},
		proctor.Hooks{
			OnState: ls.queueState,
			OnAnswer: func(qid uuid.UUID, opt model.OptionLabel) {
				s.mirrorAnswer(key, qid, opt)
			},
		},
	)

	ls.start()

	s.mu.Lock()
	s.sessions[key.EmployeeID] = ls
	s.mu.Unlock()

	go s.reap(key, ls)

	s.log.Info().
		Int("employee_id", key.EmployeeID).
		Str("exam_id", key.ExamID.String()).
		Bool("refresher", key.IsRefresher()).
		Msg("Proctored session created")
	return ls, nil
}

// Get returns the employee's live session for the given exam.
func (s *SessionService) Get(employeeID int, examID uuid.UUID) (*LiveSession, error) {
	s.mu.Lock()
	ls := s.sessions[employeeID]
	s.mu.Unlock()

	if ls == nil || ls.Engine == nil || ls.Engine.Key().ExamID != examID {
		return nil, ErrNoSession
	}
	return ls, nil
}

// Cancel discards a not-yet-started session and its attempt row.
func (s *SessionService) Cancel(ctx context.Context, employeeID int, examID uuid.UUID) error {
	ls, err := s.Get(employeeID, examID)
	if err != nil {
		return err
	}
	if err := ls.Engine.Cancel(ctx); err != nil {
		return err
	}
	if err := s.attemptRepo.Delete(ctx, ls.Engine.Key()); err != nil {
		s.log.Warn().Err(err).Msg("Cancelled attempt row not deleted")
	}
	s.remove(employeeID)
	return nil
}

// Result retrieves a persisted attempt outcome with its group scores.
func (s *SessionService) Result(ctx context.Context, key model.SessionKey) (*model.ExamAttempt, []model.GroupScore, error) {
	return s.attemptRepo.GetResult(ctx, key)
}

// mirrorAnswer keeps a Redis copy of the in-flight answers so a reload
// can restore the UI. Runs off the engine goroutine; best-effort.
func (s *SessionService) mirrorAnswer(key model.SessionKey, qid uuid.UUID, opt model.OptionLabel) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		mirror := config.CacheKey.EmployeeAnswersKey(key.ExamID.String(), key.EmployeeID)
		if err := s.rdb.HSet(ctx, mirror, qid.String(), string(opt)).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Answer mirror write failed")
		}
	}()
}

// reap waits for the session to close, cleans up after terminations and
// cancellations, and drops the registry entry after the retention window.
func (s *SessionService) reap(key model.SessionKey, ls *LiveSession) {
	<-ls.Engine.Done()

	snap := ls.Engine.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch {
	case snap.State == proctor.StateTerminated:
		// Terminated sessions discard their answers entirely.
		mirror := config.CacheKey.EmployeeAnswersKey(key.ExamID.String(), key.EmployeeID)
		if err := s.rdb.Del(ctx, mirror).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Answer mirror not cleared")
		}
	case !snap.State.Terminal():
		// Closed without an outcome: pre-start cancellation path.
		if err := s.attemptRepo.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Msg("Abandoned attempt row not deleted")
		}
	}
	cancel()

	if snap.State.Terminal() {
		time.Sleep(sessionRetention)
	}
	s.remove(key.EmployeeID)
}

func (s *SessionService) remove(employeeID int) {
	s.mu.Lock()
	delete(s.sessions, employeeID)
	s.mu.Unlock()
}
