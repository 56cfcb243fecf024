package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"TurtleTrader/internal/backtest"
	"TurtleTrader/internal/notifier"
)

const defaultTradeRows = 20

// Backtester runs one complete backtest on fresh state.
type Backtester interface {
	Run(ctx context.Context) (*backtest.Result, error)
}

// Sender pushes a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler re-runs the backtest on a cron schedule and serves the latest
// finished result to chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Backtester
	Notifier Sender // nil disables pushes
	Ctx      context.Context
	Timeout  time.Duration

	running sync.Mutex // held for the duration of a run

	mu      sync.RWMutex
	latest  *backtest.Result
	lastErr error
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Backtester, sender Sender) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Ctx:      ctx,
		Timeout:  5 * time.Minute,
	}
}

// Register schedules the backtest refresh.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// RunNow executes the refresh task immediately (for RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

// Latest returns the most recent successful result and the error of the
// most recent run, if it failed.
func (s *Scheduler) Latest() (*backtest.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.lastErr
}

var errBusy = errors.New("a backtest is already running")

// run executes one backtest and publishes it. Overlapping runs are refused.
func (s *Scheduler) run(ctx context.Context) (*backtest.Result, error) {
	if !s.running.TryLock() {
		return nil, errBusy
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	res, err := s.Runner.Run(ctx)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.latest = res
	}
	s.mu.Unlock()
	return res, err
}

func (s *Scheduler) refreshTask() {
	log.Info("running scheduled backtest")
	res, err := s.run(s.Ctx)
	if err != nil {
		log.Errorf("scheduled backtest: %v", err)
		if !errors.Is(err, errBusy) {
			s.trySend(notifier.FormatError(err))
		}
		return
	}
	s.trySend(notifier.FormatSummary(res))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Telegram appends @botname to commands in groups.
	name, _, _ := strings.Cut(fields[0], "@")

	switch name {
	case "/summary":
		res, err := s.Latest()
		if res == nil {
			return noResult(err)
		}
		return notifier.FormatSummary(res)
	case "/trades":
		res, err := s.Latest()
		if res == nil {
			return noResult(err)
		}
		limit := defaultTradeRows
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil {
				limit = n
			}
		}
		return notifier.FormatTrades(res, limit)
	case "/run":
		res, err := s.run(ctx)
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatSummary(res)
	default:
		return helpText
	}
}

const helpText = "Commands:\n• /summary : latest backtest summary\n• /trades [n] : last n trades\n• /run : rerun the backtest now"

func noResult(err error) string {
	if err != nil {
		return notifier.FormatError(err)
	}
	return "No backtest has finished yet. Send /run to start one."
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Errorf("send notification: %v", err)
	}
}
