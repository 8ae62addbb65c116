package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/purchase"
	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
	"github.com/angelmondragon/ghostcart-backend/pkg/metrics"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
)

// AgentIdentity is the signer identity stamped on carts the scheduler
// assembles on the user's behalf.
const AgentIdentity = "gc_shopping_agent"

// JobStore is the persistence slice the scheduler drives: fresh snapshots,
// check bookkeeping, and conditional transitions out of the active state.
type JobStore interface {
	GetByID(ctx context.Context, id string) (*models.MonitoringJob, error)
	ListActive(ctx context.Context) ([]models.MonitoringJob, error)
	RecordCheck(ctx context.Context, jobID string, at time.Time) error
	MarkCompleted(ctx context.Context, jobID, transactionID string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, jobID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, jobID, reason string, at time.Time) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Signer produces the agent signature on synthesized carts.
type Signer interface {
	Sign(doc any, identity string, role enums.SignerRole) (signature.Envelope, error)
}

// Purchaser executes the purchase once conditions are met.
type Purchaser interface {
	Execute(ctx context.Context, input purchase.Input) (*purchase.Result, error)
}

// SchedulerParams wires the scheduler.
type SchedulerParams struct {
	Config    config.MonitoringConfig
	Repo      JobStore
	Intents   IntentLoader
	Checker   ConditionChecker
	Signer    Signer
	Purchaser Purchaser
	Events    EventSink
	Metrics   *metrics.MonitorMetrics
	Logger    *logger.Logger
}

// Scheduler drives all active monitoring jobs. It rescans the store on a
// fixed cadence and runs one long-lived goroutine per job, each ticking at
// the job's own interval, so a slow merchant call on one job never delays
// another. The scheduler is the only component that moves a job out of the
// active state on its own authority.
type Scheduler struct {
	cfg       config.MonitoringConfig
	repo      JobStore
	intents   IntentLoader
	checker   ConditionChecker
	signer    Signer
	purchaser Purchaser
	events    EventSink
	metrics   *metrics.MonitorMetrics
	logg      *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	runners map[string]*runner
	wg      sync.WaitGroup
}

type runner struct {
	jobID    string
	interval time.Duration
	stop     chan struct{}
	// mu serializes check executions for this job; a tick that fires while
	// the previous one is still talking to the merchant is skipped.
	mu sync.Mutex
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("monitoring repo is required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("intent loader is required")
	}
	if params.Checker == nil {
		return nil, fmt.Errorf("condition checker is required")
	}
	if params.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if params.Purchaser == nil {
		return nil, fmt.Errorf("purchaser is required")
	}
	return &Scheduler{
		cfg:       params.Config,
		repo:      params.Repo,
		intents:   params.Intents,
		checker:   params.Checker,
		signer:    params.Signer,
		purchaser: params.Purchaser,
		events:    params.Events,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       time.Now,
		runners:   make(map[string]*runner),
	}, nil
}

// WithClock overrides the time source, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run blocks until the context is cancelled, rescanning for active jobs and
// keeping one runner alive per job. In-flight checks finish before Run
// returns.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.cfg.RescanInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.rescan(ctx)
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.rescan(ctx)
		}
	}
}

// rescan reconciles runners with the set of active jobs. Jobs past their
// deadline are swept first so their runners see the terminal state and exit.
func (s *Scheduler) rescan(ctx context.Context) {
	if swept, err := s.repo.SweepExpired(ctx, s.now()); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "expiration sweep failed", err)
		}
	} else if swept > 0 && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "count", swept), "expired monitoring jobs swept")
	}

	jobs, err := s.repo.ListActive(ctx)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "listing active monitoring jobs failed", err)
		}
		return
	}
	s.metrics.SetActiveJobs(len(jobs))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range jobs {
		if _, running := s.runners[job.ID]; running {
			continue
		}
		s.startRunnerLocked(ctx, job)
	}
}

func (s *Scheduler) startRunnerLocked(ctx context.Context, job models.MonitoringJob) {
	interval := time.Duration(job.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = s.cfg.Interval()
	}
	r := &runner{jobID: job.ID, interval: interval, stop: make(chan struct{})}
	s.runners[job.ID] = r
	s.wg.Add(1)
	go s.runJob(ctx, r)
	if s.logg != nil {
		s.logg.Info(s.logg.WithJobID(ctx, job.ID), "monitoring runner started")
	}
}

func (s *Scheduler) runJob(ctx context.Context, r *runner) {
	defer s.wg.Done()
	defer s.removeRunner(r.jobID)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			if done := s.tick(ctx, r); done {
				return
			}
		}
	}
}

func (s *Scheduler) removeRunner(jobID string) {
	s.mu.Lock()
	delete(s.runners, jobID)
	s.mu.Unlock()
}

func (s *Scheduler) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runners {
		close(r.stop)
	}
}

// tick runs one condition check. Returns true when the runner should stop:
// the job reached a terminal state or disappeared. Every tick starts from a
// fresh job snapshot so cancellation and concurrent completion are honored
// at the tick boundary.
func (s *Scheduler) tick(ctx context.Context, r *runner) bool {
	if !r.mu.TryLock() {
		return false
	}
	defer r.mu.Unlock()

	started := s.now()
	ctx = s.logCtx(ctx, r.jobID)

	job, err := s.repo.GetByID(ctx, r.jobID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return true
		}
		s.observe(started, "error")
		if s.logg != nil {
			s.logg.Error(ctx, "loading monitoring job failed", err)
		}
		return false
	}
	if job.Status != enums.JobStatusActive {
		return true
	}

	now := s.now()
	if job.Expired(now) {
		s.expireJob(ctx, job, now)
		s.observe(started, "expired")
		return true
	}

	intent, err := s.intents.GetIntent(ctx, job.IntentMandateID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			_, _ = s.repo.MarkFailed(ctx, job.ID, "intent_not_found", now)
			s.emitTerminal(ctx, job, enums.EventMonitoringFailed, map[string]any{
				"reason": "intent_not_found",
			})
			s.observe(started, "failed")
			return true
		}
		s.observe(started, "error")
		return false
	}
	if intent.Expired(now) {
		s.expireJob(ctx, job, now)
		s.observe(started, "expired")
		return true
	}

	constraints, err := jobConstraints(*job)
	if err != nil {
		_, _ = s.repo.MarkFailed(ctx, job.ID, "constraints_unreadable", now)
		s.observe(started, "failed")
		return true
	}

	if err := s.repo.RecordCheck(ctx, job.ID, now); err != nil && s.logg != nil {
		s.logg.Error(ctx, "recording check failed", err)
	}
	checkNumber := job.ChecksPerformed + 1

	checkCtx := ctx
	if s.cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, s.cfg.CheckTimeout)
		defer cancel()
	}
	ev, err := evaluate(checkCtx, s.checker, *job, constraints)
	if err != nil {
		// A slow merchant is indistinguishable from a missing product for
		// this tick; the next one retries.
		outcome := "error"
		if timedOut(checkCtx, err) {
			outcome = "timeout"
		}
		s.observe(started, outcome)
		s.emitCheck(ctx, job, checkNumber, ev, outcome)
		return false
	}

	if !ev.Met {
		s.observe(started, "conditions_not_met")
		s.emitCheck(ctx, job, checkNumber, ev, "conditions_not_met")
		return false
	}

	return s.executePurchase(ctx, job, intent, ev, checkNumber, started)
}

// executePurchase runs the autonomous purchase for a matched check and maps
// the outcome onto the job state machine: success and already-purchased are
// completed, terminal chain failures are failed, transient failures leave the
// job active for the next tick.
func (s *Scheduler) executePurchase(ctx context.Context, job *models.MonitoringJob, intent mandate.IntentMandate, ev Evaluation, checkNumber int, started time.Time) bool {
	now := s.now()

	cart, err := s.checker.BuildCart(ctx, ev.Offer.Product.ID, 1, intent.ID, job.ProductQuery)
	if err != nil {
		s.observe(started, "error")
		return false
	}
	env, err := s.signer.Sign(cart.SigningPayload(), AgentIdentity, enums.SignerRoleAgent)
	if err != nil {
		s.observe(started, "error")
		return false
	}
	cart.Signature = &env

	result, err := s.purchaser.Execute(ctx, purchase.Input{
		UserID:       job.UserID,
		Scenario:     enums.ScenarioDelegated,
		Intent:       &intent,
		Cart:         cart,
		HumanPresent: false,
	})
	if err == nil {
		_, _ = s.repo.MarkCompleted(ctx, job.ID, result.Transaction.ID, now)
		s.metrics.IncPurchaseSuccess(cart.MerchantInfo.MerchantID)
		s.observe(started, "purchased")
		s.emitTerminal(ctx, job, enums.EventMonitoringDone, map[string]any{
			"transaction_id": result.Transaction.ID,
			"amount_cents":   result.Transaction.AmountCents,
			"product_id":     ev.Offer.Product.ID,
		})
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"transaction_id": result.Transaction.ID,
				"check_number":   checkNumber,
			}), "autonomous purchase authorized")
		}
		return true
	}

	code := pkgerrors.CodeOf(err)
	s.metrics.IncPurchaseFailure(code.String())

	switch {
	case code == pkgerrors.CodeConflict:
		// Another attempt already authorized this intent. The watch's goal
		// is met either way.
		_, _ = s.repo.MarkCompleted(ctx, job.ID, "", now)
		s.observe(started, "already_purchased")
		return true
	case pkgerrors.Terminal(code):
		_, _ = s.repo.MarkFailed(ctx, job.ID, code.String(), now)
		s.observe(started, "failed")
		s.emitTerminal(ctx, job, enums.EventMonitoringFailed, map[string]any{
			"reason": code.String(),
		})
		if s.logg != nil {
			s.logg.Error(ctx, "autonomous purchase failed terminally", err)
		}
		return true
	default:
		s.observe(started, "retryable_failure")
		s.emitCheck(ctx, job, checkNumber, ev, code.String())
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "code", code.String()),
				"autonomous purchase failed, will retry")
		}
		return false
	}
}

func (s *Scheduler) expireJob(ctx context.Context, job *models.MonitoringJob, now time.Time) {
	changed, err := s.repo.MarkExpired(ctx, job.ID, now)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "expiring monitoring job failed", err)
		}
		return
	}
	if !changed {
		return
	}
	s.emitTerminal(ctx, job, enums.EventMonitoringExpired, map[string]any{
		"product_query": job.ProductQuery,
		"expires_at":    job.ExpiresAt,
	})
	if s.logg != nil {
		s.logg.Info(ctx, "monitoring job expired")
	}
}

// emitCheck publishes a per-check notice. The aggregate ID carries the check
// number so repeated notices for one job stay distinct.
func (s *Scheduler) emitCheck(ctx context.Context, job *models.MonitoringJob, checkNumber int, ev Evaluation, outcome string) {
	if s.events == nil {
		return
	}
	data := map[string]any{
		"job_id":       job.ID,
		"intent_id":    job.IntentMandateID,
		"check_number": checkNumber,
		"outcome":      outcome,
		"reason":       ev.Reason(),
	}
	if ev.ProductFound {
		data["product_id"] = ev.Offer.Product.ID
		data["current_price_cents"] = ev.Offer.PriceCents
		data["projected_total_cents"] = ev.ProjectedTotalCents
	}
	_ = s.events.Emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventMonitoringChecked,
		AggregateType: enums.AggregateMonitoringJob,
		AggregateID:   fmt.Sprintf("%s#%d", job.ID, checkNumber),
		Data:          data,
		Version:       1,
	})
}

func (s *Scheduler) emitTerminal(ctx context.Context, job *models.MonitoringJob, eventType enums.OutboxEventType, data map[string]any) {
	if s.events == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["job_id"] = job.ID
	data["intent_id"] = job.IntentMandateID
	_ = s.events.Emit(ctx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateMonitoringJob,
		AggregateID:   job.ID,
		Data:          data,
		Version:       1,
	})
}

func (s *Scheduler) observe(started time.Time, outcome string) {
	s.metrics.ObserveCheck(outcome, s.now().Sub(started))
}

func (s *Scheduler) logCtx(ctx context.Context, jobID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithJobID(ctx, jobID)
}
