package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"zonarated-bot/internal/metrics"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/notify"
)

const (
	TaskQualification = "qualification_sweep"
	TaskMaintenance   = "maintenance_expiry"
	TaskPublisher     = "publisher"

	sweepLimit = 500
)

type Qualifier interface {
	PromoteQualified(ctx context.Context, limit int) ([]models.User, int, error)
}

type MaintenanceExpirer interface {
	ExpireIfEnded(ctx context.Context) (bool, error)
}

type Announcer interface {
	RequirementsMet(ctx context.Context, u models.User, required int) notify.Result
}

type JobStore interface {
	DueJobs(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error)
	ClaimJob(ctx context.Context, id uint) (bool, error)
	FinishJob(ctx context.Context, id uint, status models.JobStatus, errMsg string, contentID *int64, at time.Time) error
}

// Publisher performs the external work of one job and returns the id of the
// content it created.
type Publisher interface {
	Publish(ctx context.Context, job models.ScheduledJob) (int64, error)
}

type BatchPolicy interface {
	PublishBatchSize(ctx context.Context) int
}

type Reconciler struct {
	qualifier   Qualifier
	maintenance MaintenanceExpirer
	announcer   Announcer
	jobs        JobStore
	publisher   Publisher
	policy      BatchPolicy
	clock       quartz.Clock
	interval    time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

type Deps struct {
	Qualifier   Qualifier
	Maintenance MaintenanceExpirer
	Announcer   Announcer
	Jobs        JobStore
	Publisher   Publisher
	Policy      BatchPolicy
	Clock       quartz.Clock
	Interval    time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

func NewReconciler(d Deps) *Reconciler {
	if d.Interval <= 0 {
		d.Interval = time.Minute
	}
	return &Reconciler{
		qualifier:   d.Qualifier,
		maintenance: d.Maintenance,
		announcer:   d.Announcer,
		jobs:        d.Jobs,
		publisher:   d.Publisher,
		policy:      d.Policy,
		clock:       d.Clock,
		interval:    d.Interval,
		logger:      d.Logger.Named("reconciler"),
		metrics:     d.Metrics,
	}
}

// Run ticks once immediately and then every interval until ctx is done.
// Cancellation is only observed between ticks; a tick in progress completes.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started", zap.Duration("interval", r.interval))

	r.Tick(context.WithoutCancel(ctx))

	w := r.clock.TickerFunc(ctx, r.interval, func() error {
		r.Tick(context.WithoutCancel(ctx))
		return nil
	}, "reconciler")

	err := w.Wait()
	r.logger.Info("reconciler stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Tick runs every sub-task. A failing sub-task is logged and does not stop
// the others.
func (r *Reconciler) Tick(ctx context.Context) {
	r.run(ctx, TaskQualification, r.sweepQualified)
	r.run(ctx, TaskMaintenance, r.expireMaintenance)
	r.run(ctx, TaskPublisher, r.publishDue)
}

func (r *Reconciler) run(ctx context.Context, task string, fn func(context.Context) error) {
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn(ctx)
	}()
	r.metrics.SchedulerTask(task, err)
	if err != nil {
		r.logger.Error("reconciler task failed", zap.String("task", task), zap.Error(err))
	}
}

func (r *Reconciler) sweepQualified(ctx context.Context) error {
	promoted, required, err := r.qualifier.PromoteQualified(ctx, sweepLimit)
	for _, u := range promoted {
		if res := r.announcer.RequirementsMet(ctx, u, required); res.Status == notify.StatusFailed {
			r.logger.Warn("could not notify qualified user", zap.Int64("user_id", u.ID), zap.Error(res.Err))
		}
	}
	return err
}

func (r *Reconciler) expireMaintenance(ctx context.Context) error {
	expired, err := r.maintenance.ExpireIfEnded(ctx)
	if err != nil {
		return err
	}
	if expired {
		r.logger.Info("maintenance window ended, maintenance disabled")
	}
	return nil
}

// publishDue claims each due job before doing any external work. A crash
// after the claim leaves the job in_progress for an operator to inspect
// instead of publishing it twice.
func (r *Reconciler) publishDue(ctx context.Context) error {
	jobs, err := r.jobs.DueJobs(ctx, r.clock.Now().UTC(), r.policy.PublishBatchSize(ctx))
	if err != nil {
		return err
	}

	var errs []error
	for _, job := range jobs {
		claimed, err := r.jobs.ClaimJob(ctx, job.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}

		contentID, pubErr := r.publish(ctx, job)

		status, msg, ref := models.JobDone, "", &contentID
		if pubErr != nil {
			status, msg, ref = models.JobFailed, pubErr.Error(), nil
			r.logger.Error("scheduled job failed", zap.Uint("job_id", job.ID), zap.String("title", job.Title), zap.Error(pubErr))
		} else {
			r.logger.Info("scheduled job published", zap.Uint("job_id", job.ID), zap.Int64("content_id", contentID))
		}

		if err := r.jobs.FinishJob(ctx, job.ID, status, msg, ref, r.clock.Now().UTC()); err != nil {
			errs = append(errs, err)
			continue
		}
		r.metrics.JobOutcome(string(status))
	}
	return errors.Join(errs...)
}

func (r *Reconciler) publish(ctx context.Context, job models.ScheduledJob) (id int64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while publishing: %v", p)
		}
	}()
	return r.publisher.Publish(ctx, job)
}
