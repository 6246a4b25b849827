package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/checkoutplus/cashback/internal/clock"
	"github.com/checkoutplus/cashback/internal/issuer"
	obsmetrics "github.com/checkoutplus/cashback/internal/observability/metrics"
	rewarddomain "github.com/checkoutplus/cashback/internal/reward/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("dispatcher: missing dependency")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Rewards rewarddomain.Repository
	Issuer  issuer.Service
	Config  Config `optional:"true"`
}

// Dispatcher sweeps due pending rewards and drives the issuer over
// each, one at a time. Scheduled and manual triggers share RunOnce;
// the claim lease makes concurrent invocations safe.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     Config
	clock   clock.Clock
	rewards rewarddomain.Repository
	issuer  issuer.Service
}

func New(p Params) (*Dispatcher, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Rewards == nil || p.Issuer == nil {
		return nil, ErrInvalidConfig
	}
	return &Dispatcher{
		db:      p.DB,
		log:     p.Log.Named("dispatcher").With(zap.String("component", "dispatcher")),
		cfg:     p.Config.withDefaults(),
		clock:   p.Clock,
		rewards: p.Rewards,
		issuer:  p.Issuer,
	}, nil
}

// SweepError reports one record's failure inside a sweep summary.
type SweepError struct {
	OrderID   string `json:"order_id"`
	OrderName string `json:"order_name"`
	Error     string `json:"error"`
}

type Summary struct {
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Errors    []SweepError `json:"errors"`
}

// RunOnce claims the due batch and processes it sequentially in
// ascending dispatch order. One record's failure never aborts the
// sweep; it is recorded and the next record is attempted.
func (d *Dispatcher) RunOnce(parent context.Context) (Summary, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, d.cfg.SweepTimeout)
	defer cancel()

	dispatchMetrics := obsmetrics.Dispatch()
	dispatchMetrics.IncSweep()
	defer func() {
		dispatchMetrics.ObserveSweepDuration(time.Since(start))
	}()

	now := d.clock.Now()
	records, err := d.rewards.ClaimDue(ctx, d.db, now, d.cfg.ClaimLease, d.cfg.MaxAttempts, d.cfg.BatchSize)
	if err != nil {
		return Summary{Errors: []SweepError{}}, err
	}

	summary := Summary{Processed: len(records), Errors: []SweepError{}}
	if len(records) == 0 {
		return summary, nil
	}

	d.log.Info("processing due rewards", zap.Int("count", len(records)))

	for _, record := range records {
		if err := d.processRecord(ctx, record); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, SweepError{
				OrderID:   record.OrderID,
				OrderName: record.OrderName,
				Error:     err.Error(),
			})
			continue
		}
		summary.Succeeded++
	}

	d.log.Info("sweep complete",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (d *Dispatcher) processRecord(ctx context.Context, record rewarddomain.PendingReward) error {
	log := d.log.With(
		zap.String("order_id", record.OrderID),
		zap.String("order_name", record.OrderName),
	)
	dispatchMetrics := obsmetrics.Dispatch()

	code, err := d.issuer.Issue(ctx, record)
	if err != nil {
		log.Warn("issuance failed", zap.Int("attempt", record.RetryCount+1), zap.Error(err))
		dispatchMetrics.IncFailed()
		if failErr := d.rewards.MarkFailed(ctx, d.db, record.OrderID, err.Error(), d.clock.Now()); failErr != nil {
			log.Error("failed to record issuance failure", zap.Error(failErr))
		}
		if d.cfg.MaxAttempts > 0 && record.RetryCount+1 >= d.cfg.MaxAttempts {
			dispatchMetrics.IncExhausted(1)
			log.Error("reward exhausted retry budget, leaving sweep rotation",
				zap.Int("attempts", record.RetryCount+1),
			)
		}
		return err
	}

	if err := d.rewards.MarkSent(ctx, d.db, record.OrderID, code, d.clock.Now()); err != nil {
		// The code already exists on the platform; losing this write
		// would let a later sweep issue a second code for the order.
		log.Error("failed to record successful issuance", zap.String("code", code), zap.Error(err))
		dispatchMetrics.IncFailed()
		return err
	}

	dispatchMetrics.IncIssued()
	log.Info("reward issued", zap.String("code", code))
	return nil
}

// RunForever executes sweeps on the configured interval until ctx is
// cancelled.
func (d *Dispatcher) RunForever(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := d.clock.Now().Add(d.cfg.RunInterval)
	dispatchMetrics := obsmetrics.Dispatch()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			dispatchMetrics.ObserveRunLoopLag(runLag)
		}
		if _, err := d.RunOnce(ctx); err != nil {
			d.log.Warn("sweep failed", zap.Error(err))
		}
		nextRun = nextRun.Add(d.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
