package order

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
)

const (
	DefaultSubmitTimeout = 15 * time.Second
	MaxRetries           = 1
)

type Accumulator interface {
	Add(minutes int) error
}

// Refresher re-reads the rush status right after the accumulator moved.
type Refresher interface {
	PollNow(ctx context.Context) (rush.Status, error)
}

// Checkout is the part of the screen controller involved in a submission.
type Checkout interface {
	BeginCheckout() error
	AbortCheckout()
	ConfirmOrder(orderID string) error
}

type Metrics interface {
	ObserveSubmission(scope string, success bool, total float64, prepMinutes int)
}

type Config struct {
	SubmitTimeout time.Duration
	Retries       int
}

func DefaultConfig() Config {
	return Config{SubmitTimeout: DefaultSubmitTimeout}
}

// ConfigFrom reads order.submit_timeout and order.retries. Unparsable values
// keep their defaults.
func ConfigFrom(config *apt.Config) Config {
	cfg := DefaultConfig()
	if config == nil {
		return cfg
	}
	if raw, ok := config.GetString("order.submit_timeout"); ok && raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.SubmitTimeout = d
		}
	}
	if raw, ok := config.GetString("order.retries"); ok && raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.Retries = n
		}
	}
	return cfg.normalized()
}

func (c Config) normalized() Config {
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.Retries > MaxRetries {
		c.Retries = MaxRetries
	}
	return c
}

type Deps struct {
	Submitter   Submitter
	Accumulator Accumulator
	Monitor     Refresher
	History     History
	Publisher   events.Publisher
	Receipts    events.Publisher
	Metrics     Metrics
}

// Request is one payment of a cart.
type Request struct {
	Cart        *cart.Cart
	TableNumber int
	Meta        Metadata
	Checkout    Checkout
}

// Aggregator turns carts into orders. Submissions of different carts run
// independently; a cart already being submitted is refused.
type Aggregator struct {
	submitter   Submitter
	accumulator Accumulator
	monitor     Refresher
	history     History
	publisher   events.Publisher
	receipts    events.Publisher
	metrics     Metrics
	config      Config
	ids         *IDGenerator
	now         func() time.Time
	logger      apt.Logger

	mu       sync.Mutex
	inflight map[*cart.Cart]struct{}
}

func NewAggregator(deps Deps, cfg Config, logger apt.Logger) *Aggregator {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Aggregator{
		submitter:   deps.Submitter,
		accumulator: deps.Accumulator,
		monitor:     deps.Monitor,
		history:     deps.History,
		publisher:   deps.Publisher,
		receipts:    deps.Receipts,
		metrics:     deps.Metrics,
		config:      cfg.normalized(),
		ids:         NewIDGenerator(),
		now:         time.Now,
		logger:      logger,
		inflight:    make(map[*cart.Cart]struct{}),
	}
}

// Submit validates and sends the cart. On success the accumulator grows by
// the order prep time, the submitted lines leave the cart and the checkout
// moves to the confirmation. On failure nothing changes.
func (a *Aggregator) Submit(ctx context.Context, req Request) (Receipt, error) {
	if req.Cart == nil {
		return Receipt{}, &ValidationError{Field: "cart", Message: "cart is required"}
	}
	if a.submitter == nil {
		return Receipt{}, ErrNoSubmitter
	}

	if !a.acquire(req.Cart) {
		return Receipt{}, ErrSubmissionInProgress
	}
	defer a.release(req.Cart)

	lines := req.Cart.Items()
	orderID := a.ids.Next(req.TableNumber, req.Meta)
	payload, err := BuildPayload(lines, req.TableNumber, req.Meta, orderID, a.now().UTC())
	if err != nil {
		return Receipt{}, err
	}

	if req.Checkout != nil {
		if err := req.Checkout.BeginCheckout(); err != nil {
			return Receipt{}, err
		}
	}

	log := a.logger.With("order_id", orderID, "table", payload.TableNumber, "scope", payload.Scope)

	res, err := a.send(ctx, payload, log)
	if err != nil {
		if req.Checkout != nil {
			req.Checkout.AbortCheckout()
		}
		a.observe(payload, false)
		log.Error("order submission failed", "error", err)
		return Receipt{}, &SubmissionError{OrderID: orderID, Scope: payload.Scope, Err: err}
	}

	if a.accumulator != nil {
		if err := a.accumulator.Add(payload.TotalPrepTime); err != nil {
			log.Error("cannot add prep time", "minutes", payload.TotalPrepTime, "error", err)
		}
	}
	req.Cart.Deduct(lines)
	if req.Checkout != nil {
		if err := req.Checkout.ConfirmOrder(orderID); err != nil {
			log.Info("confirmation screen not shown", "error", err)
		}
	}

	receipt := NewReceipt(payload, res, a.now().UTC())
	log.Info("order submitted", "backend_id", res.OrderID, "total", payload.TotalPrice.String(), "prep_minutes", payload.TotalPrepTime)

	a.afterSubmit(ctx, receipt, payload, log)
	return receipt, nil
}

// send calls the submitter under the configured timeout, retrying at most
// config.Retries times. A failed Result is returned as a *RejectedError.
func (a *Aggregator) send(ctx context.Context, p Payload, log apt.Logger) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= a.config.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return Result{}, lastErr
			}
			return Result{}, err
		}
		if attempt > 0 {
			log.Info("retrying order submission", "attempt", attempt+1, "error", lastErr)
		}

		res, err := a.submitOnce(ctx, p)
		if err == nil && res.Success {
			return res, nil
		}
		if err == nil {
			err = &RejectedError{Reason: res.Error}
		}
		lastErr = err
	}
	return Result{}, lastErr
}

func (a *Aggregator) submitOnce(ctx context.Context, p Payload) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.config.SubmitTimeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := a.submitter.SubmitOrder(callCtx, p)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Result{}, errors.Join(errors.New("order submission timed out"), callCtx.Err())
		}
		return Result{}, callCtx.Err()
	}
}

// afterSubmit runs the side effects that must never fail an accepted order.
func (a *Aggregator) afterSubmit(ctx context.Context, receipt Receipt, p Payload, log apt.Logger) {
	a.observe(p, true)

	if a.history != nil {
		if err := a.history.Save(ctx, receipt); err != nil {
			log.Error("cannot save order receipt", "error", err)
		}
	}

	evt := receipt.Event()
	if err := pkg.PublishJSON(ctx, a.publisher, event.OrdersSubmittedTopic, evt); err != nil {
		log.Error("cannot publish order submitted event", "error", err)
	}
	if err := pkg.PublishJSON(ctx, a.receipts, event.OrdersSubmittedTopic, evt); err != nil {
		log.Error("cannot store order receipt in stream", "error", err)
	}

	if a.monitor != nil {
		if _, err := a.monitor.PollNow(ctx); err != nil {
			log.Debug("rush status refresh failed", "error", err)
		}
	}
}

func (a *Aggregator) observe(p Payload, success bool) {
	if a.metrics == nil {
		return
	}
	a.metrics.ObserveSubmission(string(p.Scope), success, p.TotalPrice.Float(), p.TotalPrepTime)
}

// InFlight reports whether c is being submitted.
func (a *Aggregator) InFlight(c *cart.Cart) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inflight[c]
	return ok
}

// Exclusive runs fn while holding the submission slot of c, so no submission
// of c can start until fn returns. It fails with ErrSubmissionInProgress when
// c is already being submitted.
func (a *Aggregator) Exclusive(c *cart.Cart, fn func()) error {
	if !a.acquire(c) {
		return ErrSubmissionInProgress
	}
	defer a.release(c)
	fn()
	return nil
}

func (a *Aggregator) acquire(c *cart.Cart) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inflight[c]; busy {
		return false
	}
	a.inflight[c] = struct{}{}
	return true
}

func (a *Aggregator) release(c *cart.Cart) {
	a.mu.Lock()
	delete(a.inflight, c)
	a.mu.Unlock()
}
