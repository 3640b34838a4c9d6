package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
)

var (
	dishA = catalog.Dish{ID: "A", Name: "Lasagna al forno", Category: "plat", Price: catalog.NewMoney(10), PrepTime: 15}
	dishB = catalog.Dish{ID: "B", Name: "Brownie (home made)", Category: "dessert", Price: catalog.NewMoney(5), PrepTime: 5}
)

type fixture struct {
	agg       *Aggregator
	submitter *MockOrderSubmitter
	acc       *rush.Accumulator
	history   *MemoryHistory
	publisher *MockPublisher
	metrics   *MockMetrics
	refresher *MockRefresher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		submitter: &MockOrderSubmitter{},
		acc:       rush.NewAccumulator(),
		history:   NewMemoryHistory(0),
		publisher: &MockPublisher{},
		metrics:   &MockMetrics{},
		refresher: &MockRefresher{},
	}
	f.agg = NewAggregator(Deps{
		Submitter:   f.submitter,
		Accumulator: f.acc,
		Monitor:     f.refresher,
		History:     f.history,
		Publisher:   f.publisher,
		Metrics:     f.metrics,
	}, cfg, nil)
	return f
}

func sharedCartScenario() *cart.Cart {
	shared := cart.NewShared()
	p1 := cart.NewPersonal(1)
	p1.AddItem(dishA, 2)
	p1.AddItem(dishB, 1)
	p1.SendTo(shared)
	p2 := cart.NewPersonal(2)
	p2.AddItem(dishA, 1)
	p2.SendTo(shared)
	return shared
}

func TestSubmitSharedCart(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	shared := sharedCartScenario()
	checkout := &MockCheckout{}

	receipt, err := f.agg.Submit(context.Background(), Request{
		Cart:        shared,
		TableNumber: 7,
		Meta:        Metadata{Scope: ScopeShared, CustomersCount: 2},
		Checkout:    checkout,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got := f.acc.Value(); got != 50 {
		t.Errorf("accumulator = %d, want 50", got)
	}
	if !shared.IsEmpty() {
		t.Errorf("shared cart has %d lines after submit", shared.Len())
	}
	if checkout.begun != 1 || len(checkout.confirmed) != 1 || checkout.confirmed[0] != receipt.OrderID {
		t.Errorf("checkout = %+v, want one confirmation of %s", checkout, receipt.OrderID)
	}
	if !strings.HasPrefix(receipt.OrderID, "TABLE-7-SHARED-") {
		t.Errorf("OrderID = %s, want TABLE-7-SHARED- prefix", receipt.OrderID)
	}
	if receipt.TotalPrice != catalog.NewMoney(35) || receipt.TotalPrepTime != 50 {
		t.Errorf("receipt totals = %s / %d, want 35.00 / 50", receipt.TotalPrice, receipt.TotalPrepTime)
	}
	if receipt.BackendID != "backend-1" {
		t.Errorf("BackendID = %s, want backend-1", receipt.BackendID)
	}

	stored, _ := f.history.ListByTable(context.Background(), 7)
	if len(stored) != 1 {
		t.Errorf("history has %d receipts, want 1", len(stored))
	}
	if topics := f.publisher.Topics(); len(topics) != 1 || topics[0] != event.OrdersSubmittedTopic {
		t.Errorf("published topics = %v", topics)
	}
	if f.metrics.success != 1 || f.refresher.polls != 1 {
		t.Errorf("metrics success = %d, polls = %d, want 1 and 1", f.metrics.success, f.refresher.polls)
	}
}

func TestSubmitAccumulatesAcrossOrders(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	prepTimes := []int{15, 5, 30, 0}

	want := 0
	for i, minutes := range prepTimes {
		c := cart.NewPersonal(i + 1)
		c.AddItem(catalog.Dish{ID: "x", Name: "x", Price: catalog.NewMoney(1), PrepTime: minutes}, 1)
		if _, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: 3, Meta: Metadata{Seat: i + 1}}); err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
		want += minutes
	}
	if got := f.acc.Value(); got != want {
		t.Errorf("accumulator = %d, want %d", got, want)
	}

	f.acc.Reset()
	if got := f.acc.Value(); got != 0 {
		t.Errorf("accumulator after Reset() = %d, want 0", got)
	}
}

func TestSubmitFailureLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name   string
		submit func(ctx context.Context, p Payload) (Result, error)
	}{
		{
			name: "transportError",
			submit: func(ctx context.Context, p Payload) (Result, error) {
				return Result{}, errors.New("connection refused")
			},
		},
		{
			name: "rejected",
			submit: func(ctx context.Context, p Payload) (Result, error) {
				return Result{Success: false, Error: "kitchen closed"}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			f.submitter.SubmitOrderFunc = tt.submit
			_ = f.acc.Add(12)

			c := cart.NewPersonal(2)
			c.AddItem(dishA, 2)
			c.AddItem(dishB, 1)
			before := c.Items()
			checkout := &MockCheckout{}

			_, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: 4, Meta: Metadata{Seat: 2}, Checkout: checkout})

			var subErr *SubmissionError
			if !errors.As(err, &subErr) {
				t.Fatalf("Submit() error = %v, want SubmissionError", err)
			}
			if subErr.Scope != ScopeIndividual || !strings.HasPrefix(subErr.OrderID, "TABLE-4-P2-") {
				t.Errorf("SubmissionError = %+v", subErr)
			}
			if got := f.acc.Value(); got != 12 {
				t.Errorf("accumulator = %d, want 12", got)
			}
			after := c.Items()
			if len(after) != len(before) {
				t.Fatalf("cart has %d lines, want %d", len(after), len(before))
			}
			for i := range before {
				if after[i].DishID() != before[i].DishID() || after[i].Quantity != before[i].Quantity {
					t.Errorf("line %d = %s x%d, want %s x%d", i, after[i].DishID(), after[i].Quantity, before[i].DishID(), before[i].Quantity)
				}
			}
			if checkout.aborted != 1 || len(checkout.confirmed) != 0 {
				t.Errorf("checkout aborted = %d, confirmed = %v", checkout.aborted, checkout.confirmed)
			}
			if f.metrics.failures != 1 || len(f.publisher.Topics()) != 0 {
				t.Errorf("failures = %d, topics = %v", f.metrics.failures, f.publisher.Topics())
			}
		})
	}
}

func TestSubmitRequiresTableNumber(t *testing.T) {
	for _, table := range []int{0, -1, 1000} {
		f := newFixture(t, DefaultConfig())
		c := cart.NewPersonal(1)
		c.AddItem(dishA, 1)
		checkout := &MockCheckout{}

		_, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: table, Checkout: checkout})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Submit(table %d) error = %v, want ValidationError", table, err)
		}
		if f.submitter.Calls() != 0 || f.acc.Value() != 0 || c.TotalItems() != 1 || checkout.begun != 0 {
			t.Errorf("Submit(table %d) had side effects", table)
		}
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.agg.Submit(context.Background(), Request{Cart: cart.NewShared(), TableNumber: 7})

	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "cart" {
		t.Errorf("Submit() error = %v, want cart ValidationError", err)
	}
}

func TestExclusive(t *testing.T) {
	t.Run("refusesSubmissionWhileHeld", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		seat := cart.NewPersonal(1)
		seat.AddItem(dishA, 1)
		shared := cart.NewShared()

		var submitErr error
		err := f.agg.Exclusive(seat, func() {
			if !f.agg.InFlight(seat) {
				t.Error("InFlight(seat) = false inside Exclusive")
			}
			_, submitErr = f.agg.Submit(context.Background(), Request{Cart: seat, TableNumber: 3, Meta: Metadata{Seat: 1}})
			seat.SendTo(shared)
		})
		if err != nil {
			t.Fatalf("Exclusive() error = %v", err)
		}
		if !errors.Is(submitErr, ErrSubmissionInProgress) {
			t.Errorf("Submit() error = %v, want ErrSubmissionInProgress", submitErr)
		}
		if f.agg.InFlight(seat) {
			t.Error("InFlight(seat) = true after Exclusive")
		}
		if len(f.submitter.Payloads()) != 0 {
			t.Errorf("submitted %d payloads, want 0", len(f.submitter.Payloads()))
		}
		if shared.TotalItems() != 1 || !seat.IsEmpty() {
			t.Errorf("shared items = %d, seat empty = %v", shared.TotalItems(), seat.IsEmpty())
		}
	})

	t.Run("refusedDuringSubmission", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		release := make(chan struct{})
		entered := make(chan struct{})
		f.submitter.SubmitOrderFunc = func(ctx context.Context, p Payload) (Result, error) {
			close(entered)
			<-release
			return Result{Success: true, OrderID: p.OrderID}, nil
		}

		seat := cart.NewPersonal(1)
		seat.AddItem(dishA, 2)
		shared := cart.NewShared()

		done := make(chan error, 1)
		go func() {
			_, err := f.agg.Submit(context.Background(), Request{Cart: seat, TableNumber: 3, Meta: Metadata{Seat: 1}})
			done <- err
		}()
		<-entered

		ran := false
		err := f.agg.Exclusive(seat, func() {
			ran = true
			seat.SendTo(shared)
		})
		if !errors.Is(err, ErrSubmissionInProgress) {
			t.Errorf("Exclusive() error = %v, want ErrSubmissionInProgress", err)
		}
		if ran {
			t.Error("Exclusive ran fn during a submission")
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if !seat.IsEmpty() || !shared.IsEmpty() {
			t.Errorf("seat empty = %v, shared items = %d, want both empty", seat.IsEmpty(), shared.TotalItems())
		}
	})
}

func TestSubmitRefusesDuplicate(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	release := make(chan struct{})
	entered := make(chan struct{})
	f.submitter.SubmitOrderFunc = func(ctx context.Context, p Payload) (Result, error) {
		if p.Seat == 1 {
			close(entered)
			<-release
		}
		return Result{Success: true, OrderID: p.OrderID}, nil
	}

	seat1 := cart.NewPersonal(1)
	seat1.AddItem(dishA, 1)
	seat2 := cart.NewPersonal(2)
	seat2.AddItem(dishB, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = f.agg.Submit(context.Background(), Request{Cart: seat1, TableNumber: 5, Meta: Metadata{Seat: 1}})
	}()
	<-entered

	if !f.agg.InFlight(seat1) {
		t.Error("InFlight(seat1) = false during submission")
	}
	if _, err := f.agg.Submit(context.Background(), Request{Cart: seat1, TableNumber: 5, Meta: Metadata{Seat: 1}}); !errors.Is(err, ErrSubmissionInProgress) {
		t.Errorf("second Submit() error = %v, want ErrSubmissionInProgress", err)
	}
	if _, err := f.agg.Submit(context.Background(), Request{Cart: seat2, TableNumber: 5, Meta: Metadata{Seat: 2}}); err != nil {
		t.Errorf("Submit(seat2) error = %v while seat1 is in flight", err)
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Submit() error = %v", firstErr)
	}
	if f.agg.InFlight(seat1) {
		t.Error("InFlight(seat1) = true after submission")
	}
	if got := f.acc.Value(); got != 20 {
		t.Errorf("accumulator = %d, want 20", got)
	}
}

func TestSubmitTimeout(t *testing.T) {
	f := newFixture(t, Config{SubmitTimeout: 20 * time.Millisecond})
	f.submitter.SubmitOrderFunc = func(ctx context.Context, p Payload) (Result, error) {
		time.Sleep(time.Second)
		return Result{Success: true}, nil
	}

	c := cart.NewPersonal(1)
	c.AddItem(dishA, 1)

	start := time.Now()
	_, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Submit() took %s, want the configured timeout", time.Since(start))
	}
	if c.IsEmpty() || f.acc.Value() != 0 {
		t.Error("timed out submission changed the cart or the accumulator")
	}
}

func TestSubmitRetry(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		wantErr   bool
		wantCalls int
	}{
		{name: "noRetryByDefault", retries: 0, wantErr: true, wantCalls: 1},
		{name: "singleRetry", retries: 1, wantErr: false, wantCalls: 2},
		{name: "retriesCapped", retries: 5, wantErr: false, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{Retries: tt.retries})
			f.submitter.SubmitOrderFunc = func(ctx context.Context, p Payload) (Result, error) {
				if f.submitter.Calls() == 1 {
					return Result{}, errors.New("temporary failure")
				}
				return Result{Success: true, OrderID: "ok"}, nil
			}

			c := cart.NewPersonal(1)
			c.AddItem(dishB, 1)
			_, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: 9})
			if (err != nil) != tt.wantErr {
				t.Errorf("Submit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := f.submitter.Calls(); got != tt.wantCalls {
				t.Errorf("submitter calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestSubmitKeepsItemsAddedDuringSubmission(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	c := cart.NewPersonal(1)
	c.AddItem(dishA, 1)

	f.submitter.SubmitOrderFunc = func(ctx context.Context, p Payload) (Result, error) {
		c.AddItem(dishB, 1)
		c.AddItem(dishA, 1)
		return Result{Success: true}, nil
	}

	if _, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: 2}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if c.TotalItems() != 2 {
		t.Errorf("TotalItems() = %d, want the 2 items added during submission", c.TotalItems())
	}
	if got := f.acc.Value(); got != 15 {
		t.Errorf("accumulator = %d, want 15", got)
	}
}

func TestSubmitSideEffectFailuresDoNotFail(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.publisher.PublishFunc = func(ctx context.Context, topic string, msg []byte) error {
		return errors.New("nats down")
	}
	f.refresher.PollNowFunc = func(ctx context.Context) (rush.Status, error) {
		return rush.Status{}, errors.New("poll failed")
	}

	c := cart.NewPersonal(1)
	c.AddItem(dishA, 1)
	checkout := &MockCheckout{ConfirmOrderFunc: func(string) error { return errors.New("wrong screen") }}

	if _, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: 2, Checkout: checkout}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !c.IsEmpty() || f.acc.Value() != 15 {
		t.Error("accepted order was not applied")
	}
}

func TestSubmitBeginCheckoutRefused(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	c := cart.NewPersonal(1)
	c.AddItem(dishA, 1)
	refused := errors.New("no mode chosen")
	checkout := &MockCheckout{BeginCheckoutFunc: func() error { return refused }}

	_, err := f.agg.Submit(context.Background(), Request{Cart: c, TableNumber: 2, Checkout: checkout})
	if !errors.Is(err, refused) {
		t.Errorf("Submit() error = %v, want %v", err, refused)
	}
	if f.submitter.Calls() != 0 {
		t.Error("submitter called although checkout was refused")
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(nil)
	if cfg.SubmitTimeout != DefaultSubmitTimeout || cfg.Retries != 0 {
		t.Errorf("ConfigFrom(nil) = %+v", cfg)
	}
}
