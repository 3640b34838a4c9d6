package rush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
)

// Source produces the current rush status.
type Source interface {
	RushStatus(ctx context.Context) (Status, error)
}

// PollError reports a failed poll tick. The monitor keeps the last status.
type PollError struct {
	Err error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("rush status poll failed: %v", e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// LocalSource derives the status from the in-process accumulator.
type LocalSource struct {
	acc        *Accumulator
	thresholds Thresholds
	now        func() time.Time
}

func NewLocalSource(acc *Accumulator, t Thresholds) *LocalSource {
	return &LocalSource{acc: acc, thresholds: t, now: time.Now}
}

func (s *LocalSource) RushStatus(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	return Derive(s.acc.Value(), s.thresholds, s.now()), nil
}

var errNoKitchenClient = errors.New("kitchen client not configured")

// RemoteSource reads the status computed by the kitchen service.
type RemoteSource struct {
	client *apt.ServiceClient
	now    func() time.Time
}

func NewRemoteSource(client *apt.ServiceClient) *RemoteSource {
	return &RemoteSource{client: client, now: time.Now}
}

func (s *RemoteSource) RushStatus(ctx context.Context) (Status, error) {
	if s == nil || s.client == nil {
		return Status{}, errNoKitchenClient
	}

	resp, err := s.client.Request(ctx, "GET", "/rush-status", nil)
	if err != nil {
		return Status{}, fmt.Errorf("cannot fetch rush status: %w", err)
	}
	if resp == nil {
		return Status{}, errors.New("empty rush status response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return Status{}, fmt.Errorf("cannot decode rush status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return Status{}, fmt.Errorf("cannot decode rush status: %w", err)
	}
	st.CheckedAt = s.now()
	return st, nil
}
