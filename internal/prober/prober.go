package prober

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samvad-hq/samvad-netclient/internal/domain"
	"github.com/samvad-hq/samvad-netclient/internal/logger"
	"github.com/samvad-hq/samvad-netclient/pkg/netclient"
	"github.com/samvad-hq/samvad-netclient/pkg/probes"
	"github.com/samvad-hq/samvad-netclient/pkg/publishers"
	"golang.org/x/time/rate"
)

// Options tunes how a Service schedules probes.
type Options struct {
	// Concurrency bounds the number of probes in flight. Values below 1 mean 1.
	Concurrency int
	// RatePerSecond throttles probe starts when positive.
	RatePerSecond float64
}

// Service runs probes through a shared client and publishes outcomes that changed.
type Service struct {
	client    *netclient.Client
	runners   probes.RunnerRegistry
	publisher EventPublisher
	store     OutcomeStore
	log       logger.Logger
	sem       chan struct{}
	limiter   *rate.Limiter
}

// NewService wires a prober. A nil publisher or store disables publishing or
// change detection respectively.
func NewService(client *netclient.Client, runners probes.RunnerRegistry, pub EventPublisher, store OutcomeStore, log logger.Logger, opts Options) *Service {
	if runners == nil {
		runners = probes.DefaultRunnerRegistry()
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	s := &Service{
		client:    client,
		runners:   runners,
		publisher: pub,
		store:     store,
		log:       log,
		sem:       make(chan struct{}, opts.Concurrency),
	}
	if opts.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return s
}

// Run executes one pass over probes and returns their outcomes in input
// order. Probe failures are outcomes, not errors; the returned error joins
// scheduling, storage and publish failures.
func (s *Service) Run(ctx context.Context, list []probes.Probe) ([]domain.Outcome, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("prober service is not initialized")
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no probes configured")
	}

	outcomes := make([]domain.Outcome, len(list))
	errs := make([]error, len(list))
	ran := make([]bool, len(list))

	var wg sync.WaitGroup
	for i, p := range list {
		if err := s.acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, p probes.Probe) {
			defer wg.Done()
			defer s.release()
			outcomes[i], errs[i] = s.runProbe(ctx, p)
			ran[i] = true
		}(i, p)
	}
	wg.Wait()

	out := make([]domain.Outcome, 0, len(list))
	for i := range list {
		if ran[i] {
			out = append(out, outcomes[i])
		}
	}
	if err := errors.Join(errs...); err != nil {
		return out, err
	}
	if len(out) < len(list) {
		return out, fmt.Errorf("probe pass interrupted after %d of %d probes: %w", len(out), len(list), ctx.Err())
	}
	return out, nil
}

// acquire waits for the rate limiter and a concurrency slot.
func (s *Service) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() { <-s.sem }

func (s *Service) runProbe(ctx context.Context, p probes.Probe) (domain.Outcome, error) {
	runner, err := s.runners.RunnerFor(p)
	if err != nil {
		return domain.Outcome{ProbeID: p.ID, Kind: probes.KindInvalidProbe, Error: err.Error()},
			fmt.Errorf("resolve runner for probe %s: %w", p.ID, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()
	outcome := runner.Run(probeCtx, s.client, p)

	if outcome.Healthy() {
		s.log.DebugObj("probe completed", "probe_result", outcomeFields(outcome))
	} else {
		s.log.WarnObj("probe failed", "probe_result", outcomeFields(outcome))
	}

	return outcome, s.publishIfChanged(ctx, p, outcome)
}

// publishIfChanged publishes outcome when its signature differs from the
// stored one and records it once at least one publisher accepted it.
func (s *Service) publishIfChanged(ctx context.Context, p probes.Probe, outcome domain.Outcome) error {
	if s.publisher == nil {
		return nil
	}

	sig := outcome.Signature()
	if s.store != nil {
		changed, err := s.store.Changed(p.ID, sig)
		if err != nil {
			s.log.WarnObj("outcome store lookup failed", "storage_error", map[string]any{
				"probe_id": p.ID,
				"error":    err.Error(),
			})
			changed = true
		}
		if !changed {
			return nil
		}
	}

	delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(p.ID, p.Name, outcome))
	if err != nil {
		s.log.ErrorObj("outcome publish failed", "publish_error", map[string]any{
			"probe_id":  p.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
	if delivered == 0 {
		if err != nil {
			return fmt.Errorf("publish probe %s: %w", p.ID, err)
		}
		return nil
	}

	if s.store != nil {
		if recErr := s.store.Record(p.ID, sig); recErr != nil {
			err = errors.Join(err, fmt.Errorf("record outcome for probe %s: %w", p.ID, recErr))
		}
	}
	if err != nil {
		return fmt.Errorf("publish probe %s: %w", p.ID, err)
	}
	return nil
}

func outcomeFields(o domain.Outcome) map[string]any {
	fields := map[string]any{
		"probe_id":    o.ProbeID,
		"method":      o.Method,
		"url":         o.URL,
		"kind":        o.Kind,
		"status_code": o.StatusCode,
		"elapsed_ms":  o.ElapsedMs,
	}
	if o.Error != "" {
		fields["error"] = o.Error
	}
	return fields
}
