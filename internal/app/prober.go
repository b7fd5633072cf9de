package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-netclient/internal/config"
	"github.com/samvad-hq/samvad-netclient/internal/domain"
	"github.com/samvad-hq/samvad-netclient/internal/logger"
	"github.com/samvad-hq/samvad-netclient/internal/prober"
	"github.com/samvad-hq/samvad-netclient/internal/storage"
	"github.com/samvad-hq/samvad-netclient/pkg/httpclient"
	"github.com/samvad-hq/samvad-netclient/pkg/netclient"
	"github.com/samvad-hq/samvad-netclient/pkg/probes"
	"github.com/samvad-hq/samvad-netclient/pkg/publishers"
)

// Prober represents the endpoint prober runtime. It manages the probe loop,
// coordinating between the probe registry, the prober service, and publishers.
// It also handles storage initialization and cleanup.
type Prober struct {
	cfg           *config.Config
	probeReg      *probes.Registry
	fanout        *publishers.Fanout
	service       *prober.Service
	probeInterval time.Duration
	log           logger.Logger
	store         storage.Store
	closeOnce     sync.Once
}

// NewProber builds a prober runtime from config files.
func NewProber(ctx context.Context, cfg *config.Config, log logger.Logger) (*Prober, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	probeReg, err := probes.LoadRegistry(cfg.ProbesFile)
	if err != nil {
		return nil, fmt.Errorf("load probes registry: %w", err)
	}
	probeList := probeReg.All()
	probeIDs := make([]string, 0, len(probeList))
	for _, p := range probeList {
		probeIDs = append(probeIDs, p.ID)
	}
	log.InfoObj("probes registry loaded", "probes_meta", map[string]any{
		"count": len(probeIDs),
		"ids":   probeIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		OutcomeTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"outcome_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	service := prober.NewService(newClient(cfg, log), probes.DefaultRunnerRegistry(), fanout, store, log, prober.Options{
		Concurrency:   cfg.ProbeConcurrency,
		RatePerSecond: cfg.ProbeRatePerSecond,
	})

	return &Prober{
		cfg:           cfg,
		probeReg:      probeReg,
		fanout:        fanout,
		service:       service,
		probeInterval: cfg.ProbeInterval,
		log:           log,
		store:         store,
	}, nil
}

// newClient builds the shared netclient. Per-response debug lines are only
// emitted when debug_response_logging is enabled.
func newClient(cfg *config.Config, log logger.Logger) *netclient.Client {
	opts := []netclient.Option{}
	if cfg.UserAgent != "" {
		opts = append(opts, netclient.WithDefaultHeaders(map[string]string{"User-Agent": cfg.UserAgent}))
	}
	if cfg.DebugResponseLogging {
		opts = append(opts, netclient.WithLogger(log))
	}
	return netclient.New(httpclient.NewRestyTransport(cfg.HTTPTimeout), opts...)
}

// Run starts the probe loop until the context is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	if p == nil || p.service == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.close()
	list := p.probeReg.All()

	p.log.InfoObj("prober loop starting", "prober_state", map[string]any{
		"probes_count":     len(list),
		"publishers_count": p.fanout.Size(),
		"probe_interval":   p.probeInterval.String(),
	})

	if _, err := p.RunOnce(ctx); err != nil {
		p.log.ErrorObj("initial probe pass failed", "error", err)
	}

	ticker := time.NewTicker(p.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("prober loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.log.ErrorObj("scheduled probe pass failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single pass across all probes.
func (p *Prober) RunOnce(ctx context.Context) ([]domain.Outcome, error) {
	list := p.probeReg.All()
	start := time.Now()
	p.log.InfoObj("probe pass started", "probe_pass_meta", map[string]any{
		"probes_count": len(list),
		"started_at":   start.UTC(),
	})
	outcomes, err := p.service.Run(ctx, list)
	if err != nil {
		return outcomes, err
	}

	healthy := 0
	for _, o := range outcomes {
		if o.Healthy() {
			healthy++
		}
	}
	p.log.InfoObj("probe pass completed", "probe_pass_meta", map[string]any{
		"probes_count":  len(list),
		"healthy_count": healthy,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return outcomes, nil
}

// Close releases publishers and storage. Run calls it on exit.
func (p *Prober) Close() { p.close() }

// close safely closes publishers and the storage backend once, logging any errors encountered.
func (p *Prober) close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(p.closeResources)
}

func (p *Prober) closeResources() {
	if p.fanout != nil {
		if err := p.fanout.Close(); err != nil {
			p.log.ErrorObj("publisher close failed", "error", err)
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
