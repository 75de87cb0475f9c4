// Package core composes every subsystem behind the typed operations a
// frontend calls, grounded on cmd/semspec/app.go's App: a single struct
// wiring Store, LLM client, Orchestrator, FixEngine, Audit and
// RateLimiter together, constructed once at startup and handed to every
// caller instead of each caller wiring its own dependencies.
package core

import (
	"context"
	"fmt"
	"os"

	"github.com/c360studio/soc2scan/audit"
	"github.com/c360studio/soc2scan/fixengine"
	"github.com/c360studio/soc2scan/llmclient"
	"github.com/c360studio/soc2scan/metrics"
	"github.com/c360studio/soc2scan/orchestrator"
	"github.com/c360studio/soc2scan/ratelimit"
	"github.com/c360studio/soc2scan/store"
)

// Config configures a Core instance.
type Config struct {
	// DBPath is the embedded database file. It is required: New fails
	// when it is empty.
	DBPath string
	// LLMAPIKeyEnv names the environment variable carrying the LLM API
	// key. Analysis and fix generation fail with a clear error when it
	// is unset, per spec.md §6's external LLM protocol.
	LLMAPIKeyEnv string
	LLMBaseURL   string
	LLMModel     string
	RateLimit    ratelimit.Config
	Sink         orchestrator.EventSink
}

// DefaultLLMAPIKeyEnv is the environment variable consulted when Config
// leaves LLMAPIKeyEnv empty.
const DefaultLLMAPIKeyEnv = "SOC2SCAN_LLM_API_KEY"

// Core wires every subsystem into the operations in the next several
// files. It owns the database handle; callers must call Close.
type Core struct {
	store        *store.Store
	dbPath       string
	llm          *llmclient.Client
	audit        *audit.Recorder
	limiter      *ratelimit.Limiter
	fixes        *fixengine.Engine
	orchestrator *orchestrator.Orchestrator
	channels     *orchestrator.ResponseChannels
	metrics      *metrics.Registry
}

// New opens the store at cfg.DBPath and wires the rest of the subsystems
// around it. The LLM API key is read from cfg.LLMAPIKeyEnv (or
// DefaultLLMAPIKeyEnv); its absence is not fatal here since regex-only
// scans never touch the LLM client, but every operation that does will
// surface soc2err.LlmError{Auth}.
func New(cfg Config) (*Core, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("core: DBPath is required")
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("core: open store: %w", err)
	}

	keyEnv := cfg.LLMAPIKeyEnv
	if keyEnv == "" {
		keyEnv = DefaultLLMAPIKeyEnv
	}
	apiKey := os.Getenv(keyEnv)

	var llmOpts []llmclient.ClientOption
	if cfg.LLMBaseURL != "" {
		llmOpts = append(llmOpts, llmclient.WithBaseURL(cfg.LLMBaseURL))
	}
	if cfg.LLMModel != "" {
		llmOpts = append(llmOpts, llmclient.WithModel(cfg.LLMModel))
	}
	llm := llmclient.NewClient(apiKey, llmOpts...)

	rec := audit.New(st)
	limiterCfg := cfg.RateLimit
	if limiterCfg.RefillPerSecond == 0 && limiterCfg.Burst == 0 {
		limiterCfg = ratelimit.DefaultConfig()
	}
	limiter := ratelimit.New(limiterCfg)
	fixes := fixengine.New(st, llm, limiter, rec)
	channels := orchestrator.NewResponseChannels()
	orch := orchestrator.New(st, llm, rec, channels, cfg.Sink)
	reg := metrics.New()
	orch.SetMetrics(reg)

	if _, err := st.FailOrphanedScans(context.Background()); err != nil {
		st.Close()
		return nil, fmt.Errorf("core: fail orphaned scans: %w", err)
	}

	return &Core{
		store:        st,
		dbPath:       cfg.DBPath,
		llm:          llm,
		audit:        rec,
		limiter:      limiter,
		fixes:        fixes,
		orchestrator: orch,
		channels:     channels,
		metrics:      reg,
	}, nil
}

// Metrics returns the scan counters collected since this Core was
// constructed, for "soc2scan metrics" to render.
func (c *Core) Metrics() *metrics.Registry {
	return c.metrics
}

// Close releases the underlying database handle.
func (c *Core) Close() error {
	return c.store.Close()
}
