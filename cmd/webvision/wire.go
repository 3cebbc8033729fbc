package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/tools"
	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/config"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm/gemini"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm/openai"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/profile"
	"github.com/Suryanshpandey5492/WebVision/pkg/store"
	"github.com/Suryanshpandey5492/WebVision/pkg/store/memory"
	"github.com/Suryanshpandey5492/WebVision/pkg/store/postgres"
)

// app is everything a command needs to run tasks.
type app struct {
	agent    *agent.Agent
	sessions *browser.Manager
	recorder *profile.Recorder
	store    store.Store
	logger   *logging.Logger
}

// newProvider builds the reasoning provider named by cfg.
func newProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	var (
		p   llm.Provider
		err error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		opts := []gemini.ProviderOption{gemini.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		p, err = gemini.NewProvider(ctx, cfg.APIKey, opts...)
	case config.ProviderOpenAI:
		opts := []openai.ProviderOption{openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		p, err = openai.NewProvider(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Provider, err)
	}
	return llm.NewRateLimited(p, cfg.RequestsPerSecond, 1), nil
}

// newDriver picks the browser driver named by cfg.
func newDriver(cfg config.BrowserConfig) (browser.Driver, error) {
	switch cfg.Driver {
	case config.DriverPlaywright:
		return browser.NewPlaywrightDriver(true), nil
	case config.DriverChromedp:
		return browser.NewCDPDriver(), nil
	}
	return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
}

// newStore opens PostgreSQL when a DSN is set and falls back to memory.
func newStore(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (store.Store, error) {
	if cfg.DSN == "" {
		return memory.New(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	st, err := postgres.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}

// agentOptions maps the agent and browser settings onto agent options.
func agentOptions(cfg config.Config, logger *logging.Logger) ([]agent.Option, error) {
	opts := []agent.Option{
		agent.WithStepBudget(cfg.Agent.StepBudget),
		agent.WithRecursionLimit(cfg.Agent.RecursionLimit),
		agent.WithStartURL(cfg.Agent.StartURL),
		agent.WithPageTokenLimit(cfg.Agent.PageTokenLimit),
		agent.WithInsightModel(cfg.LLM.InsightModel),
		agent.WithLogger(logger),
	}
	if len(cfg.Browser.AllowedHosts) > 0 || len(cfg.Browser.BlockedHosts) > 0 {
		guard, err := tools.NewHostGuard(cfg.Browser.AllowedHosts, cfg.Browser.BlockedHosts)
		if err != nil {
			return nil, fmt.Errorf("invalid host patterns: %w", err)
		}
		opts = append(opts, agent.WithHostGuard(guard))
	}
	return opts, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, err := logging.NewLogger("webvision")
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	driver, err := newDriver(cfg.Browser)
	if err != nil {
		return nil, err
	}
	sessions := browser.NewManager(driver, browser.Options{
		Headless: cfg.Browser.Headless,
		Browser:  cfg.Browser.Browser,
	})
	sessions.SetMaxSessions(cfg.Browser.MaxSessions)

	opts, err := agentOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{sessions: sessions, logger: logger}
	if cfg.Profile.Dir != "" {
		a.recorder = profile.NewRecorder(cfg.Profile.Dir, profile.DefaultInterval, logger)
		opts = append(opts, agent.WithEvents(a.recorder.Sink()))
	}

	st, err := newStore(ctx, cfg.Store, logger)
	if err != nil {
		_ = sessions.Shutdown()
		return nil, err
	}
	a.store = st
	a.agent = agent.New(provider, sessions, opts...)
	return a, nil
}

// Close flushes profiles and releases the browser and the store.
func (a *app) Close() error {
	var errs []error
	if a.recorder != nil {
		if err := a.recorder.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.sessions.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("browser shutdown: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
