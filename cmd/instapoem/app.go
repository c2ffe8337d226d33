package main

import (
	"context"
	"fmt"

	"instapoem/internal/config"
	"instapoem/internal/generation"
	"instapoem/internal/history"
	"instapoem/internal/studio"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app bundles the wired components one command needs.
type app struct {
	store    *history.Store
	studio   *studio.Studio
	registry *prometheus.Registry
	backend  history.Backend
	close    func() error
}

// newWrapper builds the generation wrapper. Tests replace it.
var newWrapper = func(ctx context.Context, c *config.Config, reg prometheus.Registerer) (studio.Wrapper, error) {
	if err := c.ValidateLLM(); err != nil {
		return nil, err
	}
	model, err := generation.NewGeminiModel(ctx, generation.GeminiConfig{
		APIKey:          c.LLM.APIKey,
		Model:           c.LLM.Model,
		Temperature:     c.LLM.Temperature,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
		Timeout:         c.GetLLMTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return generation.NewGenerator(model, generation.WithRegisterer(reg)), nil
}

// openApp loads history from the configured backend. The model client is
// only created when withModel is set, so history commands work offline.
func openApp(ctx context.Context, c *config.Config, withModel bool) (*app, error) {
	b, closeFn, err := history.OpenBackend(history.BackendConfig{
		Kind:     c.History.Backend,
		DataDir:  c.History.DataDir,
		MaxBytes: c.History.MaxBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("open history backend: %w", err)
	}

	store := history.New(b, history.WithKeepImages(c.History.KeepImages))
	store.Load(ctx)
	logger.Debug("History loaded",
		zap.String("backend", c.History.Backend),
		zap.Int("records", store.Len()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var wrapper studio.Wrapper
	if withModel {
		wrapper, err = newWrapper(ctx, c, reg)
		if err != nil {
			_ = closeFn()
			return nil, err
		}
	}

	st := studio.New(wrapper, store,
		studio.WithScheduleDelay(c.GetScheduleDelay()),
		studio.WithQuoteConcurrency(c.Studio.QuoteConcurrency),
	)
	return &app{
		store:    store,
		studio:   st,
		registry: reg,
		backend:  b,
		close:    closeFn,
	}, nil
}

// withApp opens the app for one command and closes it afterwards.
func withApp(ctx context.Context, withModel bool, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := commandContext(ctx)
	defer cancel()

	a, err := openApp(ctx, cfg, withModel)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Warn("Failed to close history backend", zap.Error(err))
		}
	}()
	return fn(ctx, a)
}
