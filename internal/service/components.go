// File: internal/service/components.go
package service

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/capture"
	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/engine"
	"github.com/xkilldash9x/macpilot-cli/internal/input"
	"github.com/xkilldash9x/macpilot-cli/internal/observability"
	"github.com/xkilldash9x/macpilot-cli/internal/screen"
	"github.com/xkilldash9x/macpilot-cli/internal/scripting"
)

// Components holds the initialized automation services. All bounded shared
// state (caches, the connection pool, the benchmark table) is owned here and
// handed to the pieces that need it; nothing hides behind package globals.
type Components struct {
	Config    config.Interface
	Logger    *zap.Logger
	Bench     *observability.BenchmarkTable
	Executor  *scripting.Executor
	Resolver  *screen.Resolver
	Validator *screen.Validator
	Driver    *input.Driver
	Clipboard input.Clipboard
	Filler    *input.Filler
	Encoder   *capture.Encoder
	Capturer  *capture.Capturer
	Processor *engine.Processor
}

// NewComponents is the composition root: it builds every component once, in
// dependency order, and wires them together.
func NewComponents(cfg config.Interface, logger *zap.Logger) *Components {
	if logger == nil {
		logger = observability.GetLogger()
	}

	bench := observability.NewBenchmarkTable(cfg.Caches().BenchmarkHistory, logger)
	executor := scripting.NewExecutor(cfg, logger)
	resolver := screen.NewResolver(cfg, logger, executor)
	validator := screen.NewValidator(logger, executor)
	driver := input.NewDriver(cfg, logger, executor)
	clipboard := input.NewPasteboard()
	filler := input.NewFiller(cfg, logger, resolver, validator, driver, executor, clipboard)
	encoder := capture.NewEncoder(cfg, logger)
	capturer := capture.NewCapturer(cfg, logger, encoder)
	processor := engine.NewProcessor(cfg, logger, bench)

	return &Components{
		Config:    cfg,
		Logger:    logger,
		Bench:     bench,
		Executor:  executor,
		Resolver:  resolver,
		Validator: validator,
		Driver:    driver,
		Clipboard: clipboard,
		Filler:    filler,
		Encoder:   encoder,
		Capturer:  capturer,
		Processor: processor,
	}
}

// Shutdown releases component state. Caches and tables are safe to clear at
// any time; dropping them only costs recomputation.
func (c *Components) Shutdown() {
	c.Executor.ClearTemplates()
	c.Executor.Pool().Clear()
	c.Resolver.Cache().Clear()
	c.Encoder.ClearCache()
	c.Logger.Debug("components shut down")
}
