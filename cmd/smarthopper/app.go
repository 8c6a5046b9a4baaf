package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/architects-toolkit/smarthopper-ai/config"
	"github.com/architects-toolkit/smarthopper-ai/internal/httpx"
	"github.com/architects-toolkit/smarthopper-ai/models"
	"github.com/architects-toolkit/smarthopper-ai/orchestrator"
	"github.com/architects-toolkit/smarthopper-ai/providers"
	"github.com/architects-toolkit/smarthopper-ai/registry"
	"github.com/architects-toolkit/smarthopper-ai/storage"
	"github.com/architects-toolkit/smarthopper-ai/tools"
)

// App wires the configuration, trust store, provider registry, tool
// registry, and orchestrator together for the CLI commands.
type App struct {
	Config       *config.Config
	Store        *storage.Store
	Models       *models.Manager
	Registry     *registry.Manager
	Tools        *tools.Registry
	Orchestrator *orchestrator.Orchestrator

	logger *log.Logger
}

// NewApp builds the full runtime from the loaded configuration. Providers
// named in the configuration are loaded through the trust-gated registry;
// the rest stay unloaded.
func NewApp(ctx context.Context, cfg *config.Config, verbose bool) (*App, error) {
	logger := log.New(os.Stderr, "smarthopper ", log.LstdFlags)
	if !verbose {
		logger = nil
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	mgr := models.NewManager()

	reg := registry.NewManager(registry.Config{
		Trust:       store,
		Prompt:      promptTrust,
		ManifestURL: cfg.ManifestURL,
		Logger:      logger,
	})

	app := &App{
		Config:   cfg,
		Store:    store,
		Models:   mgr,
		Registry: reg,
		logger:   logger,
	}

	for _, name := range providers.ListFactories() {
		if !cfg.HasProvider(name) {
			continue
		}
		// A warm capability cache lets Initialize skip the model-list call.
		if n, err := store.LoadCapabilities(name, mgr); err == nil && n > 0 {
			app.logf("restored %d cached model entries for %s", n, name)
		}
		factory, _ := providers.GetFactory(name)
		desc := registry.Descriptor{
			Name:    name,
			Factory: factory,
			Deps: providers.Deps{
				Models:   mgr,
				HTTP:     httpx.Config{Logger: logger},
				Settings: cfg.Settings(name),
				Logger:   logger,
			},
		}
		if err := reg.Load(ctx, desc); err != nil {
			app.logf("provider %s not loaded: %v", name, err)
		}
	}
	if cfg.DefaultProvider != "" {
		reg.SetDefault(cfg.DefaultProvider)
	}

	toolReg := tools.NewRegistry()
	if err := tools.RegisterBuiltins(toolReg, reg.ResolvableNames); err != nil {
		store.Close()
		return nil, fmt.Errorf("registering builtin tools: %w", err)
	}
	app.Tools = toolReg

	app.Orchestrator = orchestrator.New(orchestrator.Config{
		Providers:     reg,
		Tools:         toolReg,
		MaxIterations: cfg.MaxToolLoops,
		Logger:        logger,
	})
	return app, nil
}

// Close releases the app's resources, snapshotting discovered model
// capabilities first so the next run starts warm.
func (a *App) Close() error {
	for _, name := range a.Registry.Names() {
		if err := a.Store.SnapshotCapabilities(name, a.Models); err != nil {
			a.logf("capability snapshot for %s failed: %v", name, err)
		}
	}
	return a.Store.Close()
}

func (a *App) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

// promptTrust asks on stdin whether to trust a newly encountered provider.
func promptTrust(name string) bool {
	fmt.Fprintf(os.Stderr, "Provider %q has not been seen before. Trust it? [y/N] ", name)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
