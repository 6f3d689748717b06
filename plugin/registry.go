package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onTokenDeployed    []OnTokenDeployed
	onLedgerOpened     []OnLedgerOpened
	onTransfer         []OnTransfer
	onTransferRejected []OnTransferRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTokenDeployed); ok {
		r.onTokenDeployed = append(r.onTokenDeployed, v)
	}
	if v, ok := p.(OnLedgerOpened); ok {
		r.onLedgerOpened = append(r.onLedgerOpened, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnTransferRejected); ok {
		r.onTransferRejected = append(r.onTransferRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnTokenDeployed](), "OnTokenDeployed"},
	{reflect.TypeFor[OnLedgerOpened](), "OnLedgerOpened"},
	{reflect.TypeFor[OnTransfer](), "OnTransfer"},
	{reflect.TypeFor[OnTransferRejected](), "OnTransferRejected"},
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var out []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitTokenDeployed calls OnTokenDeployed for all plugins that implement it.
func (r *Registry) EmitTokenDeployed(ctx context.Context, t *token.Token) {
	r.mu.RLock()
	plugins := r.onTokenDeployed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnTokenDeployed", func() error {
			return p.OnTokenDeployed(ctx, t)
		})
	}
}

// EmitLedgerOpened calls OnLedgerOpened for all plugins that implement it.
func (r *Registry) EmitLedgerOpened(ctx context.Context, t *token.Token, head uint64) {
	r.mu.RLock()
	plugins := r.onLedgerOpened
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnLedgerOpened", func() error {
			return p.OnLedgerOpened(ctx, t, head)
		})
	}
}

// EmitTransfer calls OnTransfer for all plugins that implement it.
func (r *Registry) EmitTransfer(ctx context.Context, t *transfer.Transfer) {
	r.mu.RLock()
	plugins := r.onTransfer
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnTransfer", func() error {
			return p.OnTransfer(ctx, t)
		})
	}
}

// EmitTransferRejected calls OnTransferRejected for all plugins that implement it.
func (r *Registry) EmitTransferRejected(ctx context.Context, rej *transfer.Rejection) {
	r.mu.RLock()
	plugins := r.onTransferRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnTransferRejected", func() error {
			return p.OnTransferRejected(ctx, rej)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, name, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, name, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", name,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never stall the transfer path.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
