// Package observability provides a metrics extension for Ledger that records
// lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"math/big"

	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnTokenDeployed    = (*MetricsExtension)(nil)
	_ plugin.OnLedgerOpened     = (*MetricsExtension)(nil)
	_ plugin.OnTransfer         = (*MetricsExtension)(nil)
	_ plugin.OnTransferRejected = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Ledger plugin to track token activity.
type MetricsExtension struct {
	factory MetricFactory

	// Token metrics
	TokenDeployed Counter
	LedgerOpened  Counter
	ReplayedHead  Histogram

	// Transfer metrics
	TransferCompleted Counter
	TransferMinted    Counter
	TransferAmount    Histogram

	// Rejection metrics
	TransferRejected  Counter
	InsufficientFunds Counter
	InvalidParty      Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory for a Prometheus registry, or app.Metrics() in
// forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TokenDeployed: factory.Counter("tally.token.deployed"),
		LedgerOpened:  factory.Counter("tally.ledger.opened"),
		ReplayedHead:  factory.Histogram("tally.ledger.replayed_transfers"),

		TransferCompleted: factory.Counter("tally.transfer.completed"),
		TransferMinted:    factory.Counter("tally.transfer.minted"),
		TransferAmount:    factory.Histogram("tally.transfer.amount_units"),

		TransferRejected:  factory.Counter("tally.transfer.rejected"),
		InsufficientFunds: factory.Counter("tally.transfer.rejected.insufficient_funds"),
		InvalidParty:      factory.Counter("tally.transfer.rejected.invalid_party"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnTokenDeployed implements plugin.OnTokenDeployed.
func (m *MetricsExtension) OnTokenDeployed(_ context.Context, _ *token.Token) error {
	m.TokenDeployed.Inc()
	return nil
}

// OnLedgerOpened implements plugin.OnLedgerOpened.
func (m *MetricsExtension) OnLedgerOpened(_ context.Context, _ *token.Token, head uint64) error {
	m.LedgerOpened.Inc()
	m.ReplayedHead.Observe(float64(head))
	return nil
}

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, t *transfer.Transfer) error {
	if t.Kind == transfer.KindMint {
		m.TransferMinted.Inc()
		return nil
	}
	m.TransferCompleted.Inc()
	m.TransferAmount.Observe(approxFloat(t.Amount.BigInt()))
	return nil
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (m *MetricsExtension) OnTransferRejected(_ context.Context, r *transfer.Rejection) error {
	m.TransferRejected.Inc()
	if r.Code == transfer.RejectInsufficientFunds {
		m.InsufficientFunds.Inc()
	} else {
		m.InvalidParty.Inc()
	}
	return nil
}

// approxFloat converts a base-unit amount for histogram use only.
func approxFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
