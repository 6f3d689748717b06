// Package audithook bridges ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter, or use
// LogRecorder to write the trail through slog.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnTokenDeployed    = (*Extension)(nil)
	_ plugin.OnLedgerOpened     = (*Extension)(nil)
	_ plugin.OnTransfer         = (*Extension)(nil)
	_ plugin.OnTransferRejected = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a backend-neutral audit record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder returns a Recorder that writes each event as one structured
// log line.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		if evt.Severity != SeverityInfo {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "audit",
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"reason", evt.Reason,
			"metadata", evt.Metadata,
		)
		return nil
	})
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnTokenDeployed implements plugin.OnTokenDeployed.
func (e *Extension) OnTokenDeployed(ctx context.Context, t *token.Token) error {
	return e.record(ctx, ActionTokenDeployed, SeverityInfo, OutcomeSuccess,
		ResourceToken, t.ID.String(), CategoryLifecycle,
		"name", t.Name,
		"symbol", t.Symbol,
		"decimals", t.Decimals,
		"total_supply", t.TotalSupply.String(),
		"owner", t.Owner.String(),
	)
}

// OnLedgerOpened implements plugin.OnLedgerOpened.
func (e *Extension) OnLedgerOpened(ctx context.Context, t *token.Token, head uint64) error {
	return e.record(ctx, ActionLedgerOpened, SeverityInfo, OutcomeSuccess,
		ResourceToken, t.ID.String(), CategoryLifecycle,
		"symbol", t.Symbol,
		"head", head,
	)
}

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, t *transfer.Transfer) error {
	action := ActionTransferCompleted
	if t.Kind == transfer.KindMint {
		action = ActionTokenMinted
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, t.ID.String(), CategoryLedger,
		"token_id", t.TokenID.String(),
		"sequence", t.Sequence,
		"from", t.From.String(),
		"to", t.To.String(),
		"amount", t.Amount.String(),
	)
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (e *Extension) OnTransferRejected(ctx context.Context, r *transfer.Rejection) error {
	return e.record(ctx, ActionTransferRejected, SeverityWarning, OutcomeFailure,
		ResourceTransfer, "", CategoryLedger,
		"token_id", r.TokenID.String(),
		"from", r.From.String(),
		"to", r.To.String(),
		"amount", r.Amount.String(),
		"reason", r.Reason,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	reason, _ := meta["reason"].(string)

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
