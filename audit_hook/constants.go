package audithook

// Action constants for audit events.
const (
	// Token actions
	ActionTokenDeployed = "token.deployed"
	ActionLedgerOpened  = "ledger.opened"

	// Transfer actions
	ActionTransferCompleted = "transfer.completed"
	ActionTransferRejected  = "transfer.rejected"
	ActionTokenMinted       = "token.minted"
)

// Resource constants for audit events.
const (
	ResourceToken    = "token"
	ResourceTransfer = "transfer"
)

// Category constants for audit events.
const (
	CategoryLifecycle = "lifecycle"
	CategoryLedger    = "ledger"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
