package models

// WorkStatus applies to both orders and sub-orders. Transitions are free-form:
// any status is reachable from any other by explicit user action, and Completed
// does not forbid further edits.
type WorkStatus string

const (
	WorkStatusActive     WorkStatus = "Active"
	WorkStatusInProgress WorkStatus = "InProgress"
	WorkStatusCompleted  WorkStatus = "Completed"
	WorkStatusSuspended  WorkStatus = "Suspended"
)

func (s WorkStatus) IsValid() bool {
	switch s {
	case WorkStatusActive, WorkStatusInProgress, WorkStatusCompleted, WorkStatusSuspended:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type ContactType string

const (
	ContactTypePhone ContactType = "phone"
	ContactTypeEmail ContactType = "email"
)

func (t ContactType) IsValid() bool {
	return t == ContactTypePhone || t == ContactTypeEmail
}

type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Inventory movement document types.
const (
	MovementDocTypeSubOrder = "SO"  // reservation/return driven by a sub-order save or delete
	MovementDocTypeManual   = "ADJ" // manual restock/correction via adjustInventory
	MovementDocTypeAudit    = "AUD" // repair applied by cmd/inventory-audit
)
