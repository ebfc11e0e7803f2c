package models

import "time"

type TriggerType string

const (
	TransactionAdded    TriggerType = "TRANSACTION_ADDED"
	TransactionModified TriggerType = "TRANSACTION_MODIFIED"
	TransactionDeleted  TriggerType = "TRANSACTION_DELETED"
	ManualRefresh       TriggerType = "MANUAL_REFRESH"
)

// TriggerEvent is sent by the ledger-mutation side to request snapshot
// recomputation. Date is used by ADDED and DELETED, OldDate and NewDate by
// MODIFIED. AssetID is optional; when set the asset's holding is
// recalculated as well.
type TriggerEvent struct {
	Type        TriggerType `json:"type"`
	PortfolioID string      `json:"portfolioId"`
	AssetID     string      `json:"assetId,omitempty"`
	Date        time.Time   `json:"date,omitempty"`
	OldDate     time.Time   `json:"oldDate,omitempty"`
	NewDate     time.Time   `json:"newDate,omitempty"`
}
