package entities

import "time"

// LedgerReason explains why a balance changed
type LedgerReason string

const (
	ReasonStakeEscrow LedgerReason = "stake-escrow"
	ReasonStakeRefund LedgerReason = "stake-refund"
	ReasonPrizePayout LedgerReason = "prize-payout"
	ReasonEntryFee    LedgerReason = "entry-fee"
	ReasonEntryRefund LedgerReason = "entry-refund"
	ReasonBonus       LedgerReason = "bonus"
	ReasonReversal    LedgerReason = "reversal"
	ReasonGrant       LedgerReason = "grant"
)

// LedgerEntry is an append-only record of a single balance mutation
type LedgerEntry struct {
	ID           string       // Unique identifier
	UserID       string       // Account the mutation applied to
	Amount       int64        // Signed: negative for debits
	Reason       LedgerReason // Why the balance moved
	ReferenceID  string       // Session or tournament ID, if any
	BalanceAfter int64        // Balance after this entry was applied
	Timestamp    time.Time    // When the mutation happened
}
