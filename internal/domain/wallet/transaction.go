package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/values"
)

// Transaction is an append-only ledger entry. Every balance mutation
// writes one, capturing the balance before and after so drift is
// auditable.
type Transaction struct {
	ID            uuid.UUID              `json:"id"`
	UserID        uuid.UUID              `json:"user_id"`
	Type          TransactionType        `json:"type"`
	Amount        values.Money           `json:"amount"`
	BalanceBefore values.Money           `json:"balance_before"`
	BalanceAfter  values.Money           `json:"balance_after"`
	Description   string                 `json:"description"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewTransaction builds a ledger entry for a balance change already
// applied to the wallet.
func NewTransaction(userID uuid.UUID, txType TransactionType, amount, before, after values.Money, description string, metadata map[string]interface{}) *Transaction {
	return &Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
}

type TransactionType string

const (
	TransactionTypeEarning        TransactionType = "earning"
	TransactionTypeSpending       TransactionType = "spending"
	TransactionTypeRefund         TransactionType = "refund"
	TransactionTypeMarketPurchase TransactionType = "market_purchase"
	TransactionTypeMarketSale     TransactionType = "market_sale"
)
