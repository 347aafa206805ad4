package coordinator

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/campusgo/campusgo-backend/internal/models"
	"github.com/campusgo/campusgo-backend/internal/store"
)

// AddFunds credits the rider's wallet and records the top-up as an
// immutable transaction.
func (c *Coordinator) AddFunds(ctx context.Context, riderID string, amount float64) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, ErrBadRequest
	}
	txnID := c.store.Push("transactions")
	txn := models.Transaction{
		ID:          txnID,
		Type:        models.TransactionCredit,
		Amount:      amount,
		Date:        c.now(),
		Description: "Added funds to wallet",
	}
	err := c.store.MultiPathUpdate(ctx, map[string]any{
		transactionPath(txnID):                              txn,
		riderPath(riderID) + "/walletBalance":               store.Increment(amount),
		riderPath(riderID) + "/transactionHistory/" + txnID: true,
	})
	if err != nil {
		return models.Transaction{}, err
	}
	c.recordTransaction(txn, riderID, "")
	return txn, nil
}

// Transactions returns the rider's wallet history, newest first.
func (c *Coordinator) Transactions(ctx context.Context, riderID string) ([]models.Transaction, error) {
	rider, err := c.GetRider(ctx, riderID)
	if err != nil {
		return nil, err
	}
	txns := make([]models.Transaction, 0, len(rider.TransactionHistory))
	for id := range rider.TransactionHistory {
		var txn models.Transaction
		if err := c.store.Read(ctx, transactionPath(id), &txn); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Printf("Transaction %s referenced by rider %s is missing", id, riderID)
				continue
			}
			return nil, err
		}
		txns = append(txns, txn)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.After(txns[j].Date) })
	return txns, nil
}
