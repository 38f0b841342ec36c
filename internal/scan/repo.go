package scan

import (
	"context"
	"database/sql"

	"campusbus/internal/checkpoint"
	"campusbus/internal/entitlement"
	"campusbus/internal/ledger"
	"campusbus/internal/store"
)

// TxCommitter applies a scan commit as one Postgres transaction: slot stamp,
// boarding counter and ticket budget move together or not at all.
type TxCommitter struct {
	db           *sql.DB
	records      *ledger.Repository
	checkpoints  *checkpoint.Repository
	entitlements *entitlement.Repository
}

// NewTxCommitter wires the transactional committer.
func NewTxCommitter(db *sql.DB, records *ledger.Repository, checkpoints *checkpoint.Repository, entitlements *entitlement.Repository) *TxCommitter {
	return &TxCommitter{db: db, records: records, checkpoints: checkpoints, entitlements: entitlements}
}

// Commit implements Committer.
func (c *TxCommitter) Commit(ctx context.Context, p Commit) (*ledger.Record, error) {
	var rec *ledger.Record
	err := store.RunInTx(ctx, c.db, func(ctx context.Context, tx store.DBTX) error {
		r, err := c.records.UpsertEmpty(ctx, tx, ledger.Record{
			EntitlementID: p.Entitlement.ID,
			OwnerID:       p.Entitlement.OwnerID,
			RouteID:       p.Entitlement.RouteID,
			ServiceDate:   p.Date,
			Shift:         p.Entitlement.Shift,
		})
		if err != nil {
			return err
		}
		if err := c.records.SetSlot(ctx, tx, r, p.Slot, p.At); err != nil {
			return err
		}
		if p.CheckIn {
			if err := c.checkpoints.IncrementBoarded(ctx, tx, p.CheckpointID, p.ReturnLeg); err != nil {
				return err
			}
		}
		if p.Entitlement.Kind == entitlement.KindTicket {
			if err := c.entitlements.MarkScanned(ctx, tx, p.Entitlement.ID); err != nil {
				return err
			}
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
