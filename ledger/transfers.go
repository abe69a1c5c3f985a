package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"bankinghub/models"
	"bankinghub/store"
)

// scheduleSkew tolerates clients that send "now" as the scheduled date.
const scheduleSkew = time.Minute

// TransferInput describes a transfer request. EXTERNAL transfers name the
// beneficiary in the External fields instead of a destination account.
type TransferInput struct {
	FromAccountID   int64
	ToAccountID     *int64
	ToAccountNumber string
	Amount          decimal.Decimal
	Description     string
	Type            models.TransferType
	ScheduledDate   *time.Time

	ExternalBankName          string
	ExternalAccountNumber     string
	ExternalRoutingNumber     string
	ExternalAccountHolderName string
}

func (in TransferInput) validate(now time.Time) error {
	if !in.Type.Valid() {
		return models.Invalid("unknown transfer type %q", in.Type)
	}
	if !validAmount(in.Amount) {
		return models.Invalid("amount must be positive with at most 2 decimal places")
	}
	if err := checkLength("description", in.Description, 1, 255); err != nil {
		return err
	}
	if in.ScheduledDate != nil && in.ScheduledDate.Before(now.Add(-scheduleSkew)) {
		return models.Invalid("scheduled date cannot be in the past")
	}
	hasTarget := in.ToAccountID != nil || in.ToAccountNumber != ""
	if in.Type == models.External {
		if in.ExternalBankName == "" || in.ExternalAccountNumber == "" || in.ExternalRoutingNumber == "" {
			return models.Invalid("external transfers require bank name, account number and routing number")
		}
		if hasTarget {
			return models.Invalid("external transfers cannot target an internal account")
		}
		return nil
	}
	if !hasTarget {
		return models.Invalid("destination account is required")
	}
	return nil
}

func (s *Service) fee(t models.TransferType) decimal.Decimal {
	if t == models.External {
		return s.cfg.ExternalFee
	}
	return decimal.Zero
}

// CreateTransfer records a pending transfer. Funds move later, when
// ProcessTransfer runs for it.
func (s *Service) CreateTransfer(ctx context.Context, userID int64, in TransferInput) (*models.Transfer, error) {
	if in.Type == "" {
		in.Type = models.Internal
	}
	now := s.now()
	if err := in.validate(now); err != nil {
		return nil, err
	}
	scheduled := now
	if in.ScheduledDate != nil {
		scheduled = in.ScheduledDate.UTC()
	}

	t := &models.Transfer{
		FromAccountID:             in.FromAccountID,
		Amount:                    in.Amount,
		Fee:                       s.fee(in.Type),
		Description:               in.Description,
		Status:                    models.TransferPending,
		Type:                      in.Type,
		ReferenceNumber:           reference("TRF"),
		ScheduledDate:             scheduled,
		ExternalBankName:          in.ExternalBankName,
		ExternalAccountNumber:     in.ExternalAccountNumber,
		ExternalRoutingNumber:     in.ExternalRoutingNumber,
		ExternalAccountHolderName: in.ExternalAccountHolderName,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	err := s.store.InTx(ctx, func(r store.Repository) error {
		from, err := owned(ctx, r, userID, in.FromAccountID)
		if err != nil {
			return err
		}
		if !from.Active {
			return models.Violation("account %s is inactive", from.AccountNumber)
		}
		if in.Type != models.External {
			to, err := s.destination(ctx, r, in)
			if err != nil {
				return err
			}
			if to.ID == from.ID {
				return models.Invalid("source and destination accounts must differ")
			}
			if in.Type == models.Internal && to.UserID != userID {
				return models.Violation("internal transfers must target one of your own accounts")
			}
			if !to.Active {
				return models.Violation("destination account %s is inactive", to.AccountNumber)
			}
			t.ToAccountID = &to.ID
		}
		return r.CreateTransfer(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("transfer %s created: %s %s scheduled %s", t.ReferenceNumber, t.Type, t.Amount.StringFixed(2),
		t.ScheduledDate.Format(time.RFC3339))
	return t, nil
}

func (s *Service) destination(ctx context.Context, r store.Repository, in TransferInput) (*models.Account, error) {
	if in.ToAccountID != nil {
		return r.GetAccount(ctx, *in.ToAccountID)
	}
	return r.GetAccountByNumber(ctx, in.ToAccountNumber)
}

// ProcessTransfer settles a due pending transfer. Both legs commit together
// or not at all. A transfer that cannot settle for business reasons ends
// FAILED with a reason and no balance change; an infrastructure error rolls
// everything back and leaves the transfer PENDING for a retry. Transfers that
// are not pending or not yet due are returned unchanged.
func (s *Service) ProcessTransfer(ctx context.Context, transferID int64) (*models.Transfer, error) {
	var (
		t        *models.Transfer
		postings []Posting
	)
	err := s.store.InTx(ctx, func(r store.Repository) error {
		postings = nil
		var err error
		if t, err = r.LockTransfer(ctx, transferID); err != nil {
			return err
		}
		now := s.now()
		if t.Status != models.TransferPending || t.ScheduledDate.After(now) {
			return nil
		}

		t.Status = models.TransferProcessing
		t.UpdatedAt = now
		if err := r.UpdateTransfer(ctx, t); err != nil {
			return err
		}

		ids := []int64{t.FromAccountID}
		if t.ToAccountID != nil {
			ids = append(ids, *t.ToAccountID)
		}
		accounts, err := r.LockAccounts(ctx, ids...)
		if err != nil {
			return err
		}

		if reason := settlementBlocker(t, accounts); reason != "" {
			t.Status = models.TransferFailed
			t.FailureReason = reason
			t.ProcessedDate = &now
			return r.UpdateTransfer(ctx, t)
		}

		from := accounts[t.FromAccountID]
		var legs []leg
		if t.Fee.IsPositive() {
			legs = append(legs, leg{from, entry{typ: models.Fee, amount: t.Fee, description: "Transfer fee " + t.ReferenceNumber}})
		}
		legs = append(legs, leg{from, entry{typ: models.TransferOut, amount: t.Amount, description: t.Description}})
		if t.ToAccountID != nil {
			to := accounts[*t.ToAccountID]
			legs = append(legs, leg{to, entry{typ: models.TransferIn, amount: t.Amount, description: t.Description}})
		}

		for _, l := range legs {
			l.e.reference = t.ReferenceNumber
			l.e.date = now
			posted, err := s.apply(ctx, r, l.acct, l.e)
			if err != nil {
				return err
			}
			postings = append(postings, Posting{UserID: l.acct.UserID, Transaction: *posted})
		}

		t.Status = models.TransferCompleted
		t.ProcessedDate = &now
		return r.UpdateTransfer(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("process transfer %d: %w", transferID, err)
	}
	switch t.Status {
	case models.TransferCompleted:
		log.Printf("transfer %s completed", t.ReferenceNumber)
	case models.TransferFailed:
		log.Printf("transfer %s failed: %s", t.ReferenceNumber, t.FailureReason)
	}
	s.Notify(ctx, postings)
	return t, nil
}

// leg is one side of a settlement. The fee leg is applied before the
// outgoing leg so the TRANSFER_OUT snapshot equals the final source balance.
type leg struct {
	acct *models.Account
	e    entry
}

// settlementBlocker explains why a transfer cannot settle, or returns "".
func settlementBlocker(t *models.Transfer, accounts map[int64]*models.Account) string {
	from := accounts[t.FromAccountID]
	if !from.Active {
		return "source account is inactive"
	}
	if t.ToAccountID != nil && !accounts[*t.ToAccountID].Active {
		return "destination account is inactive"
	}
	required := t.Amount.Add(t.Fee)
	if from.Available().LessThan(required) {
		return fmt.Sprintf("insufficient funds: available %s, required %s",
			from.Available().StringFixed(2), required.StringFixed(2))
	}
	return ""
}

// CancelTransfer cancels a pending transfer whose scheduled time has not come.
func (s *Service) CancelTransfer(ctx context.Context, userID, transferID int64) (*models.Transfer, error) {
	var t *models.Transfer
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		if t, err = r.LockTransfer(ctx, transferID); err != nil {
			return err
		}
		if _, err := owned(ctx, r, userID, t.FromAccountID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.NotFound("transfer %d", transferID)
			}
			return err
		}
		now := s.now()
		if !CanCancel(*t, now) {
			return models.Violation("transfer %s can no longer be cancelled", t.ReferenceNumber)
		}
		t.Status = models.TransferCancelled
		t.UpdatedAt = now
		return r.UpdateTransfer(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("transfer %s cancelled", t.ReferenceNumber)
	return t, nil
}

// ListTransfers returns transfers sent from or received into the user's accounts.
func (s *Service) ListTransfers(ctx context.Context, userID int64) ([]models.Transfer, error) {
	var out []models.Transfer
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		out, err = r.ListTransfers(ctx, userID)
		return err
	})
	return out, err
}

// GetTransfer returns a transfer touching one of the user's accounts.
func (s *Service) GetTransfer(ctx context.Context, userID, transferID int64) (*models.Transfer, error) {
	var t *models.Transfer
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		if t, err = r.GetTransfer(ctx, transferID); err != nil {
			return err
		}
		ids := []int64{t.FromAccountID}
		if t.ToAccountID != nil {
			ids = append(ids, *t.ToAccountID)
		}
		for _, id := range ids {
			_, err := owned(ctx, r, userID, id)
			if err == nil {
				return nil
			}
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
		}
		return models.NotFound("transfer %d", transferID)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DueTransfers lists pending transfers whose scheduled time has passed.
func (s *Service) DueTransfers(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		ids, err = r.DueTransfers(ctx, s.now())
		return err
	})
	return ids, err
}
