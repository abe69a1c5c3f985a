package ledger

import (
	"time"

	"bankinghub/models"
)

// TransferView is the client representation of a transfer with its derived
// fields filled in at serialization time.
type TransferView struct {
	models.Transfer
	StatusDescription    string `json:"status_description"`
	CanCancel            bool   `json:"can_cancel"`
	HoursUntilProcessing int64  `json:"hours_until_processing"`
}

// NewTransferView fills the derived transfer fields as of now.
func NewTransferView(t models.Transfer, now time.Time) TransferView {
	return TransferView{
		Transfer:             t,
		StatusDescription:    StatusDescription(t),
		CanCancel:            CanCancel(t, now),
		HoursUntilProcessing: HoursUntilProcessing(t, now),
	}
}

func StatusDescription(t models.Transfer) string {
	switch t.Status {
	case models.TransferPending:
		return "Transfer is pending approval"
	case models.TransferProcessing:
		return "Transfer is being processed"
	case models.TransferCompleted:
		return "Transfer completed successfully"
	case models.TransferFailed:
		if t.FailureReason != "" {
			return "Transfer failed: " + t.FailureReason
		}
		return "Transfer failed"
	case models.TransferCancelled:
		return "Transfer was cancelled"
	case "":
		return "Unknown"
	}
	return string(t.Status)
}

// CanCancel holds while the transfer is pending and its scheduled time is
// still ahead.
func CanCancel(t models.Transfer, now time.Time) bool {
	return t.Status == models.TransferPending && (t.ScheduledDate.IsZero() || t.ScheduledDate.After(now))
}

// HoursUntilProcessing counts whole hours until the scheduled time, 0 once
// it has passed.
func HoursUntilProcessing(t models.Transfer, now time.Time) int64 {
	if t.ScheduledDate.IsZero() || t.ScheduledDate.Before(now) {
		return 0
	}
	return int64(t.ScheduledDate.Sub(now) / time.Hour)
}

// AccountView adds the masked account number shown on statements and lists.
type AccountView struct {
	models.Account
	MaskedAccountNumber string `json:"masked_account_number"`
}

// NewAccountView adds the masked account number.
func NewAccountView(a models.Account) AccountView {
	return AccountView{Account: a, MaskedAccountNumber: MaskAccountNumber(a.AccountNumber)}
}
