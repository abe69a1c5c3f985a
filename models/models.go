// Package models holds the entities shared by the ledger, budget, bill and user
// services, along with the error kinds every layer reports through.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User owns accounts, budgets and bills. Users are disabled, never deleted.
type User struct {
	ID               int64     `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	Enabled          bool      `json:"enabled"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	Role             Role      `json:"role"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type AccountType string

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	CreditCard AccountType = "CREDIT_CARD"
	Loan       AccountType = "LOAN"
	Investment AccountType = "INVESTMENT"
)

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, CreditCard, Loan, Investment:
		return true
	}
	return false
}

type Account struct {
	ID            int64            `json:"id"`
	UserID        int64            `json:"user_id"`
	AccountNumber string           `json:"account_number"`
	Type          AccountType      `json:"account_type"`
	Name          string           `json:"account_name"`
	Description   string           `json:"description,omitempty"`
	Balance       decimal.Decimal  `json:"balance"`
	CreditLimit   *decimal.Decimal `json:"credit_limit,omitempty"`
	InterestRate  *decimal.Decimal `json:"interest_rate,omitempty"`
	Active        bool             `json:"active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Available is the amount a debit may draw on. Credit card accounts may go
// negative down to their credit limit.
func (a Account) Available() decimal.Decimal {
	if a.Type == CreditCard && a.CreditLimit != nil {
		return a.Balance.Add(*a.CreditLimit)
	}
	return a.Balance
}

type TransactionType string

const (
	Deposit     TransactionType = "DEPOSIT"
	Withdrawal  TransactionType = "WITHDRAWAL"
	TransferIn  TransactionType = "TRANSFER_IN"
	TransferOut TransactionType = "TRANSFER_OUT"
	Payment     TransactionType = "PAYMENT"
	Refund      TransactionType = "REFUND"
	Fee         TransactionType = "FEE"
	Interest    TransactionType = "INTEREST"
)

func (t TransactionType) Valid() bool {
	return t.IsCredit() || t.IsDebit()
}

func (t TransactionType) IsCredit() bool {
	switch t {
	case Deposit, TransferIn, Refund, Interest:
		return true
	}
	return false
}

func (t TransactionType) IsDebit() bool {
	switch t {
	case Withdrawal, TransferOut, Payment, Fee:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
	TxCancelled TransactionStatus = "CANCELLED"
)

// Transaction is an immutable ledger posting. BalanceAfter is the account
// balance right after the posting was applied.
type Transaction struct {
	ID              int64             `json:"id"`
	AccountID       int64             `json:"account_id"`
	Amount          decimal.Decimal   `json:"amount"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	Category        string            `json:"category,omitempty"`
	Merchant        string            `json:"merchant,omitempty"`
	ReferenceNumber string            `json:"reference_number"`
	BalanceAfter    decimal.Decimal   `json:"balance_after"`
	TransactionDate time.Time         `json:"transaction_date"`
	CreatedAt       time.Time         `json:"created_at"`
}

// TransactionLog is the copy of a committed posting kept in the activity log.
type TransactionLog struct {
	ID              string    `bson:"_id,omitempty" json:"id,omitempty"`
	TransactionID   int64     `bson:"transaction_id" json:"transaction_id"`
	UserID          int64     `bson:"user_id" json:"user_id"`
	AccountID       int64     `bson:"account_id" json:"account_id"`
	Type            string    `bson:"type" json:"type"`
	Amount          string    `bson:"amount" json:"amount"`
	BalanceAfter    string    `bson:"balance_after" json:"balance_after"`
	Category        string    `bson:"category,omitempty" json:"category,omitempty"`
	ReferenceNumber string    `bson:"reference_number" json:"reference_number"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

type TransferStatus string

const (
	TransferPending    TransferStatus = "PENDING"
	TransferProcessing TransferStatus = "PROCESSING"
	TransferCompleted  TransferStatus = "COMPLETED"
	TransferFailed     TransferStatus = "FAILED"
	TransferCancelled  TransferStatus = "CANCELLED"
)

type TransferType string

const (
	Internal TransferType = "INTERNAL"
	External TransferType = "EXTERNAL"
	P2P      TransferType = "P2P"
)

func (t TransferType) Valid() bool {
	return t == Internal || t == External || t == P2P
}

// Transfer moves funds from one account to another. ToAccountID is nil for
// EXTERNAL transfers, which carry the beneficiary in the External* fields.
type Transfer struct {
	ID                        int64           `json:"id"`
	FromAccountID             int64           `json:"from_account_id"`
	ToAccountID               *int64          `json:"to_account_id,omitempty"`
	Amount                    decimal.Decimal `json:"amount"`
	Fee                       decimal.Decimal `json:"transfer_fee"`
	Description               string          `json:"description"`
	Status                    TransferStatus  `json:"status"`
	Type                      TransferType    `json:"transfer_type"`
	ReferenceNumber           string          `json:"reference_number"`
	ScheduledDate             time.Time       `json:"scheduled_date"`
	ProcessedDate             *time.Time      `json:"processed_date,omitempty"`
	FailureReason             string          `json:"failure_reason,omitempty"`
	ExternalBankName          string          `json:"external_bank_name,omitempty"`
	ExternalAccountNumber     string          `json:"external_account_number,omitempty"`
	ExternalRoutingNumber     string          `json:"external_routing_number,omitempty"`
	ExternalAccountHolderName string          `json:"external_account_holder_name,omitempty"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

type BudgetPeriod string

const (
	Weekly    BudgetPeriod = "WEEKLY"
	Monthly   BudgetPeriod = "MONTHLY"
	Quarterly BudgetPeriod = "QUARTERLY"
	Yearly    BudgetPeriod = "YEARLY"
)

func (p BudgetPeriod) Valid() bool {
	switch p {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// Budget caps spending in one category between StartDate and EndDate.
// CurrentSpent is recomputed from the transaction log, never set by clients.
type Budget struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Category       string          `json:"category"`
	Limit          decimal.Decimal `json:"budget_limit"`
	CurrentSpent   decimal.Decimal `json:"current_spent"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	Period         BudgetPeriod    `json:"period"`
	AlertEnabled   bool            `json:"alert_enabled"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	Description    string          `json:"description,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type BillStatus string

const (
	BillPending   BillStatus = "PENDING"
	BillPaid      BillStatus = "PAID"
	BillOverdue   BillStatus = "OVERDUE"
	BillCancelled BillStatus = "CANCELLED"
	BillScheduled BillStatus = "SCHEDULED"
)

func (s BillStatus) Valid() bool {
	switch s {
	case BillPending, BillPaid, BillOverdue, BillCancelled, BillScheduled:
		return true
	}
	return false
}

type Frequency string

const (
	FreqWeekly    Frequency = "WEEKLY"
	FreqMonthly   Frequency = "MONTHLY"
	FreqQuarterly Frequency = "QUARTERLY"
	FreqAnnually  Frequency = "ANNUALLY"
)

func (f Frequency) Valid() bool {
	switch f {
	case FreqWeekly, FreqMonthly, FreqQuarterly, FreqAnnually:
		return true
	}
	return false
}

type Bill struct {
	ID                  int64           `json:"id"`
	UserID              int64           `json:"user_id"`
	PayeeName           string          `json:"payee_name"`
	Amount              decimal.Decimal `json:"amount"`
	DueDate             time.Time       `json:"due_date"`
	Status              BillStatus      `json:"status"`
	Category            string          `json:"category,omitempty"`
	Description         string          `json:"description,omitempty"`
	Recurring           bool            `json:"recurring"`
	RecurrenceFrequency Frequency       `json:"recurrence_frequency,omitempty"`
	AutoPay             bool            `json:"auto_pay"`
	AutoPayAccountID    *int64          `json:"auto_pay_account_id,omitempty"`
	LastPaidDate        *time.Time      `json:"last_paid_date,omitempty"`
	NextDueDate         *time.Time      `json:"next_due_date,omitempty"`
	PayeeAccountNumber  string          `json:"payee_account_number,omitempty"`
	PayeeAddress        string          `json:"payee_address,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Day truncates t to midnight UTC. Budget windows and bill due dates are
// compared as calendar days.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
