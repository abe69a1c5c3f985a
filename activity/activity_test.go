package activity

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"bankinghub/ledger"
	"bankinghub/models"
	"bankinghub/support"
)

func TestEntry(t *testing.T) {
	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	got := entry(ledger.Posting{UserID: 4, Transaction: models.Transaction{
		ID: 9, AccountID: 2, Type: models.TransferOut, Amount: decimal.RequireFromString("12.5"),
		BalanceAfter: decimal.RequireFromString("87.5"), Category: "Rent", ReferenceNumber: "TRF0123456789AB", CreatedAt: at,
	}})
	assert.Equal(t, models.TransactionLog{
		TransactionID: 9, UserID: 4, AccountID: 2, Type: "TRANSFER_OUT", Amount: "12.50", BalanceAfter: "87.50",
		Category: "Rent", ReferenceNumber: "TRF0123456789AB", CreatedAt: at,
	}, got)
}

func TestMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("posted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		err := NewLog(mt.DB).record(context.Background(), []ledger.Posting{{UserID: 1, Transaction: models.Transaction{ID: 1, AccountID: 2}}})
		assert.NoError(mt, err)
	})

	mt.Run("history", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + TransactionsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "transaction_id", Value: int64(7)}, {Key: "account_id", Value: int64(2)}, {Key: "type", Value: "DEPOSIT"}, {Key: "amount", Value: "10.00"}},
		))
		got, err := NewLog(mt.DB).History(context.Background(), 2)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, int64(7), got[0].TransactionID)
		assert.Equal(mt, "10.00", got[0].Amount)
	})

	mt.Run("conversation", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		err := NewLog(mt.DB).SaveConversation(context.Background(), support.Exchange{ConversationID: "c1", Message: "hello"})
		assert.NoError(mt, err)
	})

	mt.Run("conversation failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "duplicate key"}))
		err := NewLog(mt.DB).SaveConversation(context.Background(), support.Exchange{ConversationID: "c1"})
		assert.Error(mt, err)
	})
}
