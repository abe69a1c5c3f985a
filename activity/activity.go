// Package activity mirrors committed ledger postings and support exchanges
// into MongoDB. Writes are best effort; the ledger remains the record.
package activity

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bankinghub/ledger"
	"bankinghub/models"
	"bankinghub/support"
)

const (
	Database                = "banking_app"
	TransactionsCollection  = "transactions"
	ConversationsCollection = "support_conversations"
)

const writeTimeout = 5 * time.Second

// Connect opens and pings a MongoDB client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Log is the MongoDB activity log of committed postings and support
// conversations.
type Log struct {
	transactions  *mongo.Collection
	conversations *mongo.Collection
}

// NewLog creates a Log over the collections of db.
func NewLog(db *mongo.Database) *Log {
	return &Log{
		transactions:  db.Collection(TransactionsCollection),
		conversations: db.Collection(ConversationsCollection),
	}
}

func entry(p ledger.Posting) models.TransactionLog {
	t := p.Transaction
	return models.TransactionLog{
		TransactionID:   t.ID,
		UserID:          p.UserID,
		AccountID:       t.AccountID,
		Type:            string(t.Type),
		Amount:          t.Amount.StringFixed(2),
		BalanceAfter:    t.BalanceAfter.StringFixed(2),
		Category:        t.Category,
		ReferenceNumber: t.ReferenceNumber,
		CreatedAt:       t.CreatedAt,
	}
}

// Posted copies postings into the transactions collection.
func (l *Log) Posted(ctx context.Context, postings []ledger.Posting) {
	if err := l.record(context.WithoutCancel(ctx), postings); err != nil {
		log.Printf("Error logging to MongoDB: %v", err)
	}
}

func (l *Log) record(ctx context.Context, postings []ledger.Posting) error {
	docs := make([]interface{}, 0, len(postings))
	for _, p := range postings {
		docs = append(docs, entry(p))
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := l.transactions.InsertMany(ctx, docs)
	return err
}

// History returns the logged postings of an account, newest first.
func (l *Log) History(ctx context.Context, accountID int64) ([]models.TransactionLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := l.transactions.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find activity: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.TransactionLog
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return out, nil
}

// SaveConversation archives one support exchange.
func (l *Log) SaveConversation(ctx context.Context, e support.Exchange) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := l.conversations.InsertOne(ctx, e)
	return err
}
