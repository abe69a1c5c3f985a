// Package support answers customer questions with canned replies chosen by
// keyword and archives each exchange.
package support

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"bankinghub/models"
)

type Request struct {
	Message        string
	Category       string
	ConversationID string
}

type Response struct {
	Response           string    `json:"response"`
	ConversationID     string    `json:"conversation_id"`
	Category           string    `json:"category,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	RequiresHumanAgent bool      `json:"requires_human_agent"`
	SuggestedActions   string    `json:"suggested_actions"`
}

// Exchange is one question and answer as kept in the archive.
type Exchange struct {
	ConversationID     string    `bson:"conversation_id"`
	UserID             int64     `bson:"user_id"`
	Message            string    `bson:"message"`
	Category           string    `bson:"category,omitempty"`
	Response           string    `bson:"response"`
	RequiresHumanAgent bool      `bson:"requires_human_agent"`
	CreatedAt          time.Time `bson:"created_at"`
}

type Archive interface {
	SaveConversation(ctx context.Context, e Exchange) error
}

// Contact details substituted into the replies.
type Contact struct {
	BankName string
	Phone    string
	Email    string
}

// Responder answers support questions from canned replies.
type Responder struct {
	replies *strings.Replacer
	archive Archive
	now     func() time.Time
}

// NewResponder builds a responder. archive may be nil.
func NewResponder(c Contact, archive Archive) *Responder {
	if c.BankName == "" {
		c.BankName = "MelvinBank Zambia"
	}
	if c.Phone == "" {
		c.Phone = "+260-XXX-XXXX"
	}
	if c.Email == "" {
		c.Email = "support@melvinbank.zm"
	}
	return &Responder{
		replies: strings.NewReplacer("{bank}", c.BankName, "{phone}", c.Phone, "{email}", c.Email),
		archive: archive,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle answers one message and archives the exchange when an archive
// is configured. Archive failures are logged only.
func (r *Responder) Handle(ctx context.Context, userID int64, req Request) (*Response, error) {
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Message)); n < 5 || n > 1000 {
		return nil, models.Invalid("message must be between 5 and 1000 characters")
	}
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}
	resp := &Response{
		Response:           r.Reply(req.Message),
		ConversationID:     id,
		Category:           req.Category,
		Timestamp:          r.now(),
		RequiresHumanAgent: RequiresHumanAgent(req.Message),
		SuggestedActions:   SuggestedActions(req.Message),
	}
	if r.archive != nil {
		err := r.archive.SaveConversation(ctx, Exchange{
			ConversationID:     id,
			UserID:             userID,
			Message:            req.Message,
			Category:           req.Category,
			Response:           resp.Response,
			RequiresHumanAgent: resp.RequiresHumanAgent,
			CreatedAt:          resp.Timestamp,
		})
		if err != nil {
			log.Printf("archive conversation %s: %v", id, err)
		}
	}
	return resp, nil
}

// Reply returns the canned answer of the first topic whose keywords occur in
// the message.
func (r *Responder) Reply(message string) string {
	lower := strings.ToLower(message)
	for _, t := range topics {
		if containsAny(lower, t.keywords) {
			return r.replies.Replace(t.reply)
		}
	}
	return r.replies.Replace(defaultReply)
}

func RequiresHumanAgent(message string) bool {
	return containsAny(strings.ToLower(message), escalation)
}

func SuggestedActions(message string) string {
	lower := strings.ToLower(message)
	for _, s := range suggestions {
		if containsAny(lower, s.keywords) {
			return s.actions
		}
	}
	return defaultActions
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
