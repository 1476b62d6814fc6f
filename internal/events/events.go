// Package events публикует изменения финансовых данных во внешнюю шину.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type - вид события.
type Type string

const (
	TransactionCreated  Type = "transaction.created"
	TransactionUpdated  Type = "transaction.updated"
	TransactionDeleted  Type = "transaction.deleted"
	TransactionsCleared Type = "transactions.cleared"
	BudgetSaved         Type = "budget.saved"
	BudgetDeleted       Type = "budget.deleted"
	RuleCreated         Type = "rule.created"
	RuleDeleted         Type = "rule.deleted"
)

// Event - легковесное сообщение: потребитель сам дочитывает запись из хранилища.
type Event struct {
	Type     Type      `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	EntityID string    `json:"entity_id,omitempty"`
	// Source = "recurring" для транзакций, созданных из правил
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func New(t Type, userID uuid.UUID, entityID string) Event {
	return Event{Type: t, UserID: userID, EntityID: entityID, Timestamp: time.Now().UTC()}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop используется, когда шина не настроена.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
