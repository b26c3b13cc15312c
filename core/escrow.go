package core

import (
	"encoding/json"
	"time"
)

// Role is the side of an escrow the current identity is on
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Status is the display status of an escrow
type Status string

const (
	StatusFunded    Status = "FUNDED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// EscrowCreatedSuffix marks the event type emitted when an escrow is opened
const EscrowCreatedSuffix = "::EscrowCreated"

// Transaction is a view record derived from an on-chain escrow event
type Transaction struct {
	ShortID      string `json:"id"`
	FullID       string `json:"fullId"`
	Counterparty string `json:"counterparty"`
	Amount       string `json:"amount"`
	Status       Status `json:"status"`
	Role         Role   `json:"type"`
	Timestamp    int64  `json:"timestamp"` // Unix millis
	Sample       bool   `json:"sample,omitempty"`
}

// LogKind is the severity shown next to an activity line
type LogKind string

const (
	LogInfo    LogKind = "info"
	LogSuccess LogKind = "success"
	LogWarning LogKind = "warning"
	LogError   LogKind = "error"
)

// LogMessage is one line of the activity log
type LogMessage struct {
	ID      string  `json:"id"`
	Time    string  `json:"time"`
	Content string  `json:"content"`
	Kind    LogKind `json:"type"`
}

// Snapshot is the full published state of the event reducer
type Snapshot struct {
	Address   string        `json:"address"`
	AsBuyer   []Transaction `json:"asBuyer"`
	AsSeller  []Transaction `json:"asSeller"`
	Logs      []LogMessage  `json:"logs"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// All returns the buyer and seller records in one slice
func (s Snapshot) All() []Transaction {
	all := make([]Transaction, 0, len(s.AsBuyer)+len(s.AsSeller))
	all = append(all, s.AsBuyer...)
	return append(all, s.AsSeller...)
}

// EventID identifies an event by transaction digest and sequence
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// ChainEvent is a contract-emitted event as returned by the chain node
type ChainEvent struct {
	ID          EventID
	Type        string
	TimestampMs int64
	ParsedJSON  json.RawMessage
}

// EscrowCreated is the payload of an escrow creation event
type EscrowCreated struct {
	EscrowID string `json:"escrow_id"`
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
	Amount   string `json:"amount"`
}

// ShortID renders an object id as its first six and last four characters
func ShortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:6] + "..." + id[len(id)-4:]
}
