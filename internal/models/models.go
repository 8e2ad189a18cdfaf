package models

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// TimestampLayout is the message timestamp format. Lexical and chronological
// order agree for values in this layout.
const TimestampLayout = "2006-01-02 15:04:05"

type Message struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Timestamp    string    `json:"timestamp"`
	Body         string    `json:"body"`
	Direction    Direction `json:"direction"`
	UrgencyScore int       `json:"urgency_score"`
	IsRead       bool      `json:"is_read"`
	Status       Status    `json:"status"`
	AgentID      *string   `json:"agent_id,omitempty"`
}

type UserProfile struct {
	UserID          string   `json:"user_id"`
	Name            string   `json:"name"`
	PhoneNumber     string   `json:"phone_number"`
	LoanBalance     int64    `json:"loan_balance"`
	CreditScore     int64    `json:"credit_score"`
	RiskTier        RiskTier `json:"risk_tier"`
	LastInteraction string   `json:"last_interaction"`
}

type Agent struct {
	ID     string `json:"id" mapstructure:"id"`
	Name   string `json:"name" mapstructure:"name"`
	Avatar string `json:"avatar" mapstructure:"avatar"`
	Email  string `json:"email" mapstructure:"email"`
	Role   string `json:"role" mapstructure:"role"`
	Status string `json:"status" mapstructure:"status"`
}

type CannedResponse struct {
	ID    string `json:"id" mapstructure:"id"`
	Label string `json:"label" mapstructure:"label"`
	Text  string `json:"text" mapstructure:"text"`
}
