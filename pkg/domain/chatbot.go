package domain

import (
	"time"
)

// Mode controls whether a chatbot answers inbound messages.
type Mode string

const (
	// ModeActive answers every user of the account.
	ModeActive Mode = "active"
	// ModeTest answers only allow-listed testers.
	ModeTest Mode = "test"
	// ModeInactive never answers.
	ModeInactive Mode = "inactive"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeActive, ModeTest, ModeInactive:
		return true
	}
	return false
}

// Live reports whether a chatbot in this mode processes inbound events.
func (m Mode) Live() bool {
	return m == ModeActive || m == ModeTest
}

// Tester is an allow-listed end user of a chatbot in test mode.
type Tester struct {
	UserPSID string    `json:"user_psid"`
	AddedAt  time.Time `json:"added_at"`
}

// Chatbot binds a flow graph to a messaging account.
// Its ID doubles as the flow reference stored in sessions.
type Chatbot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AccountID   string    `json:"account_id"`
	Flow        FlowGraph `json:"flow"`
	Mode        Mode      `json:"mode"`
	TestTrigger string    `json:"test_trigger"`
	Testers     []Tester  `json:"testers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasTester reports whether psid is on the allow-list.
func (c *Chatbot) HasTester(psid string) bool {
	for _, t := range c.Testers {
		if t.UserPSID == psid {
			return true
		}
	}
	return false
}

// AccountType is the messaging channel of an account.
type AccountType string

const (
	AccountMessenger AccountType = "messenger"
	AccountWhatsApp  AccountType = "whatsapp"
)

// Account is a connected messaging account (a Facebook page for Messenger).
type Account struct {
	ID string `json:"id"`
	// ExternalID is the channel-side id, the page id for Messenger.
	ExternalID  string      `json:"external_id"`
	Type        AccountType `json:"type"`
	Name        string      `json:"name"`
	AccessToken string      `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// DefaultFlow is the graph given to newly created chatbots.
func DefaultFlow() FlowGraph {
	return FlowGraph{
		Nodes: []Node{
			{ID: "1", Type: KindStart, Data: StartData{Label: "Start"}, Position: &Position{X: 250, Y: 5}},
			{ID: "2", Type: KindMessage, Data: MessageData{Message: "Hello! Thanks for your message. How can I help you today?"}, Position: &Position{X: 250, Y: 125}},
		},
		Edges: []Edge{
			{ID: "e1-2", Source: "1", Target: "2"},
		},
	}
}
