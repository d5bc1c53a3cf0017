package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Reason explains an admission decision.
type Reason string

const (
	ReasonAdmitted       Reason = "admitted"
	ReasonTesterAdded    Reason = "tester_added"
	ReasonUnknownAccount Reason = "unknown_account"
	ReasonNoLiveChatbot  Reason = "no_live_chatbot"
	ReasonNotTester      Reason = "not_tester"
)

// Admission is the outcome of Gate.Admit.
type Admission struct {
	Admitted bool
	Reason   Reason
	// Turn is ready for the engine when Admitted is true.
	Turn domain.Turn
}

// Gate resolves the account and live chatbot of an event and applies mode gating.
type Gate struct {
	accounts ports.AccountStore
	chatbots ports.ChatbotStore
	logger   *slog.Logger
}

// GateOption configures the Gate.
type GateOption func(*Gate)

// WithLogger configures the gate logger.
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// NewGate creates a Gate over the given stores.
func NewGate(accounts ports.AccountStore, chatbots ports.ChatbotStore, opts ...GateOption) *Gate {
	g := &Gate{accounts: accounts, chatbots: chatbots, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gate")
	return g
}

// Admit decides whether ev is processed.
//
// Active chatbots admit everyone. Test chatbots admit allow-listed testers, and
// a user whose free text equals the test trigger is appended to the allow-list
// and admitted with a forced restart. Everything else is dropped without side
// effects. The error is non-nil only for store failures.
func (g *Gate) Admit(ctx context.Context, ev domain.Event) (Admission, error) {
	account, err := g.accounts.FindByExternalID(ctx, ev.RecipientID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		g.logger.Debug("Dropping event for unknown account", "recipient", ev.RecipientID)
		return Admission{Reason: ReasonUnknownAccount}, nil
	}
	if err != nil {
		return Admission{}, fmt.Errorf("failed to resolve account: %w", err)
	}

	bot, err := g.chatbots.FindLive(ctx, account.ID)
	if errors.Is(err, domain.ErrChatbotNotFound) {
		g.logger.Debug("Dropping event: no live chatbot", "account_id", account.ID)
		return Admission{Reason: ReasonNoLiveChatbot}, nil
	}
	if err != nil {
		return Admission{}, fmt.Errorf("failed to resolve chatbot: %w", err)
	}

	turn := domain.Turn{Event: ev, Account: account, Chatbot: bot}
	switch bot.Mode {
	case domain.ModeActive:
		return Admission{Admitted: true, Reason: ReasonAdmitted, Turn: turn}, nil

	case domain.ModeTest:
		if isTrigger(bot, ev) {
			if !bot.HasTester(ev.SenderID) {
				tester := domain.Tester{UserPSID: ev.SenderID, AddedAt: time.Now().UTC()}
				if err := g.chatbots.AddTester(ctx, bot.ID, tester); err != nil {
					return Admission{}, fmt.Errorf("failed to add tester: %w", err)
				}
				bot.Testers = append(bot.Testers, tester)
				g.logger.Info("Tester added", "chatbot_id", bot.ID, "user", ev.SenderID)
			}
			turn.Restart = true
			return Admission{Admitted: true, Reason: ReasonTesterAdded, Turn: turn}, nil
		}
		if bot.HasTester(ev.SenderID) {
			return Admission{Admitted: true, Reason: ReasonAdmitted, Turn: turn}, nil
		}
		g.logger.Debug("Dropping event from non-tester", "chatbot_id", bot.ID, "user", ev.SenderID)
		return Admission{Reason: ReasonNotTester}, nil
	}
	return Admission{Reason: ReasonNoLiveChatbot}, nil
}

func isTrigger(bot *domain.Chatbot, ev domain.Event) bool {
	return ev.Kind == domain.EventFreeText && bot.TestTrigger != "" && ev.Text == bot.TestTrigger
}
