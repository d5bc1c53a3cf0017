package chatflow

import (
	"context"
	"fmt"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
)

// Identities used by the Simulator's in-memory setup.
const (
	SimulatorAccountID = "sim-account"
	SimulatorPageID    = "sim-page"
	SimulatorUserID    = "sim-user"
	SimulatorChatbotID = "sim-bot"
)

// Choice is a tappable option of the last rendered payloads.
type Choice struct {
	Title   string           `json:"title"`
	Payload string           `json:"payload"`
	Kind    domain.EventKind `json:"kind"`
}

// Step is the result of one simulated inbound event.
type Step struct {
	Result   domain.TurnResult `json:"result"`
	Payloads []domain.Payload  `json:"payloads"`
	Choices  []Choice          `json:"choices,omitempty"`
}

// Simulator runs a single flow for a single user entirely in memory. It backs
// the interactive runner and authoring tools.
type Simulator struct {
	svc      *Service
	recorder *memory.Recorder
	choices  []Choice
}

// NewSimulator creates an active chatbot around flow.
func NewSimulator(flow domain.FlowGraph, opts ...Option) (*Simulator, error) {
	bots, err := memory.NewChatbotStore(&domain.Chatbot{
		ID:        SimulatorChatbotID,
		Name:      "Simulator",
		AccountID: SimulatorAccountID,
		Flow:      flow,
		Mode:      domain.ModeActive,
	})
	if err != nil {
		return nil, err
	}
	accounts := memory.NewAccountStore(&domain.Account{
		ID:         SimulatorAccountID,
		ExternalID: SimulatorPageID,
		Type:       domain.AccountMessenger,
		Name:       "Simulator",
	})
	recorder := memory.NewRecorder()

	svc, err := New(Stores{Sessions: memory.NewSessionStore(), Chatbots: bots, Accounts: accounts}, recorder, opts...)
	if err != nil {
		return nil, err
	}
	return &Simulator{svc: svc, recorder: recorder}, nil
}

// Say sends free text.
func (s *Simulator) Say(ctx context.Context, text string) (Step, error) {
	return s.handle(ctx, domain.Event{Kind: domain.EventFreeText, Text: text})
}

// Choose taps the n-th choice (1-based) of the last step.
func (s *Simulator) Choose(ctx context.Context, n int) (Step, error) {
	if n < 1 || n > len(s.choices) {
		return Step{}, fmt.Errorf("choice %d out of range (1-%d)", n, len(s.choices))
	}
	c := s.choices[n-1]
	return s.handle(ctx, domain.Event{Kind: c.Kind, Text: c.Title, Payload: c.Payload})
}

// Choices returns the options of the last step.
func (s *Simulator) Choices() []Choice {
	return append([]Choice(nil), s.choices...)
}

// Session returns the simulated user's session.
func (s *Simulator) Session(ctx context.Context) (*domain.Session, error) {
	return s.svc.Sessions().Find(ctx, SimulatorUserID, SimulatorAccountID)
}

// Reset discards the session so the next event starts at the start node.
func (s *Simulator) Reset(ctx context.Context) error {
	s.choices = nil
	return s.svc.ResetSession(ctx, SimulatorUserID, SimulatorAccountID)
}

func (s *Simulator) handle(ctx context.Context, ev domain.Event) (Step, error) {
	ev.SenderID = SimulatorUserID
	ev.RecipientID = SimulatorPageID

	s.recorder.Reset()
	res, err := s.svc.HandleEvent(ctx, ev)
	if err != nil {
		return Step{}, err
	}
	step := Step{Result: res, Payloads: s.recorder.Payloads()}
	if len(step.Payloads) > 0 {
		s.choices = ChoicesOf(step.Payloads)
	}
	step.Choices = s.Choices()
	return step, nil
}

// ChoicesOf lists the tappable options of payloads in display order.
// Link buttons are not choices.
func ChoicesOf(payloads []domain.Payload) []Choice {
	var out []Choice
	for _, p := range payloads {
		switch v := p.(type) {
		case domain.QuickRepliesPayload:
			for _, r := range v.Replies {
				out = append(out, Choice{Title: r.Title, Payload: r.Payload, Kind: domain.EventQuickReply})
			}
		case domain.CardsPayload:
			for _, el := range v.Elements {
				for _, b := range el.Buttons {
					if b.Type == domain.ButtonPostback {
						out = append(out, Choice{Title: b.Title, Payload: b.Payload, Kind: domain.EventPostback})
					}
				}
			}
		}
	}
	return out
}
