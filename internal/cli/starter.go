package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/dsl"
)

// StarterFlow is a small flow that exercises every node kind. It is the
// scaffold written by the init command.
func StarterFlow() (domain.FlowGraph, error) {
	b := dsl.New()

	b.Start("start").Go("welcome")
	b.Say("welcome", "Hi! I'm your new chatbot.").Go("menu")
	b.QuickReply("menu", "What would you like to do?", "See products", "Talk to us", "Nothing").
		Reply(0, "products").
		Reply(1, "contact").
		Reply(2, "bye")

	b.Carousel("products",
		domain.Card{
			Title:    "Starter plan",
			Subtitle: "Everything you need to begin",
			Buttons: []domain.CardButton{
				{Title: "Choose", Type: domain.ButtonPostback},
				{Title: "Details", Type: domain.ButtonWebURL, URL: "https://example.com/starter"},
			},
		},
		domain.Card{
			Title:    "Pro plan",
			Subtitle: "For growing teams",
			Buttons: []domain.CardButton{
				{Title: "Choose", Type: domain.ButtonPostback},
			},
		},
	).
		CarouselButton(0, 0, "chosen").
		CarouselButton(1, 0, "chosen").
		Go("back")

	b.Card("contact", domain.Card{
		Title:    "Talk to us",
		Subtitle: "We usually answer within a day",
		Buttons: []domain.CardButton{
			{Title: "Back to menu", Type: domain.ButtonPostback},
		},
	}).Button(0, "back")

	b.Media("chosen", "https://example.com/thanks.png").Go("thanks")
	b.Say("thanks", "Great choice! Someone will reach out soon.").Go("bye")
	b.Loop("back", "menu")
	b.End("bye", "Thanks for chatting. Bye!")

	return b.Build()
}

// WriteStarterFlow writes StarterFlow as indented JSON.
func WriteStarterFlow(w io.Writer) error {
	flow, err := StarterFlow()
	if err != nil {
		return fmt.Errorf("failed to build starter flow: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(flow)
}
