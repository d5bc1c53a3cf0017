package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Render turns a node into its outbound payload.
// It reports false for nodes that send nothing (start, loop, unknown kinds,
// or a message node with empty text).
func Render(n domain.Node) (domain.Payload, bool) {
	switch d := n.Data.(type) {
	case domain.StartData, domain.LoopData, domain.UnknownData:
		return nil, false

	case domain.MessageData:
		if d.Message == "" {
			return nil, false
		}
		return domain.TextPayload{Text: d.Message}, true

	case domain.QuickReplyData:
		replies := make([]domain.QuickReplyOption, 0, min(len(d.Replies), domain.MaxQuickReplies))
		for i, r := range d.Replies {
			if i >= domain.MaxQuickReplies {
				break
			}
			replies = append(replies, domain.QuickReplyOption{
				Title:   replyTitle(r, i),
				Payload: domain.SelectionToken(n.ID, domain.QuickReplyHandle(i)),
			})
		}
		if len(replies) == 0 {
			if d.Message == "" {
				return nil, false
			}
			return domain.TextPayload{Text: d.Message}, true
		}
		return domain.QuickRepliesPayload{Text: d.Message, Replies: replies}, true

	case domain.CardData:
		el := renderCard(d.Card, func(b int) string {
			return domain.SelectionToken(n.ID, domain.ButtonHandle(b))
		})
		return domain.CardsPayload{Elements: []domain.TemplateElement{el}}, true

	case domain.CarouselData:
		elements := make([]domain.TemplateElement, 0, min(len(d.Cards), domain.MaxCarouselCards))
		for c, card := range d.Cards {
			if c >= domain.MaxCarouselCards {
				break
			}
			elements = append(elements, renderCard(card, func(b int) string {
				return domain.SelectionToken(n.ID, domain.CarouselButtonHandle(c, b))
			}))
		}
		if len(elements) == 0 {
			return nil, false
		}
		return domain.CardsPayload{Elements: elements}, true

	case domain.MediaData:
		if d.ImageURL == "" {
			return nil, false
		}
		return domain.ImagePayload{URL: d.ImageURL}, true

	case domain.EndData:
		if d.SendMessage != nil && !*d.SendMessage {
			return nil, false
		}
		if d.Message == "" {
			return nil, false
		}
		return domain.TextPayload{Text: d.Message}, true
	}
	return nil, false
}

func renderCard(card domain.Card, token func(b int) string) domain.TemplateElement {
	el := domain.TemplateElement{
		Title:    card.Title,
		Subtitle: card.Subtitle,
		ImageURL: card.ImageURL,
	}
	for i, b := range card.Buttons {
		if i >= domain.MaxCardButtons {
			break
		}
		if b.Advances() {
			el.Buttons = append(el.Buttons, domain.TemplateButton{
				Type:    domain.ButtonPostback,
				Title:   b.Title,
				Payload: token(i),
			})
			continue
		}
		if b.URL == "" {
			// Messenger rejects the whole template for a link without URL.
			continue
		}
		el.Buttons = append(el.Buttons, domain.TemplateButton{
			Type:  domain.ButtonWebURL,
			Title: b.Title,
			URL:   b.URL,
		})
	}
	return el
}

func replyTitle(r domain.QuickReply, i int) string {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Sprintf("Option %d", i+1)
	}
	return r.Title
}

// Halts reports whether traversal pauses after n to wait for user input.
func Halts(n domain.Node) bool {
	switch d := n.Data.(type) {
	case domain.MessageData:
		return d.WaitForReply == nil || *d.WaitForReply
	case domain.QuickReplyData, domain.EndData:
		return true
	case domain.CardData:
		return d.HasAdvanceButton()
	case domain.CarouselData:
		return d.HasAdvanceButton()
	case domain.StartData, domain.MediaData, domain.LoopData, domain.UnknownData:
		return false
	}
	return false
}

// DefaultHandles returns the handles tried, in order, when leaving n without a selection.
// Cards and carousels that wait for a tap only leave through the unlabeled
// output on free text; default-output is their pass-through when nothing can be tapped.
func DefaultHandles(n domain.Node) []string {
	switch n.Data.(type) {
	case domain.CardData, domain.CarouselData:
		if Halts(n) {
			return []string{""}
		}
		return []string{domain.DefaultOutputHandle, ""}
	}
	return []string{""}
}

// MatchTitle maps a tapped reply or button title back to its handle.
// Matching is case-insensitive and only considers rendered, advancing options.
func MatchTitle(n domain.Node, title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}
	switch d := n.Data.(type) {
	case domain.QuickReplyData:
		for i, r := range d.Replies {
			if i >= domain.MaxQuickReplies {
				break
			}
			if strings.EqualFold(replyTitle(r, i), title) {
				return domain.QuickReplyHandle(i), true
			}
		}
	case domain.CardData:
		if b, ok := matchButton(d.Card, title); ok {
			return domain.ButtonHandle(b), true
		}
	case domain.CarouselData:
		for c, card := range d.Cards {
			if c >= domain.MaxCarouselCards {
				break
			}
			if b, ok := matchButton(card, title); ok {
				return domain.CarouselButtonHandle(c, b), true
			}
		}
	}
	return "", false
}

func matchButton(card domain.Card, title string) (int, bool) {
	for i, b := range card.Buttons {
		if i >= domain.MaxCardButtons {
			break
		}
		if b.Advances() && strings.EqualFold(strings.TrimSpace(b.Title), title) {
			return i, true
		}
	}
	return 0, false
}
