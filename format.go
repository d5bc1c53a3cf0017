package chatflow

import (
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// FormatPayload renders an outbound payload as Markdown. Tappable options are
// numbered from start, the index of the first option in the payload.
func FormatPayload(p domain.Payload, start int) string {
	var b strings.Builder
	switch v := p.(type) {
	case domain.TextPayload:
		b.WriteString(v.Text)
	case domain.QuickRepliesPayload:
		b.WriteString(v.Text)
		b.WriteString("\n")
		for i, r := range v.Replies {
			fmt.Fprintf(&b, "\n%d. %s", start+i, r.Title)
		}
	case domain.CardsPayload:
		n := start
		for i, el := range v.Elements {
			if i > 0 {
				b.WriteString("\n\n---\n\n")
			}
			fmt.Fprintf(&b, "**%s**", el.Title)
			if el.Subtitle != "" {
				fmt.Fprintf(&b, "\n\n%s", el.Subtitle)
			}
			if el.ImageURL != "" {
				fmt.Fprintf(&b, "\n\n![image](%s)", el.ImageURL)
			}
			if len(el.Buttons) > 0 {
				b.WriteString("\n")
			}
			for _, btn := range el.Buttons {
				if btn.Type == domain.ButtonPostback {
					fmt.Fprintf(&b, "\n%d. [%s]", n, btn.Title)
					n++
					continue
				}
				fmt.Fprintf(&b, "\n- [%s](%s)", btn.Title, btn.URL)
			}
		}
	case domain.ImagePayload:
		fmt.Fprintf(&b, "![image](%s)", v.URL)
	default:
		fmt.Fprintf(&b, "(%s)", p.PayloadKind())
	}
	return b.String()
}

// choiceCount returns how many choices p contributes.
func choiceCount(p domain.Payload) int {
	return len(ChoicesOf([]domain.Payload{p}))
}
