package domain

// Payload is an outbound message rendered from a node.
// The set of implementations is closed.
type Payload interface {
	PayloadKind() string
}

// TextPayload is a plain text message.
type TextPayload struct {
	Text string `json:"text"`
}

// QuickReplyOption is a rendered quick reply.
type QuickReplyOption struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// QuickRepliesPayload is a text message with quick replies.
type QuickRepliesPayload struct {
	Text    string             `json:"text"`
	Replies []QuickReplyOption `json:"replies"`
}

// TemplateButton is a rendered card button.
type TemplateButton struct {
	Type    ButtonType `json:"type"`
	Title   string     `json:"title"`
	URL     string     `json:"url,omitempty"`
	Payload string     `json:"payload,omitempty"`
}

// TemplateElement is a rendered card.
type TemplateElement struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	ImageURL string           `json:"image_url,omitempty"`
	Buttons  []TemplateButton `json:"buttons,omitempty"`
}

// CardsPayload is a generic template with one (card) or more (carousel) elements.
type CardsPayload struct {
	Elements []TemplateElement `json:"elements"`
}

// ImagePayload is an image attachment.
type ImagePayload struct {
	URL string `json:"url"`
}

func (TextPayload) PayloadKind() string         { return "text" }
func (QuickRepliesPayload) PayloadKind() string { return "quick_replies" }
func (CardsPayload) PayloadKind() string        { return "cards" }
func (ImagePayload) PayloadKind() string        { return "image" }
