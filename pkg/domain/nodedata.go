package domain

// NodeData is the kind-specific payload of a Node.
// The set of implementations is closed: every variant is declared in this file.
type NodeData interface {
	Kind() NodeKind
}

// StartData marks the entry node. The builder stores a label only.
type StartData struct {
	Label string `json:"label,omitempty"`
}

// MessageData is a plain text message.
type MessageData struct {
	Message string `json:"message"`
	// WaitForReply pauses the flow after sending. Nil means true.
	WaitForReply *bool `json:"waitForReply,omitempty"`
}

// QuickReply is a single tappable reply option.
type QuickReply struct {
	Title string `json:"title"`
}

// QuickReplyData is a question with reply buttons. Each reply owns the
// output handle "handle-{index}".
type QuickReplyData struct {
	Message string       `json:"message"`
	Replies []QuickReply `json:"replies"`
}

// ButtonType distinguishes link buttons from buttons that advance the flow.
type ButtonType string

const (
	ButtonWebURL   ButtonType = "web_url"
	ButtonPostback ButtonType = "postback"
)

// CardButton is a button rendered under a card.
type CardButton struct {
	Title string     `json:"title"`
	Type  ButtonType `json:"type"`
	URL   string     `json:"url,omitempty"`
	// Payload is the author-defined postback payload. The engine replaces it
	// with a selection token when rendering.
	Payload string `json:"payload,omitempty"`
}

// Advances reports whether tapping the button continues the flow.
// A button without type or URL is a postback.
func (b CardButton) Advances() bool {
	return b.Type == ButtonPostback || (b.Type == "" && b.URL == "")
}

// Card is the content shared by card nodes and carousel entries.
type Card struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle,omitempty"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Buttons  []CardButton `json:"buttons,omitempty"`
}

// HasAdvanceButton reports whether at least one rendered button advances the flow.
func (c Card) HasAdvanceButton() bool {
	for i, b := range c.Buttons {
		if i >= MaxCardButtons {
			break
		}
		if b.Advances() {
			return true
		}
	}
	return false
}

// CardData is a single rich card.
type CardData struct {
	Card `json:",squash"`
}

// CarouselData is an ordered list of cards.
type CarouselData struct {
	Cards []Card `json:"cards"`
}

// HasAdvanceButton reports whether any rendered card has an advance button.
func (c CarouselData) HasAdvanceButton() bool {
	for i, card := range c.Cards {
		if i >= MaxCarouselCards {
			break
		}
		if card.HasAdvanceButton() {
			return true
		}
	}
	return false
}

// MediaData is a single image.
type MediaData struct {
	ImageURL string `json:"imageUrl"`
}

// LoopData redirects traversal to TargetNodeID.
type LoopData struct {
	TargetNodeID string `json:"targetNodeId,omitempty"`
}

// EndData terminates the conversation, optionally with a farewell message.
type EndData struct {
	Label   string `json:"label,omitempty"`
	Message string `json:"message,omitempty"`
	// SendMessage gates Message. Nil means true.
	SendMessage *bool `json:"sendMessage,omitempty"`
}

// UnknownData keeps the raw data of a node kind this version does not know.
type UnknownData struct {
	Type string
	Raw  map[string]any
}

func (StartData) Kind() NodeKind      { return KindStart }
func (MessageData) Kind() NodeKind    { return KindMessage }
func (QuickReplyData) Kind() NodeKind { return KindQuickReply }
func (CardData) Kind() NodeKind       { return KindCard }
func (CarouselData) Kind() NodeKind   { return KindCarousel }
func (MediaData) Kind() NodeKind      { return KindMedia }
func (LoopData) Kind() NodeKind       { return KindLoop }
func (EndData) Kind() NodeKind        { return KindEnd }
func (u UnknownData) Kind() NodeKind  { return NodeKind(u.Type) }
