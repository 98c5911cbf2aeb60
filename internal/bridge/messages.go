package bridge

// Message types exchanged with browser clients.
const (
	// TypeTranscript is sent by clients with one recognised utterance.
	TypeTranscript = "transcript"

	// TypeSpeak asks the client to speak Text, or to play Audio if set.
	TypeSpeak = "speak"

	// TypeNotify asks the client to raise a system notification.
	TypeNotify = "notify"

	// TypeOpen asks the client to navigate to URL.
	TypeOpen = "open"

	// TypeFallback carries the ranked candidate links for the side panel.
	TypeFallback = "fallback"
)

// Inbound is a message received from a client.
type Inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Outbound is a message sent to clients. Only the fields relevant to Type
// are populated.
type Outbound struct {
	Type string `json:"type"`

	// speak
	Text   string  `json:"text,omitempty"`
	Locale string  `json:"locale,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Audio  []byte  `json:"audio,omitempty"` // base64 in JSON
	Format string  `json:"format,omitempty"`

	// notify
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`

	// open
	URL    string `json:"url,omitempty"`
	NewTab bool   `json:"new_tab,omitempty"`

	// fallback
	Label string   `json:"label,omitempty"`
	URLs  []string `json:"urls,omitempty"`
}
