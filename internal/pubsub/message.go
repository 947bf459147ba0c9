package pubsub

// Request is an outbound control frame.
type Request struct {
	Type  string      `json:"type"`
	Nonce string      `json:"nonce,omitempty"`
	Data  *ListenData `json:"data,omitempty"`
}

// ListenData is the body of LISTEN and UNLISTEN requests.
type ListenData struct {
	Topics    []string `json:"topics"`
	AuthToken string   `json:"auth_token,omitempty"`
}

// Frame is an inbound frame from the server.
type Frame struct {
	Type  string       `json:"type"`
	Nonce string       `json:"nonce,omitempty"`
	Error string       `json:"error,omitempty"`
	Data  *MessageData `json:"data,omitempty"`
}

// MessageData is the body of a MESSAGE frame. Message is itself a JSON
// document encoded as a string.
type MessageData struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}
