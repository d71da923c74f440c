package ota

// Message types exchanged as websocket text frames. Image data travels in
// binary frames between "ready" and "end".
const (
	TypeBegin = "begin"
	TypeReady = "ready"
	TypeEnd   = "end"
	TypeDone  = "done"
	TypeError = "error"
)

// Path is the endpoint the receiver is mounted on.
const Path = "/update"

// DefaultPort is the conventional port of the update channel.
const DefaultPort = 8266

// Message is a control frame
type Message struct {
	Type     string `json:"type"`
	Password string `json:"password,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MD5      string `json:"md5,omitempty"`
	Session  string `json:"session,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
}
