package event

import "encoding/json"

// Client to Server
const (
	EventOpenConversation  = "dm:open"
	EventSendMessage       = "dm:send"
	EventMarkRead          = "dm:read"
	EventCloseConversation = "dm:close"
)

// Server to Client
const (
	EventConversationOpened = "dm:opened"
	EventMessage            = "dm:message"
	EventMessageSent        = "dm:sent"
	EventMessagesRead       = "dm:read"
	EventConversations      = "dm:conversations"
	EventError              = "dm:error"
)

// Error codes carried by EventError
const (
	CodeBadRequest = "bad_request"
	CodeValidation = "validation"
	CodeStore      = "store_unavailable"
	CodeUnknown    = "unknown_event"
	CodeInternal   = "internal"
)

type WsEvent struct {
	Event     string          `json:"event"`
	Message   json.RawMessage `json:"message,omitempty"`
	RequestId string          `json:"requestId,omitempty"`
}

// New builds an outbound event, marshalling payload into the message field.
func New(name string, payload any) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Message: raw}, nil
}

// Decode unmarshals the event message into v.
func (e WsEvent) Decode(v any) error {
	if len(e.Message) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Message, v)
}
