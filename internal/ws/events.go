package ws

import "encoding/json"

// Inbound event types. Names match what the deployed clients emit, so
// renaming any of them is a breaking protocol change.
const (
	EvtJoinRoom         = "joinRoom"
	EvtLeaveRoom        = "leaveRoom"
	EvtJoinGroup        = "joinGroup"
	EvtSendMessage      = "sendMessage"
	EvtSendGroupMessage = "sendGroupMessage"
	EvtTyping           = "typing"
	EvtMessageSeen      = "messageSeen"
	EvtCallUser         = "callUser"
	EvtAnswerCall       = "answerCall"
	EvtIceCandidate     = "iceCandidate"
	EvtEndCall          = "endCall"
	EvtRejectCall       = "rejectCall"
)

// Outbound event types.
const (
	EvtReceiveMessage = "receiveMessage"
	EvtOnlineUsers    = "onlineUsers"
	EvtUserTyping     = "userTyping"
	EvtMessagesSeen   = "messagesSeen"
	EvtMessageSent    = "messageSent"
	EvtMessageError   = "messageError"
)

// Envelope is the multiplexed frame carried on every connection. AckID is an
// optional client correlation token echoed on reply frames.
type Envelope struct {
	Type    string          `json:"type"`
	AckID   string          `json:"ack_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type sendMessagePayload struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	ReplyTo    string `json:"reply_to,omitempty"`
	Mention    bool   `json:"mention,omitempty"`
}

type sendGroupMessagePayload struct {
	SenderID string `json:"sender_id"`
	GroupID  string `json:"group_id"`
	Content  string `json:"content"`
	ReplyTo  string `json:"reply_to,omitempty"`
}

type typingPayload struct {
	To     string `json:"to"`
	Typing bool   `json:"typing"`
}

type seenPayload struct {
	MessageIDs []string `json:"message_ids"`
}

// signalTarget extracts only the routing field of a call-signal payload; the
// rest passes through untouched. Older clients used "userToCall".
type signalTarget struct {
	To         string `json:"to"`
	UserToCall string `json:"userToCall"`
}

func (t signalTarget) target() string {
	if t.To != "" {
		return t.To
	}
	return t.UserToCall
}

// roomID decodes payloads that are either a bare JSON string (the original
// clients emitted joinRoom with just the id) or an object with an id field.
func roomID(raw json.RawMessage, field string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return obj[field]
}

func frame(typ, ackID string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	b, _ := json.Marshal(Envelope{Type: typ, AckID: ackID, Payload: raw})
	return b
}
