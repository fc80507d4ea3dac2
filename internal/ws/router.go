package ws

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/otodzorelashvili/Sea-Backend/internal/auth"
	"github.com/otodzorelashvili/Sea-Backend/internal/hub"
	"github.com/otodzorelashvili/Sea-Backend/internal/models"
	"github.com/otodzorelashvili/Sea-Backend/internal/repository"
)

// MaxContentLen bounds message content, counted in runes.
const MaxContentLen = 1000

// PresenceMirror pushes online/offline transitions to an external view so
// other services can read presence without a connection to this instance.
// All calls are best-effort.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	PublishSnapshot(ctx context.Context, userIDs []string) error
}

// EventFeed receives a record of every persisted message, fire-and-forget.
type EventFeed interface {
	MessageSent(ctx context.Context, m *models.Message) error
}

// Registry is the live view of connection, identity and room associations the
// router coordinates against. *hub.Hub is the in-process implementation; the
// contract leaves room for one backed by a shared cache.
type Registry interface {
	Register(s *hub.Session)
	Unregister(s *hub.Session) bool
	BindUser(s *hub.Session, userID string)
	Unbind(s *hub.Session)
	Join(room string, s *hub.Session)
	Leave(room string, s *hub.Session)
	Members(room string) []*hub.Session
	OnlineUserIDs() []string
	Broadcast(room string, frame []byte)
	BroadcastAll(frame []byte)
}

// Router dispatches inbound events for a single session. Each connection's
// reader drives Handle serially, so calls into the store or verifier stall
// only that connection.
type Router struct {
	hub      Registry
	store    repository.MessageStore
	verifier auth.Verifier
	// enforceAuth switches sender identity from trust-on-assertion to
	// verified-against-bearer. Off by default so pre-auth clients keep
	// working.
	enforceAuth bool
	mirror      PresenceMirror
	feed        EventFeed
	log         *zap.SugaredLogger
}

func NewRouter(h Registry, store repository.MessageStore, verifier auth.Verifier, enforceAuth bool, log *zap.SugaredLogger) *Router {
	return &Router{hub: h, store: store, verifier: verifier, enforceAuth: enforceAuth, log: log}
}

// WithMirror attaches an optional presence mirror.
func (r *Router) WithMirror(m PresenceMirror) *Router { r.mirror = m; return r }

// WithFeed attaches an optional persisted-message feed.
func (r *Router) WithFeed(f EventFeed) *Router { r.feed = f; return r }

// Handle processes one inbound frame. A malformed frame is a logged no-op;
// nothing that happens here may take the process down.
func (r *Router) Handle(ctx context.Context, s *hub.Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.log.Debugw("malformed frame dropped", "socket", s.ID)
		return
	}
	switch env.Type {
	case EvtJoinRoom:
		r.joinRoom(ctx, s, env)
	case EvtLeaveRoom:
		r.leaveRoom(ctx, s, env)
	case EvtJoinGroup:
		r.joinGroup(s, env)
	case EvtSendMessage:
		r.sendMessage(ctx, s, env)
	case EvtSendGroupMessage:
		r.sendGroupMessage(ctx, s, env)
	case EvtTyping:
		r.typing(s, env)
	case EvtMessageSeen:
		r.messageSeen(ctx, s, env)
	case EvtCallUser, EvtAnswerCall, EvtIceCandidate, EvtEndCall, EvtRejectCall:
		r.relaySignal(s, env)
	default:
		r.log.Debugw("unknown event ignored", "socket", s.ID, "type", env.Type)
	}
}

func (r *Router) joinRoom(ctx context.Context, s *hub.Session, env Envelope) {
	userID := roomID(env.Payload, "user_id")
	if userID == "" {
		r.log.Warnw("joinRoom without user id", "socket", s.ID)
		return
	}
	r.hub.BindUser(s, userID)
	r.hub.Join(userID, s)
	r.log.Infow("join", "socket", s.ID, "user", userID)
	if r.mirror != nil {
		if err := r.mirror.SetOnline(ctx, userID); err != nil {
			r.log.Warnw("presence mirror set online", "user", userID, "err", err)
		}
	}
	r.broadcastPresence(ctx)
}

func (r *Router) leaveRoom(ctx context.Context, s *hub.Session, env Envelope) {
	userID := roomID(env.Payload, "user_id")
	if userID == "" {
		r.log.Warnw("leaveRoom without user id", "socket", s.ID)
		return
	}
	r.hub.Leave(userID, s)
	r.hub.Unbind(s)
	r.log.Infow("leave", "socket", s.ID, "user", userID)
	r.mirrorOffline(ctx, userID)
	r.broadcastPresence(ctx)
}

func (r *Router) joinGroup(s *hub.Session, env Envelope) {
	groupID := roomID(env.Payload, "group_id")
	if groupID == "" {
		return
	}
	r.hub.Join(hub.GroupRoom(groupID), s)
	r.log.Infow("join group", "socket", s.ID, "group", groupID)
}

func (r *Router) sendMessage(ctx context.Context, s *hub.Session, env Envelope) {
	var p sendMessagePayload
	_ = json.Unmarshal(env.Payload, &p)

	if p.SenderID == "" || p.ReceiverID == "" || p.Content == "" {
		r.reject(s, env.AckID, ackErr(CodeMissingFields, "sender_id, receiver_id and content are required"))
		return
	}
	if err := r.checkSend(p.Content, s, p.SenderID); err != nil {
		r.reject(s, env.AckID, err)
		return
	}

	stored, err := r.store.InsertMessage(ctx, &models.Message{
		SenderID:   p.SenderID,
		ReceiverID: p.ReceiverID,
		Content:    p.Content,
		ReplyTo:    p.ReplyTo,
		Mention:    p.Mention,
	})
	if err != nil {
		r.log.Errorw("insert message", "socket", s.ID, "err", err)
		r.reject(s, env.AckID, ackErr(CodePersistenceFailed, "failed to send message"))
		return
	}

	// Both rooms, so every one of the sender's own devices sees the sent
	// message. A self-message collapses to a single room.
	out := frame(EvtReceiveMessage, "", stored)
	r.hub.Broadcast(stored.ReceiverID, out)
	if stored.SenderID != stored.ReceiverID {
		r.hub.Broadcast(stored.SenderID, out)
	}
	s.Deliver(frame(EvtMessageSent, env.AckID, stored))
	r.publishFeed(ctx, stored)
	r.log.Infow("message sent", "socket", s.ID, "id", stored.ID, "from", stored.SenderID, "to", stored.ReceiverID)
}

func (r *Router) sendGroupMessage(ctx context.Context, s *hub.Session, env Envelope) {
	var p sendGroupMessagePayload
	_ = json.Unmarshal(env.Payload, &p)

	if p.SenderID == "" || p.GroupID == "" || p.Content == "" {
		r.reject(s, env.AckID, ackErr(CodeMissingFields, "sender_id, group_id and content are required"))
		return
	}
	if err := r.checkSend(p.Content, s, p.SenderID); err != nil {
		r.reject(s, env.AckID, err)
		return
	}

	stored, err := r.store.InsertMessage(ctx, &models.Message{
		SenderID: p.SenderID,
		GroupID:  p.GroupID,
		Content:  p.Content,
		ReplyTo:  p.ReplyTo,
	})
	if err != nil {
		r.log.Errorw("insert group message", "socket", s.ID, "err", err)
		r.reject(s, env.AckID, ackErr(CodePersistenceFailed, "failed to send message"))
		return
	}

	r.hub.Broadcast(hub.GroupRoom(stored.GroupID), frame(EvtReceiveMessage, "", stored))
	s.Deliver(frame(EvtMessageSent, env.AckID, stored))
	r.publishFeed(ctx, stored)
	r.log.Infow("group message sent", "socket", s.ID, "id", stored.ID, "group", stored.GroupID)
}

// checkSend runs the shared content and identity policy for both message
// kinds. Validation rejects before any collaborator call; auth rejects
// before persistence.
func (r *Router) checkSend(content string, s *hub.Session, sender string) *AckError {
	if utf8.RuneCountInString(content) > MaxContentLen {
		return ackErr(CodeContentTooLong, "message exceeds maximum length of 1000 characters")
	}
	if !r.enforceAuth {
		return nil
	}
	if s.Token == "" {
		return ackErr(CodeAuthRequired, "bearer token required")
	}
	verified, err := r.verifier.Verify(s.Token)
	if err != nil {
		return ackErr(CodeAuthInvalid, "invalid bearer token")
	}
	if verified != sender {
		return ackErr(CodeSenderMismatch, "token subject does not match sender_id")
	}
	return nil
}

func (r *Router) typing(s *hub.Session, env Envelope) {
	from := s.UserID()
	if from == "" {
		return
	}
	var p typingPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.To == "" {
		return
	}
	r.hub.Broadcast(p.To, frame(EvtUserTyping, "", map[string]any{
		"from":   from,
		"typing": p.Typing,
	}))
}

func (r *Router) messageSeen(ctx context.Context, s *hub.Session, env Envelope) {
	var p seenPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || len(p.MessageIDs) == 0 {
		return
	}
	if err := r.store.UpdateStatus(ctx, p.MessageIDs, models.StatusSeen); err != nil {
		r.log.Errorw("mark seen", "socket", s.ID, "err", err)
		return
	}
	senders, err := r.store.SendersOf(ctx, p.MessageIDs)
	if err != nil {
		r.log.Errorw("lookup senders", "socket", s.ID, "err", err)
		return
	}
	// One notification per distinct sender, carrying that sender's ids.
	for sender, ids := range senders {
		r.hub.Broadcast(sender, frame(EvtMessagesSeen, "", map[string]any{
			"message_ids": ids,
			"seen_by":     s.UserID(),
		}))
	}
}

// relaySignal passes call-setup payloads through to the target's room
// verbatim. No persistence, no validation of the payload shape, no ack:
// deliver now to whoever is a member, else drop.
func (r *Router) relaySignal(s *hub.Session, env Envelope) {
	var t signalTarget
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return
	}
	target := t.target()
	if target == "" {
		return
	}
	b, _ := json.Marshal(env)
	r.hub.Broadcast(target, b)
}

// Disconnect tears down all state for a session. Runs exactly once even when
// the reader loop and a server shutdown race; must never panic.
func (r *Router) Disconnect(ctx context.Context, s *hub.Session) {
	userID := s.UserID()
	if !r.hub.Unregister(s) {
		return
	}
	s.Close()
	r.log.Infow("disconnect", "socket", s.ID, "user", userID)
	if userID == "" {
		return
	}
	r.mirrorOffline(ctx, userID)
	r.broadcastPresence(ctx)
}

func (r *Router) broadcastPresence(ctx context.Context) {
	online := r.hub.OnlineUserIDs()
	r.hub.BroadcastAll(frame(EvtOnlineUsers, "", online))
	if r.mirror != nil {
		if err := r.mirror.PublishSnapshot(ctx, online); err != nil {
			r.log.Warnw("presence mirror publish", "err", err)
		}
	}
}

// mirrorOffline flips the mirror only once the user's last device is gone.
func (r *Router) mirrorOffline(ctx context.Context, userID string) {
	if r.mirror == nil || len(r.hub.Members(userID)) > 0 {
		return
	}
	if err := r.mirror.SetOffline(ctx, userID); err != nil {
		r.log.Warnw("presence mirror set offline", "user", userID, "err", err)
	}
}

func (r *Router) publishFeed(ctx context.Context, m *models.Message) {
	if r.feed == nil {
		return
	}
	if err := r.feed.MessageSent(ctx, m); err != nil {
		r.log.Warnw("message feed publish", "id", m.ID, "err", err)
	}
}

func (r *Router) reject(s *hub.Session, ackID string, e *AckError) {
	r.log.Warnw("send rejected", "socket", s.ID, "code", e.Code)
	s.Deliver(frame(EvtMessageError, ackID, e))
}
