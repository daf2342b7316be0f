package signaling

import (
	"github.com/mossy-p/social-signaling/internal/models"
	"go.uber.org/zap"
)

type set map[string]struct{}

// rooms tracks chat membership in both directions so a closing connection
// leaves all its rooms without a scan.
type rooms struct {
	members map[string]set // chatID -> connIDs
	joined  map[string]set // connID -> chatIDs
}

func newRooms() *rooms {
	return &rooms{
		members: make(map[string]set),
		joined:  make(map[string]set),
	}
}

func (r *rooms) join(chatID, connID string) {
	if r.members[chatID] == nil {
		r.members[chatID] = make(set)
	}
	r.members[chatID][connID] = struct{}{}
	if r.joined[connID] == nil {
		r.joined[connID] = make(set)
	}
	r.joined[connID][chatID] = struct{}{}
}

func (r *rooms) leave(chatID, connID string) {
	if m, ok := r.members[chatID]; ok {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.members, chatID)
		}
	}
	if j, ok := r.joined[connID]; ok {
		delete(j, chatID)
		if len(j) == 0 {
			delete(r.joined, connID)
		}
	}
}

func (r *rooms) leaveAll(connID string) {
	for chatID := range r.joined[connID] {
		r.leave(chatID, connID)
	}
}

func (r *rooms) membersOf(chatID string) set {
	return r.members[chatID]
}

func (r *rooms) len() int {
	return len(r.members)
}

func (h *Hub) handleJoinChat(p Peer, data any) {
	chatID, err := decodeChatID(data)
	if err != nil || chatID == "" {
		h.log.Warn("dropping joinChat without chat id", zap.String("conn_id", p.ID()), zap.Error(err))
		return
	}
	h.rooms.join(chatID, p.ID())
	h.log.Debug("joined chat", zap.String("conn_id", p.ID()), zap.String("chat_id", chatID))
}

func (h *Hub) handleLeaveChat(p Peer, data any) {
	chatID, err := decodeChatID(data)
	if err != nil || chatID == "" {
		h.log.Warn("dropping leaveChat without chat id", zap.String("conn_id", p.ID()), zap.Error(err))
		return
	}
	h.rooms.leave(chatID, p.ID())
}

// handleSendMessage broadcasts the payload unchanged to every member of the
// chat, the sender included if it joined.
func (h *Hub) handleSendMessage(p Peer, env models.Envelope) {
	var payload models.ChatPayload
	if err := decodePayload(env.Data, &payload); err != nil || payload.ChatID == "" {
		h.log.Warn("dropping sendMessage without chat id", zap.String("conn_id", p.ID()), zap.Error(err))
		return
	}

	out := models.Envelope{Event: models.EventReceiveMessage, Data: env.Data}
	for connID := range h.rooms.membersOf(payload.ChatID) {
		if member, ok := h.peers[connID]; ok {
			h.deliver(member, out)
		}
	}
}
