package signaling

import (
	"github.com/mossy-p/social-signaling/internal/models"
	"go.uber.org/zap"
)

// relayRoutes maps an inbound call or negotiation event to the event the
// target receives.
var relayRoutes = map[models.EventType]models.EventType{
	models.EventCallUser:     models.EventIncomingCall,
	models.EventAnswerCall:   models.EventCallAccepted,
	models.EventRejectCall:   models.EventCallRejected,
	models.EventEndCall:      models.EventCallEnded,
	models.EventOffer:        models.EventOffer,
	models.EventAnswer:       models.EventAnswer,
	models.EventICECandidate: models.EventICECandidate,
}

const offlineMessage = "User is offline"

func callFailed() models.Envelope {
	return models.Envelope{
		Event: models.EventCallFailed,
		Data:  models.ErrorPayload{Message: offlineMessage},
	}
}

// handleRelay forwards a call or negotiation event to the connection
// registered for its target. Only callUser reports an unreachable target;
// everything else to an absent user is dropped.
func (h *Hub) handleRelay(p Peer, env models.Envelope) {
	var target models.RelayTarget
	if err := decodePayload(env.Data, &target); err != nil {
		h.log.Warn("dropping malformed signaling event",
			zap.String("conn_id", p.ID()), zap.String("event", string(env.Event)), zap.Error(err))
		return
	}

	to := target.Target(env.Event)
	from := h.senderOf(p, target.From)
	if to == "" || from == "" {
		h.log.Warn("dropping signaling event without to/from",
			zap.String("conn_id", p.ID()), zap.String("event", string(env.Event)))
		return
	}

	frame := models.Envelope{
		Event: relayRoutes[env.Event],
		Data:  retag(env.Data.(map[string]any), env.Event, from),
	}

	if peer, ok := h.registry.Lookup(to); ok {
		h.deliver(peer, frame)
		h.log.Debug("relayed",
			zap.String("event", string(env.Event)), zap.String("from", from), zap.String("to", to))
		return
	}

	if h.remote != nil {
		h.remote.route(h, p.ID(), to, frame, env.Event == models.EventCallUser)
		return
	}

	if env.Event == models.EventCallUser {
		h.deliver(p, callFailed())
		h.log.Info("call target offline", zap.String("from", from), zap.String("to", to))
	}
}

// senderOf prefers the identity the connection announced, then the token
// identity, and only then what the client put in the payload.
func (h *Hub) senderOf(p Peer, claimed string) string {
	if u, ok := h.registry.UserFor(p.ID()); ok {
		return u
	}
	if p.UserID() != "" {
		return p.UserID()
	}
	return claimed
}

// retag copies the payload and stamps the sender on it.
func retag(data map[string]any, kind models.EventType, from string) map[string]any {
	out := make(map[string]any, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["from"] = from
	if kind == models.EventCallUser {
		out["callerId"] = from
	}
	return out
}
