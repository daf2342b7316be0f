package models

// EventType names a frame exchanged over the signaling WebSocket
type EventType string

// Inbound events
const (
	EventUserOnline   EventType = "userOnline"
	EventJoinChat     EventType = "joinChat"
	EventLeaveChat    EventType = "leaveChat"
	EventSendMessage  EventType = "sendMessage"
	EventCallUser     EventType = "callUser"
	EventAnswerCall   EventType = "answerCall"
	EventRejectCall   EventType = "rejectCall"
	EventEndCall      EventType = "endCall"
	EventOffer        EventType = "offer"
	EventAnswer       EventType = "answer"
	EventICECandidate EventType = "ice-candidate"
	EventNewPost      EventType = "newPost"
	EventLikePost     EventType = "likePost"
	EventCommentPost  EventType = "commentPost"
)

// Outbound events
const (
	EventReceiveMessage EventType = "receiveMessage"
	EventIncomingCall   EventType = "incomingCall"
	EventCallAccepted   EventType = "callAccepted"
	EventCallRejected   EventType = "callRejected"
	EventCallEnded      EventType = "callEnded"
	EventCallFailed     EventType = "callFailed"
	EventPostUpdated    EventType = "postUpdated"
	EventError          EventType = "error"
)

// Envelope is the wire frame in both directions. Data holds whatever the
// client sent: a JSON object decodes to map[string]any, a bare string to
// string.
type Envelope struct {
	Event EventType `json:"event"`
	Data  any       `json:"data,omitempty"`
}

// RelayTarget is the addressing part of a call or negotiation payload.
type RelayTarget struct {
	To         string `json:"to"`
	UserToCall string `json:"userToCall"`
	From       string `json:"from"`
}

// Target returns the user id kind is addressed to. callUser names its
// callee in userToCall, every other relayed event in to.
func (t RelayTarget) Target(kind EventType) string {
	if kind == EventCallUser {
		return t.UserToCall
	}
	return t.To
}

type UserOnlinePayload struct {
	UserID string `json:"userId"`
}

type ChatPayload struct {
	ChatID string `json:"chatId"`
}

type LikePostPayload struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
}

type CommentPostPayload struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// ErrorPayload is sent with callFailed and error events
type ErrorPayload struct {
	Message string `json:"message"`
}
