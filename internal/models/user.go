package models

import "time"

// User is the subset of the account record the relay reads
type User struct {
	ID           string `bson:"_id" json:"id"`
	Username     string `bson:"username" json:"username"`
	Email        string `bson:"email,omitempty" json:"email,omitempty"`
	ProfileImage string `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	IsActive     bool   `bson:"isActive" json:"isActive"`
}

type Comment struct {
	UserID    string    `bson:"userId" json:"userId"`
	Username  string    `bson:"username,omitempty" json:"username,omitempty"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Post struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"userId"`
	ImageURL  string    `bson:"imageUrl" json:"imageUrl"`
	Caption   string    `bson:"caption,omitempty" json:"caption,omitempty"`
	Likes     []string  `bson:"likes" json:"likes"`
	Comments  []Comment `bson:"comments" json:"comments"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Presence API responses

type PresenceResponse struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

type InitiateCallRequest struct {
	TargetUserID string `json:"targetUserId" binding:"required"`
	CallType     string `json:"callType" binding:"omitempty,oneof=audio video"`
}

type InitiateCallResponse struct {
	Message      string `json:"message"`
	CallerID     string `json:"callerId"`
	TargetUserID string `json:"targetUserId"`
	CallType     string `json:"callType"`
	TargetOnline bool   `json:"targetOnline"`
}

type HubStats struct {
	Connections int `json:"connections"`
	OnlineUsers int `json:"onlineUsers"`
	Rooms       int `json:"rooms"`
}
