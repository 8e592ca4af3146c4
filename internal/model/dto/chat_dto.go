package dto

// SendMessageRequest 发送消息
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// ChatInfo 对话
type ChatInfo struct {
	ID              int64   `json:"id"`
	Participant     string  `json:"participant"` // 对方名字
	ParticipantID   string  `json:"participant_id"`
	StoryID         int64   `json:"story_id"`
	IsPaid          bool    `json:"is_paid"`
	Price           float64 `json:"price"`
	LastMessage     string  `json:"last_message"`
	LastMessageTime string  `json:"last_message_time"`
}

// MessageInfo 消息
type MessageInfo struct {
	ID        int64  `json:"id"`
	SenderID  string `json:"sender_id"`
	IsOwn     bool   `json:"is_own"`
	Content   string `json:"content"`
	IsPaid    bool   `json:"is_paid"`
	Timestamp string `json:"timestamp"`
}
