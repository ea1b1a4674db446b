package models

// Channel event names. These are the wire contract between the server
// and connected clients.
const (
	EventSendMessage     = "send_message"
	EventReceiveMessage  = "receive_message"
	EventUnreadUpdate    = "unread_update"
	EventChatListUpdate  = "chat_list_update"
	EventUserOnline      = "user_online"
	EventUserOffline     = "user_offline"
	EventOnlineUsersList = "online_users_list"
	EventConnectionError = "connection_error"
)

// ChannelEvent is the envelope pushed over websocket connections.
type ChannelEvent struct {
	Type        string   `json:"type"`
	Message     *Message `json:"message,omitempty"`
	ChatID      int      `json:"chat_id,omitempty"`
	UnreadCount int      `json:"unread_count,omitempty"`
	UserID      int      `json:"user_id,omitempty"`
	UserIDs     []int    `json:"user_ids,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// SendMessageRequest is the client-to-server send intent. ChatID may
// be zero, in which case the server resolves or creates the chat for
// the (sender, receiver) pair before persisting.
type SendMessageRequest struct {
	Type        string `json:"type"`
	ChatID      int    `json:"chat_id,omitempty"`
	ReceiverID  int    `json:"receiver_id"`
	Content     string `json:"content,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	MessageType string `json:"message_type"`
}
