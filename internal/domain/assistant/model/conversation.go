package model

// 角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 对话中的一轮发言
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation 按会话 ID 隔离的聊天记录
type Conversation struct {
	SessionID string `json:"sessionId"`
	Turns     []Turn `json:"turns"`
}
