package model

import (
	"time"

	userModel "carforum/internal/domain/user/model"
)

// 通知类型
const (
	TypeMention  = "mention"
	TypeNewReply = "new_reply"
)

// Notification 通知，删除即物理删除
type Notification struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"index;not null" json:"userId"` // 接收者
	ActorID          uint            `gorm:"not null" json:"actorId"`
	Actor            *userModel.User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	PostID           *uint           `gorm:"index" json:"postId"`
	ReplyID          *uint           `json:"replyId"`
	Message          string          `gorm:"type:varchar(255)" json:"message"`
	NotificationType string          `gorm:"type:varchar(50);not null" json:"notificationType"`
	IsRead           bool            `gorm:"not null;default:false;index" json:"isRead"`
	CreatedAt        time.Time       `gorm:"index" json:"createdAt"`
}
