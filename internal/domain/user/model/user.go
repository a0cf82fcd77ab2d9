package model

import (
	"time"

	baseModel "carforum/pkg/model"
)

// DefaultProfileImage 默认头像
const DefaultProfileImage = "/static/uploads/default_user.jpg"

// User 用户模型
type User struct {
	baseModel.BaseModel
	Username        string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email           string `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash    string `gorm:"type:varchar(128);not null" json:"-"` // 密码不返回给前端
	ProfileImageURL string `gorm:"type:varchar(200)" json:"profileImageUrl"`
}

// LoginHistory 登录记录，LogoutTime 为空表示会话仍在进行
type LoginHistory struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Username   string     `gorm:"type:varchar(64);index" json:"username"`
	LoginTime  time.Time  `json:"loginTime"`
	LogoutTime *time.Time `json:"logoutTime"`
	UserID     uint       `gorm:"index;not null" json:"userId"`
}
