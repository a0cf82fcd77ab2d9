package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 基础模型，自增主键 + 软删除
// 论坛的排序需要单调递增的 ID 作为决胜条件 (last_reply_date 相同时按 id desc)
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate 钩子：统一使用 UTC 时间
func (b *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return
}
