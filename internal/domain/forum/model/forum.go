package model

import (
	"time"

	userModel "carforum/internal/domain/user/model"
	baseModel "carforum/pkg/model"
)

// 帖子分类
const (
	CategoryNews         = "news"
	CategoryTutorial     = "tutorial"
	CategoryDiscussion   = "discussion"
	CategoryTrade        = "trade"
	CategoryQuestion     = "question"
	CategoryAnnouncement = "announcement"
	CategoryEvent        = "event"
	CategoryPoll         = "poll"
)

var categories = map[string]bool{
	CategoryNews: true, CategoryTutorial: true, CategoryDiscussion: true, CategoryTrade: true,
	CategoryQuestion: true, CategoryAnnouncement: true, CategoryEvent: true, CategoryPoll: true,
}

// ValidCategory 分类是否合法
func ValidCategory(c string) bool {
	return categories[c]
}

// Post 帖子
type Post struct {
	baseModel.BaseModel
	Title         string          `gorm:"type:varchar(255);not null" json:"title"`
	Category      string          `gorm:"type:varchar(32);index" json:"category"`
	Content       string          `gorm:"type:text;not null" json:"content"`
	UserID        uint            `gorm:"index;not null" json:"userId"`
	Author        *userModel.User `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Views         int             `gorm:"not null;default:0" json:"views"`
	RepliesCount  int             `gorm:"not null;default:0" json:"repliesCount"`
	LastReplyDate time.Time       `gorm:"index" json:"lastReplyDate"`
	Likes         int             `gorm:"not null;default:0" json:"likes"`
}

// Reply 回复，ParentID 指向同一帖子下的另一条回复
type Reply struct {
	baseModel.BaseModel
	Content  string          `gorm:"type:text;not null" json:"content"`
	PostID   uint            `gorm:"index;not null" json:"postId"`
	ParentID *uint           `gorm:"index" json:"parentId"`
	UserID   uint            `gorm:"index;not null" json:"userId"`
	Author   *userModel.User `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Likes    int             `gorm:"not null;default:0" json:"likes"`

	Children []*Reply `gorm:"-" json:"children,omitempty"`
}

// 投票类型
const (
	VoteLike    = "like"
	VoteDislike = "dislike"
)

// Vote 投票账本，PostID 与 ReplyID 有且仅有一个非空。
// 取消投票直接删除记录，因此不做软删除。
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_post;uniqueIndex:idx_votes_user_reply" json:"userId"`
	PostID    *uint     `gorm:"uniqueIndex:idx_votes_user_post" json:"postId,omitempty"`
	ReplyID   *uint     `gorm:"uniqueIndex:idx_votes_user_reply" json:"replyId,omitempty"`
	VoteType  string    `gorm:"type:varchar(10);not null" json:"voteType"`
	CreatedAt time.Time `json:"createdAt"`
}
