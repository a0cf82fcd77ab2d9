package model

import (
	"strconv"

	"carforum/pkg/errs"
)

// TargetType 投票目标类型
type TargetType string

const (
	TargetPost  TargetType = "post"
	TargetReply TargetType = "reply"
)

// Target 投票目标：帖子或回复之一
type Target struct {
	Type TargetType
	ID   uint
}

// ParseTarget 解析路由中的目标类型与 ID
func ParseTarget(kind, id string) (Target, error) {
	t := TargetType(kind)
	if t != TargetPost && t != TargetReply {
		return Target{}, errs.ErrInvalidTarget
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return Target{}, errs.ErrNotFound
	}
	return Target{Type: t, ID: uint(n)}, nil
}

// Table 目标所在的表
func (t Target) Table() string {
	if t.Type == TargetReply {
		return "replies"
	}
	return "posts"
}

// Column 账本中对应的外键列
func (t Target) Column() string {
	if t.Type == TargetReply {
		return "reply_id"
	}
	return "post_id"
}

// NewVote 构造指向该目标的账本记录
func (t Target) NewVote(userID uint, voteType string) *Vote {
	id := t.ID
	v := &Vote{UserID: userID, VoteType: voteType}
	if t.Type == TargetReply {
		v.ReplyID = &id
	} else {
		v.PostID = &id
	}
	return v
}

// ValidAction 投票动作是否合法
func ValidAction(action string) bool {
	return action == VoteLike || action == VoteDislike
}
