// Package errs 定义业务错误分类，handler 层通过 response.HandleError 映射为 HTTP 状态码。
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 引用的实体不存在
	ErrNotFound = errors.New("record not found")
	// ErrInvalidVote 重复的同方向投票
	ErrInvalidVote = errors.New("you have already voted this way")
	// ErrInvalidTarget 投票目标类型非法
	ErrInvalidTarget = errors.New("invalid vote target")
	// ErrValidation 参数校验失败，具体字段见 *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized 凭证错误
	ErrUnauthorized = errors.New("invalid username or password")
	// ErrForbidden 非资源所有者
	ErrForbidden = errors.New("permission denied")
	// ErrDependency 外部依赖 (chat / news) 不可用
	ErrDependency = errors.New("dependency failure")
)

// ValidationError 字段级校验错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is 让 errors.Is(err, ErrValidation) 对所有字段错误成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid 构造字段校验错误
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Dependency 包装外部依赖错误
func Dependency(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDependency, name, err)
}
