package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserExists   = 10001
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 论坛模块错误 200xx
	ErrPostNotFound  = 20001
	ErrInvalidVote   = 20002
	ErrInvalidTarget = 20003

	// 通知模块错误 300xx
	ErrNotificationNotFound = 30001

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrNotFound        = 50004
	ErrDependency      = 50005
)
