package repository

import "errors"

var (
	// ErrInvalidArgument 必填标识为空或参数越界，立即返回，不重试
	ErrInvalidArgument = errors.New("repository: invalid argument")
	// ErrInviteCodeExhausted 连续生成的邀请码全部冲突，说明生成器或容量有问题
	ErrInviteCodeExhausted = errors.New("repository: invite code collisions exhausted")
	// ErrDuplicateID 调用方指定的标识已存在
	ErrDuplicateID = errors.New("repository: duplicate id")
)
