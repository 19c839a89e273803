// Package storage 定义存储层领域错误与接口
//
// 领域错误隔离业务层与底层存储引擎：repository 负责把
// sql.ErrNoRows / 唯一键冲突等底层错误转换为这里的错误。
package storage

import "errors"

var (
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突（邮箱已注册等）
	ErrDuplicate = errors.New("duplicate: entity already exists")

	// ErrInvalidTransition 非法状态转移
	ErrInvalidTransition = errors.New("invalid status transition")
)
