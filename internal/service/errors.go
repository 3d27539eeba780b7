package service

import "errors"

// 服务层错误分类（handler 据此映射 HTTP 状态码）
var (
	// ErrIncompleteData 提交缺少必填数值字段（→ 400）
	ErrIncompleteData = errors.New("incomplete sensor data")

	// ErrInvalidChannel 未知的通道 pin（→ 400）
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrNotFound 无匹配数据（→ 404）
	ErrNotFound = errors.New("no data")
)
