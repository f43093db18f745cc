// Package errs 定义跨层共享的哨兵错误，调用方使用 errors.Is 判断.
package errs

import "errors"

var (
	// ErrInvalidFormat CSV 表头缺失或缺少必需列，导入在处理任何数据行之前终止.
	ErrInvalidFormat = errors.New("invalid csv format")
	// ErrFileNotFound 文件记录不存在.
	ErrFileNotFound = errors.New("csv file not found")
	// ErrEventNotFound 事件记录不存在.
	ErrEventNotFound = errors.New("event not found")
	// ErrTransport 评分服务在全部重试后仍不可达或返回非 2xx.
	ErrTransport = errors.New("scoring transport failure")
	// ErrParse 评分服务响应无法解析.
	ErrParse = errors.New("scoring response parse failure")
	// ErrInvalidConfig 配置不满足约束.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrAnalysisLocked 同一文件已有分析任务在运行.
	ErrAnalysisLocked = errors.New("analysis already running for file")
)
