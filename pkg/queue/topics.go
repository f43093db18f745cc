// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：sc.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：file(上传与导入)、analysis(分析流水线)
// 状态：请求(requested)、进行中(progress)、完成(completed)、失败(failed)

const (
	// 文件领域.
	TopicFileIngested = "sc.file.ingested" // CSV 已完成导入（事件已落库），监听方据此触发分析流水线

	// 分析领域.
	TopicAnalysisRequested = "sc.analysis.requested" // 手动请求重新分析
	TopicAnalysisProgress  = "sc.analysis.progress"  // 进度消息，与 WebSocket 推送内容一致
	TopicAnalysisCompleted = "sc.analysis.completed" // 分析完成，附带汇总
	TopicAnalysisFailed    = "sc.analysis.failed"    // 分析失败
)

// 主题分组，用于批量操作或权限控制.
var (
	// FileTopics 文件相关主题集合.
	FileTopics = []string{TopicFileIngested}

	// AnalysisTopics 分析相关主题集合.
	AnalysisTopics = []string{
		TopicAnalysisRequested, TopicAnalysisProgress,
		TopicAnalysisCompleted, TopicAnalysisFailed,
	}
)
