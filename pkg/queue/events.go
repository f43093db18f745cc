package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishFileIngested 发布 sc.file.ingested 事件.
// 事件落库后才发布，下游据此运行分析流水线.
func PublishFileIngested(pub message.Publisher, payload FileIngestedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicFileIngested, payload, opts...)
}

// ParseFileIngested 将 Watermill 消息解析为强类型 Envelope.
func ParseFileIngested(msg *message.Message) (Message[FileIngestedPayload], error) {
	return ParseWatermillMessage[FileIngestedPayload](msg)
}

// PublishAnalysisRequested 发布 sc.analysis.requested 事件.
func PublishAnalysisRequested(pub message.Publisher, payload AnalysisRequestedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicAnalysisRequested, payload, opts...)
}

// ParseAnalysisRequested 解析 sc.analysis.requested 事件.
func ParseAnalysisRequested(msg *message.Message) (Message[AnalysisRequestedPayload], error) {
	return ParseWatermillMessage[AnalysisRequestedPayload](msg)
}

// PublishProgress 发布 sc.analysis.progress 事件.
func PublishProgress(pub message.Publisher, payload ProgressPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicAnalysisProgress, payload, opts...)
}

// PublishAnalysisCompleted 发布 sc.analysis.completed 事件.
func PublishAnalysisCompleted(pub message.Publisher, payload AnalysisCompletedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicAnalysisCompleted, payload, opts...)
}

// PublishAnalysisFailed 发布 sc.analysis.failed 事件.
func PublishAnalysisFailed(pub message.Publisher, payload AnalysisFailedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicAnalysisFailed, payload, opts...)
}

func publish[T any](pub message.Publisher, topic string, payload T, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}
