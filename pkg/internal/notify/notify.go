// Package notify 将流水线各阶段的进度消息推送给上传者.
//
// 同一条消息可同时写入日志、推送到 websocket 连接并发布到 sc.analysis.progress 主题.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// 进度阶段.
const (
	StageIngest    = "ingest"
	StageTrip      = "trip"
	StageDetect    = "detect"
	StageScoring   = "scoring"
	StageAggregate = "aggregate"
	StagePipeline  = "pipeline"
)

// Event 一条进度消息.
type Event struct {
	UserID   string    `json:"user_id"`
	FileID   uint      `json:"file_id"`
	TaskID   string    `json:"task_id,omitempty"`
	Stage    string    `json:"stage"`
	Progress int       `json:"progress,omitempty"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// Notifier 进度通知通道，实现不得阻塞调用方.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Func 函数适配器.
type Func func(ctx context.Context, ev Event)

// Notify 实现 Notifier.
func (f Func) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Nop 丢弃所有消息.
type Nop struct{}

// Notify 实现 Notifier.
func (Nop) Notify(context.Context, Event) {}

// Multi 依次转发给多个 Notifier.
type Multi []Notifier

// Notify 实现 Notifier.
func (m Multi) Notify(ctx context.Context, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// Logger 将进度写入 zerolog.
type Logger struct {
	Log *zerolog.Logger
}

// Notify 实现 Notifier.
func (l Logger) Notify(_ context.Context, ev Event) {
	l.Log.Info().
		Str("user", ev.UserID).
		Uint("file_id", ev.FileID).
		Str("stage", ev.Stage).
		Msg(ev.Message)
}

// Reporter 绑定了用户、文件与任务的便捷发送器.
type Reporter struct {
	n      Notifier
	userID string
	fileID uint
	taskID string
}

// NewReporter 创建 Reporter，n 为 nil 时丢弃消息.
func NewReporter(n Notifier, userID string, fileID uint, taskID string) *Reporter {
	if n == nil {
		n = Nop{}
	}

	return &Reporter{n: n, userID: userID, fileID: fileID, taskID: taskID}
}

// Send 发送一条消息.
func (r *Reporter) Send(ctx context.Context, stage, msg string) {
	r.SendProgress(ctx, stage, 0, msg)
}

// SendProgress 发送带百分比的消息.
func (r *Reporter) SendProgress(ctx context.Context, stage string, progress int, msg string) {
	r.n.Notify(ctx, Event{
		UserID:   r.userID,
		FileID:   r.fileID,
		TaskID:   r.taskID,
		Stage:    stage,
		Progress: progress,
		Message:  msg,
		Time:     time.Now(),
	})
}
