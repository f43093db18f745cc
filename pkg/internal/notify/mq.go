package notify

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/queue"
)

// Publisher 将进度发布到 sc.analysis.progress.
type Publisher struct {
	pub message.Publisher
}

// NewPublisher 创建 MQ 通知器.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// Notify 实现 Notifier，发布失败只记录日志.
func (p *Publisher) Notify(_ context.Context, ev Event) {
	if p == nil || p.pub == nil {
		return
	}

	err := queue.PublishProgress(p.pub, queue.ProgressPayload{
		File:     queue.FileRef{FileID: ev.FileID, UploadedBy: ev.UserID},
		UserID:   ev.UserID,
		TaskID:   ev.TaskID,
		Stage:    ev.Stage,
		Progress: ev.Progress,
		Message:  ev.Message,
	}, queue.WithProducer("epcguard"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Uint("file_id", ev.FileID).Msg("发布进度消息失败")
	}
}
