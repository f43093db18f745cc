// Package mq 订阅 sc.file.ingested 与 sc.analysis.requested，在本进程执行分析流水线.
//
// 多实例部署时，同一文件的并发分析由分析锁拒绝，重复投递不会产生重复结果.
package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
	mqc "github.com/hsk3232/DevelopProject/pkg/internal/storage/mq"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/queue"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// Listener 消费分析相关事件.
type Listener struct {
	rt     *service.Runtime
	client *mqc.Client
	log    zerolog.Logger
	wg     sync.WaitGroup
}

// NewListener 创建监听器.
func NewListener(rt *service.Runtime, client *mqc.Client) *Listener {
	return &Listener{rt: rt, client: client, log: *nlog.Component("listener")}
}

// Start 同步完成订阅后在后台消费，ctx 取消时停止. ingest.auto_analyze 关闭时不订阅导入完成事件.
func (l *Listener) Start(ctx context.Context) error {
	if l.client == nil {
		return errors.New("mq client not initialized")
	}

	handlers := map[string]func(context.Context, *message.Message) error{
		queue.TopicAnalysisRequested: l.handleRequested,
	}

	if l.rt.Config.Ingest.AutoAnalyze {
		handlers[queue.TopicFileIngested] = l.handleIngested
	}

	for topic, h := range handlers {
		ch, err := l.client.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		l.wg.Add(1)

		go l.consume(ctx, topic, ch, h)

		l.log.Info().Str("topic", topic).Msg("subscribed")
	}

	return nil
}

// Wait 等待所有消费协程退出.
func (l *Listener) Wait() {
	l.wg.Wait()
}

func (l *Listener) consume(ctx context.Context, topic string, ch <-chan *message.Message, h func(context.Context, *message.Message) error) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			if err := h(ctx, msg); err != nil {
				l.log.Error().Err(err).Str("topic", topic).Str("uuid", msg.UUID).Msg("handle message failed")
			}

			// 失败已通过 sc.analysis.failed 与进度通知上报，不重新投递
			msg.Ack()
		}
	}
}

func (l *Listener) handleIngested(ctx context.Context, msg *message.Message) error {
	ev, err := queue.ParseFileIngested(msg)
	if err != nil {
		return err
	}

	if ev.Payload.Inserted == 0 {
		l.log.Info().Uint("file_id", ev.Payload.File.FileID).Msg("no rows inserted, skip analysis")

		return nil
	}

	return l.analyze(ctx, ev.Payload.File, ev.Header.TraceID)
}

func (l *Listener) handleRequested(ctx context.Context, msg *message.Message) error {
	ev, err := queue.ParseAnalysisRequested(msg)
	if err != nil {
		return err
	}

	l.log.Debug().
		Uint("file_id", ev.Payload.File.FileID).
		Str("reason", ev.Payload.Reason).
		Msg("analysis requested")

	return l.analyze(ctx, ev.Payload.File, ev.Header.TraceID)
}

func (l *Listener) analyze(ctx context.Context, ref queue.FileRef, traceID string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "listener.analyze", tracing.WithFileID(ref.FileID))
	defer func() { tracing.EndSpan(span, err) }()

	log := l.log.With().Uint("file_id", ref.FileID).Str("trace_id", traceID).Logger()

	_, err = l.rt.Orchestrator.Run(ctx, ref.FileID, ref.UploadedBy)
	if errors.Is(err, errs.ErrAnalysisLocked) {
		log.Info().Msg("analysis already running, skip")

		return nil
	}

	if err == nil {
		log.Info().Msg("analysis finished")
	}

	return err
}
