// Package scoring 将文件事件分批发送给外部评分服务并保存返回的异常分数.
package scoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"

	"github.com/hsk3232/DevelopProject/pkg/configs"
	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/notify"
	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
	"github.com/hsk3232/DevelopProject/pkg/rule"
	"github.com/hsk3232/DevelopProject/pkg/tracing"
)

// 请求结果标签.
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeFailure = "failure"
)

// maxErrorBody 错误响应中保留的最大字节数.
const maxErrorBody = 512

// Store 评分所需的存储操作.
type Store interface {
	EventsWithItem(ctx context.Context, fileID uint) ([]model.EventWithItem, error)
	SaveScoreAnomalies(ctx context.Context, anomalies []model.ScoreAnomaly) error
}

// Client 外部评分服务客户端.
type Client struct {
	store    Store
	notifier notify.Notifier
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	cfg      configs.ScoringConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option 客户端选项.
type Option func(*Client)

// WithHTTPClient 替换 HTTP 客户端.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSleep 替换等待函数，测试使用.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithBreaker 使用熔断配置包装每次请求.
func WithBreaker(cb configs.CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "scoring",
			MaxRequests: cb.MaxRequestsInHalf,
			Interval:    cb.GetInterval(),
			Timeout:     cb.GetTimeout(),
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return cb.ShouldTrip(counts.Requests, counts.TotalFailures)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				nlog.Component("scoring").Warn().Str("breaker", name).
					Str("from", from.String()).Str("to", to.String()).Msg("熔断器状态变化")
			},
		})
	}
}

// New 校验配置并创建客户端.
func New(store Store, notifier notify.Notifier, cfg configs.ScoringConfig, opts ...Option) (*Client, error) {
	if err := rule.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: scoring: %w", errs.ErrInvalidConfig, err)
	}

	if notifier == nil {
		notifier = notify.Nop{}
	}

	c := &Client{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		http: &http.Client{
			Timeout: cfg.GetConnectTimeout() + cfg.GetReadTimeout(),
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: cfg.GetConnectTimeout()}).DialContext,
				ResponseHeaderTimeout: cfg.GetReadTimeout(),
				MaxIdleConnsPerHost:   4,
			},
		},
		sleep: sleepCtx,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Analyze 导出文件事件，分批请求评分服务并保存结果，返回保存的记录数.
func (c *Client) Analyze(ctx context.Context, fileID uint, userID string) (saved int, err error) {
	ctx, span := tracing.StartSpan(ctx, "scoring.Analyze", tracing.WithFileID(fileID))
	defer func() { tracing.EndSpan(span, err) }()
	defer metrics.ObserveStage(metrics.StageScoring, time.Now())

	rep := notify.NewReporter(c.notifier, userID, fileID, "")
	rep.Send(ctx, notify.StageScoring, "[AI] 이벤트 수집 시작")

	events, err := c.store.EventsWithItem(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}

	records := Export(events)
	if len(records) == 0 {
		rep.Send(ctx, notify.StageScoring, "[AI] 전송할 이벤트 없음")

		return 0, nil
	}

	rep.Send(ctx, notify.StageScoring, fmt.Sprintf("[AI] 이벤트 수집 완료: EPC %d개", len(records)))

	known := make(map[uint]struct{}, len(events))
	for i := range events {
		known[events[i].ID] = struct{}{}
	}

	total := len(records)
	size := c.cfg.BatchSize

	for start := 0; start < total; start += size {
		end := min(start+size, total)
		batchIndex := start/size + 1

		rep.SendProgress(ctx, notify.StageScoring, start*100/total,
			fmt.Sprintf("[AI] 전송: EPC %d ~ %d / %d", start+1, end, total))

		body, err := sonic.Marshal(Request{Data: records[start:end]})
		if err != nil {
			return saved, fmt.Errorf("encode scoring request: %w", err)
		}

		resp, err := c.postWithRetry(ctx, body, batchIndex)
		if err != nil {
			return saved, err
		}

		payloads, err := ParseResponse(resp)
		if err != nil {
			nlog.Component("scoring").Error().Err(err).Int("batch", batchIndex).Msg("评分响应解析失败")

			return saved, err
		}

		anomalies := toAnomalies(fileID, payloads, known)
		if err := c.store.SaveScoreAnomalies(ctx, anomalies); err != nil {
			return saved, fmt.Errorf("save score anomalies: %w", err)
		}

		saved += len(anomalies)

		rep.SendProgress(ctx, notify.StageScoring, end*100/total,
			fmt.Sprintf("[AI] 수신/저장: %d건 (누적 %d)", len(anomalies), saved))

		if end < total {
			if err := c.sleep(ctx, c.cfg.GetBatchDelay()); err != nil {
				return saved, err
			}
		}
	}

	rep.SendProgress(ctx, notify.StageScoring, 100, fmt.Sprintf("[AI] 전체 처리 완료: 총 저장 %d건", saved))

	return saved, nil
}

// toAnomalies 转换响应，跳过空事件 id、空分数以及不属于该文件的事件.
func toAnomalies(fileID uint, payloads []ImportPayload, known map[uint]struct{}) []model.ScoreAnomaly {
	now := time.Now()

	var out []model.ScoreAnomaly

	for _, p := range payloads {
		for _, a := range p.EventHistory {
			if a.EventID == nil || a.AnomalyScore == nil {
				continue
			}

			id := uint(*a.EventID)
			if _, ok := known[id]; !ok {
				continue
			}

			out = append(out, model.ScoreAnomaly{FileID: fileID, EventID: id, Score: *a.AnomalyScore, AnalyzedAt: now})
		}
	}

	return out
}

// postWithRetry 最多尝试 retry_max_attempts+1 次，两次尝试之间固定等待 retry_delay.
func (c *Client) postWithRetry(ctx context.Context, body []byte, batchIndex int) ([]byte, error) {
	log := nlog.Component("scoring")
	attempts := c.cfg.RetryMaxAttempts + 1

	var last error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.attempt(ctx, body)
		if err == nil {
			metrics.ScoringRequests.WithLabelValues(OutcomeSuccess).Inc()

			return resp, nil
		}

		last = err

		log.Warn().Err(err).Int("batch", batchIndex).Int("attempt", attempt).Int("max", attempts).Msg("[AI] 전송 실패")

		if ctx.Err() != nil || attempt == attempts {
			break
		}

		metrics.ScoringRequests.WithLabelValues(OutcomeRetry).Inc()

		if err := c.sleep(ctx, c.cfg.GetRetryDelay()); err != nil {
			last = err

			break
		}
	}

	metrics.ScoringRequests.WithLabelValues(OutcomeFailure).Inc()

	return nil, fmt.Errorf("%w: batch %d: %w", errs.ErrTransport, batchIndex, last)
}

func (c *Client) attempt(ctx context.Context, body []byte) ([]byte, error) {
	if c.breaker == nil {
		return c.post(ctx, body)
	}

	out, err := c.breaker.Execute(func() (any, error) { return c.post(ctx, body) })
	if err != nil {
		return nil, err
	}

	return out.([]byte), nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}

		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

// StatusError 非 2xx 响应.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scoring service returned %d: %s", e.Code, e.Body)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsStatus 判断错误链中是否包含指定状态码.
func IsStatus(err error, code int) bool {
	var se *StatusError

	return errors.As(err, &se) && se.Code == code
}
