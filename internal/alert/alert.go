package alert

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/shop-engine/pkg/logger"
)

// 审计/告警事件名
const (
	EventCouponApplied       = "COUPON_APPLIED"
	EventCouponRestored      = "COUPON_RESTORED"
	EventCouponOverLimit     = "COUPON_OVER_LIMIT_AFTER_INCREMENT"
	EventStockBelowThreshold = "STOCK_BELOW_THRESHOLD"
)

// Sink 接收引擎的结构化审计事件
// 实现必须 fire-and-forget：不得阻塞调用方，更不得使业务事务失败
type Sink interface {
	Emit(event string, fields map[string]interface{})
}

// LogSink 落 zap 日志的默认实现
type LogSink struct{}

func (LogSink) Emit(event string, fields map[string]interface{}) {
	zfields := make([]zap.Field, 0, len(fields)+1)
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	if event == EventCouponOverLimit {
		logger.Error("audit event", append(zfields, zap.String("event", event))...)
		return
	}
	logger.Info("audit event", append(zfields, zap.String("event", event))...)
}

// SentrySink 在日志之外把一致性违规上报 Sentry，运维侧可配告警
type SentrySink struct {
	next Sink
}

// NewSentrySink 初始化 Sentry；dsn 为空时退化为纯日志
func NewSentrySink(dsn string) (Sink, error) {
	if dsn == "" {
		return LogSink{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		return nil, err
	}
	return &SentrySink{next: LogSink{}}, nil
}

func (s *SentrySink) Emit(event string, fields map[string]interface{}) {
	s.next.Emit(event, fields)
	if event != EventCouponOverLimit {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		for k, v := range fields {
			scope.SetExtra(k, v)
		}
		sentry.CaptureMessage(fmt.Sprintf("consistency violation: %s", event))
	})
}
