package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/blobdrive/pkg/internal/vfs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/metrics"
	"github.com/yeisme/blobdrive/pkg/queue"
	"github.com/yeisme/blobdrive/pkg/tracing"
)

const producer = "blobdrive"

// Outcome 将错误归类为指标标签.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, vfs.ErrNotFound):
		return "not_found"
	case errors.Is(err, vfs.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, vfs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, vfs.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, vfs.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	case errors.Is(err, vfs.ErrConfiguration):
		return "configuration"
	default:
		return "error"
	}
}

// track 为一次操作开启 span，返回的函数在结束时记录耗时与结果.
//
//	ctx, done := track(ctx, "upload", identity)
//	defer done(&err)
func track(ctx context.Context, op, identity string) (context.Context, func(*error)) {
	start := time.Now()

	ctx, span := tracing.StartSpan(ctx, "service."+op,
		trace.WithAttributes(attribute.String("blobdrive.identity", identity)),
	)

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}

		tracing.RecordError(span, err)
		metrics.ObserveOperation(op, Outcome(err), time.Since(start))
		span.End()
	}
}

func (rt *Runtime) eventsEnabled() bool {
	return rt.Config.Events.Enabled && rt.Storage.MQ != nil
}

func eventOptions(ctx context.Context) []func(*queue.EventHeader) {
	opts := []func(*queue.EventHeader){queue.WithProducer(producer)}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	return opts
}

// publishObject 发布对象事件. 发布失败只记录日志，不影响操作结果.
func (rt *Runtime) publishObject(ctx context.Context, topic string, payload queue.ObjectEventPayload) {
	if !rt.eventsEnabled() {
		return
	}

	if err := queue.PublishObjectEvent(rt.Storage.MQ.Publisher(), topic, payload, eventOptions(ctx)...); err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("publish object event failed")
	}
}

func (rt *Runtime) publishShare(ctx context.Context, topic string, payload queue.ShareEventPayload) {
	if !rt.eventsEnabled() {
		return
	}

	if err := queue.PublishShareEvent(rt.Storage.MQ.Publisher(), topic, payload, eventOptions(ctx)...); err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("publish share event failed")
	}
}

func objectRef(ns *vfs.Namespace, it vfs.Item) queue.ObjectRef {
	return queue.ObjectRef{
		Container:   ns.Container(),
		ObjectKey:   it.ID,
		Name:        it.Name,
		Size:        it.Size,
		ContentType: it.ContentType,
		Tags:        it.Tags,
	}
}
