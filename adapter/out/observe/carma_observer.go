// Package observe forwards core events to the structured logger.
package observe

import (
	"context"

	"carma_server/core/port/out"
	"carma_server/pkg/logger"
)

type LogObserver struct {
	log *logger.Logger
}

var _ out.Observer = (*LogObserver)(nil)

func NewLogObserver(log *logger.Logger) *LogObserver {
	if log == nil {
		log = logger.Default()
	}
	return &LogObserver{log: log}
}

func (o *LogObserver) Emit(ctx context.Context, ev out.Event) {
	l := o.log.WithContext(ctx).
		WithField("event", ev.Name).
		WithFields(ev.Fields).
		WithError(ev.Err)

	switch ev.Severity {
	case out.SeverityDebug:
		l.Debug("%s", ev.Message)
	case out.SeverityWarn:
		l.Warn("%s", ev.Message)
	case out.SeverityError:
		l.Error("%s", ev.Message)
	default:
		l.Info("%s", ev.Message)
	}
}
