package audit

import (
	"github.com/rs/zerolog"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// ZerologSink is the default diagnostic sink. It routes lines by severity.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink creates a sink writing to logger
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

// Emit writes one diagnostic line
func (z *ZerologSink) Emit(severity types.Severity, message string, fields types.Metadata) {
	var e *zerolog.Event
	switch severity {
	case types.SeverityWarning:
		e = z.logger.Warn()
	case types.SeverityError:
		e = z.logger.Error()
	default:
		e = z.logger.Info()
	}
	for _, f := range fields {
		e = e.Str(f.Key, f.Value)
	}
	e.Msg(message)
}
