package aspects

import (
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/aspect"
)

// Logging logs every intercepted call.
type Logging struct {
	logger *zap.Logger
}

// NewLogging creates the logging handler. A nil logger discards output.
func NewLogging(logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{logger: logger.Named("aspect")}
}

func (l *Logging) Order() int                        { return OrderLogging }
func (l *Logging) AppliesTo(*aspect.RootMethod) bool { return true }

func (l *Logging) Process(ctx *aspect.ExecutionContext) (any, error) {
	fields := []zap.Field{
		zap.String("method", ctx.Method().FullName()),
		zap.Stringer("invocation", ctx.ID()),
	}
	l.logger.Debug("call started", append(fields, zap.Strings("params", ctx.Parameters().Names()))...)

	start := time.Now()
	res, err := ctx.Proceed()
	fields = append(fields, zap.Duration("elapsed", time.Since(start)))

	if err != nil {
		l.logger.Warn("call failed", append(fields, zap.Error(err))...)
		return res, err
	}
	l.logger.Debug("call finished", fields...)
	return res, nil
}
