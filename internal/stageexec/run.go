package stageexec

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"harvest/internal/logging"
	"harvest/internal/services"
)

// Options controls how a single pipeline stage is executed for one item.
type Options struct {
	Logger    *slog.Logger
	StageName string
	// ErrorHint is logged with failures to suggest a next step.
	ErrorHint string
}

// Run executes fn as the named stage, logging its start, completion, and
// failure with the item's context fields. The outcome and error of fn are
// returned unchanged. Cancellation is logged at debug level only.
func Run[T ~string](ctx context.Context, opts Options, fn func(context.Context) (T, error)) (T, error) {
	stageCtx := services.WithStage(ctx, opts.StageName)
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	stageLogger := logging.WithContext(stageCtx, logger)

	stageLogger.Debug(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)

	started := time.Now()
	outcome, err := fn(stageCtx)
	elapsed := time.Since(started)

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			stageLogger.Debug("stage interrupted",
				logging.String(logging.FieldEventType, "stage_cancelled"),
				logging.Duration("duration", elapsed),
			)
			return outcome, err
		}
		handleFailure(stageLogger, opts, outcome, elapsed, err)
		return outcome, err
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldOutcome, string(outcome)),
		logging.Duration("duration", elapsed),
	)
	return outcome, nil
}

func handleFailure[T ~string](logger *slog.Logger, opts Options, outcome T, elapsed time.Duration, stageErr error) {
	details := services.ErrorDetails(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_message", message),
		logging.Duration("duration", elapsed),
		logging.Error(stageErr),
	}
	if outcome != "" {
		attrs = append(attrs, logging.String(logging.FieldOutcome, string(outcome)))
	}
	if details.Excerpt != "" {
		attrs = append(attrs, logging.String(logging.FieldDiagnostics, details.Excerpt))
	}
	if hint := strings.TrimSpace(opts.ErrorHint); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logger.Error("stage failed", logging.Args(attrs...)...)
}
