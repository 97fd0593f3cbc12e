package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/warp/pkg/domain"
)

// handleFailure applies the policy of the failure's class and returns what the caller sees.
//
//   - status: recorded, logged as a warning, returned.
//   - validation: recorded, logged at info, absorbed.
//   - script: wrapped in a *domain.ScriptError carrying its source location, recorded and returned.
//   - other: logged, returned unchanged; the model is not touched.
func (p *Pipeline[In, Out, S]) handleFailure(ctx context.Context, model *domain.Model, f domain.Failure) error {
	log := p.cfg.logger.With("pipeline", p.cfg.name)

	var returned error
	recorded := f.Err
	switch f.Class {
	case domain.ClassStatus:
		code, _ := domain.Status(f.Err)
		log.WarnContext(ctx, "pipeline failed with status", "status", code, "error", f.Err)
		record(model, f.Err)
		returned = f.Err

	case domain.ClassValidation:
		log.InfoContext(ctx, "pipeline input rejected", "error", f.Err)
		record(model, f.Err)

	case domain.ClassScript:
		sf, _ := domain.AsScriptFailure(f.Err)
		wrapped := domain.NewScriptError(sf)
		attrs := []any{"error", wrapped}
		if wrapped.Location != nil {
			attrs = append(attrs, slog.Group("source",
				"position", wrapped.Location.Position,
				"snippet", wrapped.Location.Snippet,
			))
		}
		log.ErrorContext(ctx, "pipeline script failed", attrs...)
		record(model, wrapped)
		recorded = wrapped
		returned = wrapped

	default:
		log.ErrorContext(ctx, "pipeline failed", "error", f.Err)
		returned = f.Err
	}

	if p.cfg.hooks.OnFailure != nil {
		p.cfg.hooks.OnFailure(ctx, &domain.FailureEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now(),
				Type:      domain.EventFailure,
				Pipeline:  p.cfg.name,
			},
			Class:    f.Class,
			Message:  recorded.Error(),
			Absorbed: returned == nil,
		})
	}
	return returned
}

// record writes the four failure fields.
func record(model *domain.Model, err error) {
	domain.Put(model, domain.IsError, true)
	domain.Put(model, domain.ErrorMessage, err.Error())
	domain.Put(model, domain.ErrorDiagnostic, domain.Diagnose(err))
	domain.Put(model, domain.FailureValue, err)
}
