package evaluationobs

import (
	"context"

	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/simaogato/wealthflow-calculator/internal/trace"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/evaluation"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// observableEvaluator wraps an Evaluator with tracing
type observableEvaluator struct {
	evaluator evaluation.Evaluator
}

// Compile-time interface check
var _ evaluation.Evaluator = (*observableEvaluator)(nil)

// Wrap wraps an evaluator with observability middleware
func Wrap(evaluator evaluation.Evaluator) evaluation.Evaluator {
	return &observableEvaluator{evaluator: evaluator}
}

func (o *observableEvaluator) EvaluateRegular(ctx context.Context, req evaluation.Request) (*evaluation.Result, error) {
	ctx, span := trace.StartSpan(ctx, "evaluation.Regular", requestAttributes(req)...)
	defer span.End()

	result, err := o.evaluator.EvaluateRegular(ctx, req)
	record(span, result, err)
	return result, err
}

func (o *observableEvaluator) EvaluateForce(ctx context.Context, req evaluation.Request) (*evaluation.Result, error) {
	ctx, span := trace.StartSpan(ctx, "evaluation.Force", requestAttributes(req)...)
	defer span.End()

	result, err := o.evaluator.EvaluateForce(ctx, req)
	record(span, result, err)
	return result, err
}

func (o *observableEvaluator) EvaluateRevision(ctx context.Context, portfolioID int64) (*evaluation.Result, error) {
	ctx, span := trace.StartSpan(ctx, "evaluation.Revision", attribute.Int64("portfolio_id", portfolioID))
	defer span.End()

	result, err := o.evaluator.EvaluateRevision(ctx, portfolioID)
	record(span, result, err)
	return result, err
}

func requestAttributes(req evaluation.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("portfolio_id", req.PortfolioID),
		attribute.String("start_date", req.StartDate.Format(domain.DateLayout)),
		attribute.String("end_date", req.EndDate.Format(domain.DateLayout)),
	}
}

func record(span oteltrace.Span, result *evaluation.Result, err error) {
	if err != nil {
		trace.RecordError(span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("target_days", result.TargetDays),
		attribute.Int("created", result.Created),
		attribute.Int("deleted", result.Deleted),
		attribute.Int("updated", result.Updated),
		attribute.Int("skipped", result.Skipped),
	)
}
