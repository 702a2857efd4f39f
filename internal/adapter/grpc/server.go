package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-calculator/internal/adapter/grpc/calculatorv1"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/evaluation"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/pricing"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/summary"
)

// JobSubmitter queues evaluations for asynchronous execution
type JobSubmitter interface {
	Submit(mode evaluation.Mode, req evaluation.Request) (uuid.UUID, error)
}

// Server implements the CalculatorService gRPC server
type Server struct {
	calculatorv1.UnimplementedCalculatorServiceServer

	Evaluator      evaluation.Evaluator
	Dispatcher     JobSubmitter
	Pricer         pricing.Pricer
	SummaryService *summary.SummaryService

	log zerolog.Logger
}

// NewServer creates a new gRPC server instance.
// dispatcher may be nil, in which case async requests are rejected.
func NewServer(
	evaluator evaluation.Evaluator,
	dispatcher JobSubmitter,
	pricer pricing.Pricer,
	summaryService *summary.SummaryService,
	log zerolog.Logger,
) *Server {
	return &Server{
		Evaluator:      evaluator,
		Dispatcher:     dispatcher,
		Pricer:         pricer,
		SummaryService: summaryService,
		log:            log.With().Str("component", "grpc").Logger(),
	}
}

// EvaluateRegular handles the EvaluateRegular RPC
func (s *Server) EvaluateRegular(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.evaluateWindow(ctx, evaluation.ModeRegular, req)
}

// EvaluateForce handles the EvaluateForce RPC
func (s *Server) EvaluateForce(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.evaluateWindow(ctx, evaluation.ModeForce, req)
}

// EvaluateRevision handles the EvaluateRevision RPC
func (s *Server) EvaluateRevision(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	portfolioID, err := f.int64("portfolio_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	if f.bool("async") {
		return s.submit(evaluation.ModeRevise, evaluation.Request{PortfolioID: portfolioID})
	}

	result, err := s.Evaluator.EvaluateRevision(ctx, portfolioID)
	if err != nil {
		return nil, s.fail("EvaluateRevision", err)
	}
	return resultResponse(result)
}

// PriceBond handles the PriceBond RPC
func (s *Server) PriceBond(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)

	bond := domain.BondTerms{
		Code:           f.optionalString("code"),
		TermEndPayment: f.bool("term_end_payment"),
	}

	frequency, err := domain.ParsePaymentFrequency(f.optionalString("frequency"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	bond.Frequency = frequency

	amounts := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"unit", &bond.Unit},
		{"coupon_rate", &bond.CouponRate},
		{"current_maturity", &bond.CurrentMaturity},
		{"current_units", &bond.CurrentUnits},
	}
	for _, a := range amounts {
		d, err := f.decimal(a.key)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
		*a.dst = d
	}

	valuation, err := s.Pricer.PriceBond(ctx, bond)
	if err != nil {
		return nil, s.fail("PriceBond", err)
	}

	return structpb.NewStruct(map[string]any{
		"code":              valuation.Code,
		"theoretical_price": valuation.TheoreticalPrice.String(),
		"position_value":    valuation.PositionValue.String(),
		"insufficient_data": valuation.InsufficientData,
	})
}

// GetPortfolioSummary handles the GetPortfolioSummary RPC
func (s *Server) GetPortfolioSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	portfolioID, err := f.int64("portfolio_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	baseDate, err := f.date("base_date")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	result, err := s.SummaryService.GetPortfolioSummary(ctx, portfolioID, baseDate)
	if err != nil {
		return nil, s.fail("GetPortfolioSummary", err)
	}

	return structpb.NewStruct(map[string]any{
		"portfolio_id":       float64(result.PortfolioID),
		"base_date":          result.BaseDate.Format(domain.DateLayout),
		"instruments":        result.Instruments,
		"locked_instruments": result.LockedInstruments,
		"book_value":         result.BookValue.String(),
		"market_value":       result.MarketValue.String(),
		"unrealized_pl":      result.UnrealizedPL.String(),
	})
}

func (s *Server) evaluateWindow(ctx context.Context, mode evaluation.Mode, req *structpb.Struct) (*structpb.Struct, error) {
	f := newFields(req)
	portfolioID, err := f.int64("portfolio_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	start, err := f.date("start_date")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	end, err := f.date("end_date")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	request := evaluation.Request{PortfolioID: portfolioID, StartDate: start, EndDate: end}

	if f.bool("async") {
		return s.submit(mode, request)
	}

	result, err := evaluation.Run(ctx, s.Evaluator, mode, request)
	if err != nil {
		return nil, s.fail("Evaluate"+modeName(mode), err)
	}
	return resultResponse(result)
}

func (s *Server) submit(mode evaluation.Mode, req evaluation.Request) (*structpb.Struct, error) {
	if s.Dispatcher == nil {
		return nil, status.Error(codes.Unimplemented, "asynchronous evaluation is not enabled")
	}
	jobID, err := s.Dispatcher.Submit(mode, req)
	if err != nil {
		return nil, s.fail("Submit", err)
	}
	return structpb.NewStruct(map[string]any{
		"job_id": jobID.String(),
		"mode":   string(mode),
		"status": "QUEUED",
	})
}

func modeName(mode evaluation.Mode) string {
	switch mode {
	case evaluation.ModeForce:
		return "Force"
	case evaluation.ModeRevise:
		return "Revision"
	default:
		return "Regular"
	}
}

func resultResponse(result *evaluation.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"mode":         string(result.Mode),
		"portfolio_id": float64(result.PortfolioID),
		"target_days":  result.TargetDays,
		"instruments":  result.Instruments,
		"created":      result.Created,
		"deleted":      result.Deleted,
		"updated":      result.Updated,
		"unlocked":     result.Unlocked,
		"skipped":      result.Skipped,
		"duration_ms":  result.Duration.Milliseconds(),
	})
}

// fail logs errors whose detail is withheld from the caller and maps err to a status
func (s *Server) fail(method string, err error) error {
	st := mapError(err)
	switch status.Code(st) {
	case codes.Internal, codes.FailedPrecondition:
		s.log.Error().Err(err).Str("method", method).Msg("Request failed")
	}
	return st
}

// mapError maps domain errors to gRPC status codes.
// Validation failures keep their message; integrity and infrastructure failures do not.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRange), errors.Is(err, domain.ErrInvalidBondTerms),
		errors.Is(err, evaluation.ErrUnknownMode):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrIntegrityViolation):
		return status.Error(codes.FailedPrecondition, "stored data failed an integrity check")
	case errors.Is(err, evaluation.ErrQueueFull):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, evaluation.ErrDispatcherClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}

	return status.Error(codes.Internal, "internal error")
}
