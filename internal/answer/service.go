// Package answer runs the question pipeline: prompt, completion, extraction, repair, gating,
// execution and normalization.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/nl2sql"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/observability"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/query"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/schema"
	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/sqlguard"
)

var ErrInvalidInput = errors.New("invalid question")

const (
	MaxQuestionLength = 500
	recordTimeout     = 2 * time.Second
)

type Stage string

const (
	StageBuildingPrompt     Stage = "building_prompt"
	StageAwaitingCompletion Stage = "awaiting_completion"
	StageExtracting         Stage = "extracting"
	StageRepairing          Stage = "repairing"
	StageGating             Stage = "gating"
	StageExecuting          Stage = "executing"
	StageNormalizing        Stage = "normalizing"
	StageDone               Stage = "done"
	StageFailed             Stage = "failed"
)

// Outcomes stored in the answer log and used as the metrics label.
const (
	OutcomeTable          = "table"
	OutcomeEmpty          = "empty"
	OutcomeRejected       = "rejected"
	OutcomeExecutionError = "execution_error"
	OutcomeFailed         = "failed"
)

// SchemaSource loads the store on first use and returns its schema.
type SchemaSource interface {
	Initialize(ctx context.Context) (schema.Info, error)
}

type Config struct {
	Schemas   SchemaSource
	Completer nl2sql.Completer
	Engine    query.Engine
	Recorder  querylog.Recorder
	Logger    *slog.Logger
	ModelName string
}

type Service struct {
	schemas   SchemaSource
	completer nl2sql.Completer
	engine    query.Engine
	recorder  querylog.Recorder
	logger    *slog.Logger
	model     string
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Schemas == nil {
		return nil, errors.New("schema source is required")
	}
	if cfg.Completer == nil {
		return nil, errors.New("completer is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("query engine is required")
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = querylog.Nop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		schemas:   cfg.Schemas,
		completer: cfg.Completer,
		engine:    cfg.Engine,
		recorder:  recorder,
		logger:    logger,
		model:     cfg.ModelName,
	}, nil
}

// Translation is the pipeline output up to the safety gate.
type Translation struct {
	RawOutput         string
	Statement         string
	RepairedStatement string
	Rewrites          []sqlguard.Rewrite
	Safe              bool
	Model             string
}

// run tracks one question through the stages.
type run struct {
	question  string
	stage     Stage
	statement string
	rewrites  int
}

func (r *run) enter(stage Stage) {
	r.stage = stage
}

// Answer runs the whole pipeline. Gate and execution failures are returned as message responses;
// infrastructure failures are returned as errors.
func (s *Service) Answer(ctx context.Context, question string) (Response, error) {
	question, err := ValidateQuestion(question)
	if err != nil {
		return Response{}, err
	}

	started := time.Now()
	state := &run{question: question, stage: StageBuildingPrompt}
	response, outcome, rowCount, err := s.answer(ctx, state)
	s.finish(ctx, state, outcome, rowCount, err, time.Since(started))
	if err != nil {
		return Response{}, err
	}
	return response, nil
}

func (s *Service) answer(ctx context.Context, state *run) (Response, string, int, error) {
	translation, err := s.translate(ctx, state)
	if err != nil {
		return Response{}, OutcomeFailed, 0, err
	}
	if !translation.Safe {
		return Message(fmt.Sprintf("Expected a SELECT statement but got:\n%s", translation.RepairedStatement)), OutcomeRejected, 0, nil
	}

	state.enter(StageExecuting)
	result, err := s.engine.Execute(ctx, query.Request{SQL: translation.RepairedStatement})
	if err != nil {
		var execErr *query.ExecutionError
		if errors.As(err, &execErr) {
			text := fmt.Sprintf("SQL execution error:\n%s\n\nSQL was:\n%s", execErr.Message, translation.RepairedStatement)
			return Message(text), OutcomeExecutionError, 0, nil
		}
		return Response{}, OutcomeFailed, 0, fmt.Errorf("execute statement: %w", err)
	}
	observability.ObserveQuery(result.Duration)

	state.enter(StageNormalizing)
	response := Normalize(state.question, translation.RepairedStatement, result)
	state.enter(StageDone)
	if !response.IsTable() {
		return response, OutcomeEmpty, 0, nil
	}
	return response, OutcomeTable, len(response.Rows), nil
}

// Translate runs the pipeline through the safety gate without executing anything.
func (s *Service) Translate(ctx context.Context, question string) (Translation, error) {
	question, err := ValidateQuestion(question)
	if err != nil {
		return Translation{}, err
	}
	state := &run{question: question, stage: StageBuildingPrompt}
	translation, err := s.translate(ctx, state)
	if err != nil {
		observability.ObserveStageFailure(string(state.stage))
		return Translation{}, err
	}
	return translation, nil
}

func (s *Service) translate(ctx context.Context, state *run) (Translation, error) {
	info, err := s.schemas.Initialize(ctx)
	if err != nil {
		return Translation{}, fmt.Errorf("load schema: %w", err)
	}
	prompt := nl2sql.BuildPrompt(state.question, info)

	state.enter(StageAwaitingCompletion)
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return Translation{}, fmt.Errorf("complete prompt: %w", err)
	}

	state.enter(StageExtracting)
	statement := sqlguard.ExtractStatement(raw)
	state.statement = statement

	state.enter(StageRepairing)
	report := sqlguard.NewRepairer(info).RepairWithReport(statement)
	state.statement = report.Statement
	state.rewrites = len(report.Rewrites)
	observability.ObserveIdentifierRewrites(len(report.Rewrites))
	if len(report.Rewrites) > 0 {
		s.logger.DebugContext(ctx, "repaired statement identifiers",
			"trace_id", observability.TraceIDFromContext(ctx),
			"before", statement,
			"after", report.Statement,
			"rewrites", len(report.Rewrites),
		)
	}

	state.enter(StageGating)
	translation := Translation{
		RawOutput:         raw,
		Statement:         statement,
		RepairedStatement: report.Statement,
		Rewrites:          report.Rewrites,
		Safe:              true,
		Model:             s.model,
	}
	var unsafe *sqlguard.UnsafeStatementError
	if err := sqlguard.AssertSafe(report.Statement); err != nil {
		if !errors.As(err, &unsafe) {
			return Translation{}, err
		}
		translation.Safe = false
	}
	return translation, nil
}

func (s *Service) finish(ctx context.Context, state *run, outcome string, rowCount int, err error, elapsed time.Duration) {
	stage := state.stage
	errorText := ""
	level := slog.LevelInfo
	if err != nil {
		observability.ObserveStageFailure(string(stage))
		errorText = err.Error()
		level = slog.LevelWarn
	}
	observability.ObserveAnswer(outcome)

	s.logger.Log(ctx, level, "answered question",
		"trace_id", observability.TraceIDFromContext(ctx),
		"stage", string(stage),
		"outcome", outcome,
		"question", state.question,
		"statement", state.statement,
		"rows", rowCount,
		"rewrites", state.rewrites,
		"duration_ms", elapsed.Milliseconds(),
		"error", errorText,
	)

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	entry := querylog.Entry{
		Question:   state.question,
		Statement:  state.statement,
		Outcome:    outcome,
		Stage:      string(stage),
		RowCount:   rowCount,
		ErrorText:  errorText,
		DurationMs: elapsed.Milliseconds(),
	}
	if recErr := s.recorder.Record(recordCtx, entry); recErr != nil {
		s.logger.WarnContext(ctx, "record answer failed",
			"trace_id", observability.TraceIDFromContext(ctx),
			"error", recErr.Error(),
		)
	}
}

// ValidateQuestion trims the question and rejects empty or overlong input.
func ValidateQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", fmt.Errorf("%w: question must be a non-empty string", ErrInvalidInput)
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return "", fmt.Errorf("%w: question too long (max %d chars)", ErrInvalidInput, MaxQuestionLength)
	}
	return trimmed, nil
}
