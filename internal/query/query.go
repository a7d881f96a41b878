package query

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMultipleStatements = errors.New("only one statement can be executed at a time")
	ErrNotReadOnly        = errors.New("only SELECT statements can be executed")
)

type Request struct {
	SQL string
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// ExecutionError carries the backend message for a statement the store refused or failed to run.
// Err is set when the refusal came from the engine rather than the backend.
type ExecutionError struct {
	Message   string
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute statement: %s", e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
