package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb/v2"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/query"
)

// ConnProvider hands out a connection scoped to one execution.
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

type Engine struct {
	Conns ConnProvider
}

func NewEngine(conns ConnProvider) *Engine {
	return &Engine{Conns: conns}
}

// Execute runs one statement on its own connection. Rows and connection are released on every path.
// Backend failures are reported as *query.ExecutionError; acquisition failures are returned as is.
func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	if e.Conns == nil {
		return query.Result{}, fmt.Errorf("connection provider is required")
	}
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, &query.ExecutionError{Message: "sql is required", Statement: request.SQL}
	}

	start := time.Now()
	conn, err := e.Conns.Conn(ctx)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = conn.Close() }()

	if err := checkStatement(conn, sqlText); err != nil {
		return query.Result{}, refusal(err, request.SQL)
	}

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, executionError(err, request.SQL)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, executionError(err, request.SQL)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, executionError(err, request.SQL)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, executionError(err, request.SQL)
	}

	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// checkStatement prepares the text without running it. The driver refuses to prepare more than
// one statement here, and the prepared statement must be a SELECT.
func checkStatement(conn *sql.Conn, sqlText string) error {
	return conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(*goduckdb.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		prepared, err := dc.Prepare(sqlText)
		if err != nil {
			if strings.Contains(err.Error(), "multi-statement") {
				return query.ErrMultipleStatements
			}
			return err
		}
		stmt, ok := prepared.(*goduckdb.Stmt)
		if !ok {
			_ = prepared.Close()
			return fmt.Errorf("unexpected prepared statement %T", prepared)
		}
		defer func() { _ = stmt.Close() }()
		kind, err := stmt.StatementType()
		if err != nil {
			return err
		}
		if kind != goduckdb.STATEMENT_TYPE_SELECT {
			return query.ErrNotReadOnly
		}
		return nil
	})
}

func refusal(err error, statement string) error {
	if errors.Is(err, query.ErrMultipleStatements) || errors.Is(err, query.ErrNotReadOnly) {
		return &query.ExecutionError{Message: err.Error(), Statement: statement, Err: err}
	}
	return executionError(err, statement)
}

func executionError(err error, statement string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("execute statement: %w", err)
	}
	return &query.ExecutionError{Message: err.Error(), Statement: statement}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case goduckdb.Decimal:
			normalized[i] = decimalValue(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// maxExactMantissa is the largest unscaled decimal that survives a trip through float64.
var maxExactMantissa = big.NewInt(1 << 53)

// decimalValue returns a float64 when the digits fit a float64 mantissa and the exact
// decimal text otherwise.
func decimalValue(d goduckdb.Decimal) any {
	if d.Value == nil {
		return nil
	}
	if new(big.Int).Abs(d.Value).Cmp(maxExactMantissa) > 0 {
		return d.String()
	}
	denominator := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil)
	f, _ := new(big.Rat).SetFrac(d.Value, denominator).Float64()
	return f
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
