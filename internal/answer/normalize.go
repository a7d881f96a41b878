package answer

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/query"
)

// maxSafeInteger is the largest integer a float64 (and so a JSON number in a browser) holds exactly.
const maxSafeInteger = 1<<53 - 1

// Normalize turns an executed result into a Response. An empty result becomes a message naming the
// question and the statement that was tried.
func Normalize(question, statement string, result query.Result) Response {
	if len(result.Rows) == 0 {
		return Message(fmt.Sprintf("No results for \"%s\".\nSQL tried:\n%s", question, statement))
	}

	columns := uniqueColumns(result.Columns)
	rows := make([]Row, 0, len(result.Rows))
	for _, values := range result.Rows {
		normalized := make([]any, len(columns))
		for i := range columns {
			if i < len(values) {
				normalized[i] = normalizeValue(values[i])
			}
		}
		rows = append(rows, Row{Columns: columns, Values: normalized})
	}
	return Table(rows)
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case *big.Int:
		if typed == nil {
			return nil
		}
		return typed.String()
	case big.Int:
		return typed.String()
	case int64:
		if typed > maxSafeInteger || typed < -maxSafeInteger {
			return strconv.FormatInt(typed, 10)
		}
		return typed
	case int:
		if int64(typed) > maxSafeInteger || int64(typed) < -maxSafeInteger {
			return strconv.Itoa(typed)
		}
		return typed
	case uint64:
		if typed > maxSafeInteger {
			return strconv.FormatUint(typed, 10)
		}
		return typed
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return strconv.FormatFloat(typed, 'f', -1, 64)
		}
		return typed
	case float32:
		if math.IsNaN(float64(typed)) || math.IsInf(float64(typed), 0) {
			return strconv.FormatFloat(float64(typed), 'f', -1, 32)
		}
		return typed
	default:
		return typed
	}
}

// uniqueColumns keeps the first occurrence of a name and suffixes later ones with _2, _3, ...
func uniqueColumns(columns []string) []string {
	out := make([]string, len(columns))
	taken := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		taken[name] = struct{}{}
	}
	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		seen[name]++
		if seen[name] == 1 {
			out[i] = name
			continue
		}
		for n := seen[name]; ; n++ {
			candidate := name + "_" + strconv.Itoa(n)
			if _, exists := taken[candidate]; !exists {
				taken[candidate] = struct{}{}
				seen[name] = n
				out[i] = candidate
				break
			}
		}
	}
	return out
}
