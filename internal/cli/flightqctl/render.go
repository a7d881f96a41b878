package flightqctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

type answerBody struct {
	Kind string          `json:"kind"`
	Text string          `json:"text"`
	Rows json.RawMessage `json:"rows"`
}

func (c client) printAnswer(body []byte) error {
	var answer answerBody
	if err := json.Unmarshal(body, &answer); err != nil {
		return &requestError{fmt.Errorf("decode answer: %w", err)}
	}
	if answer.Kind != "table" {
		_, _ = fmt.Fprintln(c.stdout, answer.Text)
		return nil
	}
	columns, rows, err := orderedRows(answer.Rows)
	if err != nil {
		return &requestError{fmt.Errorf("decode answer rows: %w", err)}
	}
	renderTable(c.stdout, columns, rows)
	_, _ = fmt.Fprintf(c.stdout, "(%d rows)\n", len(rows))
	return nil
}

// orderedRows decodes a JSON array of objects keeping the key order of the first object.
func orderedRows(raw json.RawMessage) ([]string, [][]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return nil, nil, err
	}

	var columns []string
	var rows [][]string
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, nil, err
		}
		var keys, values []string
		for dec.More() {
			token, err := dec.Token()
			if err != nil {
				return nil, nil, err
			}
			key, ok := token.(string)
			if !ok {
				return nil, nil, fmt.Errorf("expected object key, got %v", token)
			}
			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, nil, err
			}
			keys = append(keys, key)
			values = append(values, formatCell(value))
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, nil, err
		}
		if columns == nil {
			columns = keys
		}
		rows = append(rows, values)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, nil, err
	}
	return columns, rows, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	token, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, token)
	}
	return nil
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	}
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
}

type translationBody struct {
	Statement         string `json:"statement"`
	RepairedStatement string `json:"repaired_statement"`
	Safe              bool   `json:"safe"`
	Model             string `json:"model"`
	Rewrites          []struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Distance int    `json:"distance"`
	} `json:"rewrites"`
}

func (c client) printTranslation(body []byte) error {
	var translation translationBody
	if err := json.Unmarshal(body, &translation); err != nil {
		return &requestError{fmt.Errorf("decode translation: %w", err)}
	}
	_, _ = fmt.Fprintln(c.stdout, translation.RepairedStatement)
	if !translation.Safe {
		_, _ = fmt.Fprintln(c.stdout, "-- rejected: not a SELECT statement")
	}
	if len(translation.Rewrites) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(c.stdout)
	rows := make([][]string, 0, len(translation.Rewrites))
	for _, rewrite := range translation.Rewrites {
		rows = append(rows, []string{rewrite.From, rewrite.To, strconv.Itoa(rewrite.Distance)})
	}
	renderTable(c.stdout, []string{"from", "to", "distance"}, rows)
	return nil
}

type schemaBody struct {
	Tables []struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
	} `json:"tables"`
}

func (c client) printSchema(body []byte) error {
	var info schemaBody
	if err := json.Unmarshal(body, &info); err != nil {
		return &requestError{fmt.Errorf("decode schema: %w", err)}
	}
	for _, table := range info.Tables {
		_, _ = fmt.Fprintf(c.stdout, "%s(%s)\n", table.Name, strings.Join(table.Columns, ", "))
	}
	return nil
}

type historyBody struct {
	Entries []struct {
		ID         int64     `json:"id"`
		Question   string    `json:"question"`
		Outcome    string    `json:"outcome"`
		RowCount   int       `json:"row_count"`
		DurationMs int64     `json:"duration_ms"`
		CreatedAt  time.Time `json:"created_at"`
	} `json:"entries"`
}

func (c client) printHistory(body []byte) error {
	var history historyBody
	if err := json.Unmarshal(body, &history); err != nil {
		return &requestError{fmt.Errorf("decode history: %w", err)}
	}
	rows := make([][]string, 0, len(history.Entries))
	for _, entry := range history.Entries {
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			entry.CreatedAt.Local().Format(time.DateTime),
			entry.Outcome,
			strconv.Itoa(entry.RowCount),
			strconv.FormatInt(entry.DurationMs, 10) + "ms",
			entry.Question,
		})
	}
	renderTable(c.stdout, []string{"id", "created", "outcome", "rows", "took", "question"}, rows)
	return nil
}
