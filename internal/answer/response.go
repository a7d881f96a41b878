package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindMessage Kind = "message"
	KindTable   Kind = "table"
)

// Row is one result row. It marshals to a JSON object whose keys follow Columns order.
type Row struct {
	Columns []string
	Values  []any
}

func (r Row) Get(column string) (any, bool) {
	for i, name := range r.Columns {
		if name == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	if len(r.Columns) != len(r.Values) {
		return nil, fmt.Errorf("row has %d columns but %d values", len(r.Columns), len(r.Values))
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", column, err)
		}
		value, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("marshal value of %q: %w", column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Response is either a message or a non-empty table.
type Response struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
	Rows []Row  `json:"rows,omitempty"`
}

func Message(text string) Response {
	return Response{Kind: KindMessage, Text: text}
}

func Table(rows []Row) Response {
	return Response{Kind: KindTable, Rows: rows}
}

func (r Response) IsTable() bool {
	return r.Kind == KindTable
}

// LegacyResponse is the {type, data} envelope the browser frontend reads from /api/query.
type LegacyResponse struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (r Response) Legacy() LegacyResponse {
	if r.Kind == KindTable {
		return LegacyResponse{Type: "table", Data: r.Rows}
	}
	return LegacyResponse{Type: "string", Data: r.Text}
}
