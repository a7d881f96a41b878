package sqlguard

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/schema"
)

// MaxRepairDistance is the largest edit distance at which a token is rewritten.
const MaxRepairDistance = 2

var airlineAliasPattern = regexp.MustCompile(`(?i)\baires\.`)

// Keywords, built-in functions and type names that are never rewritten.
var reservedWords = toSet(
	"select", "from", "where", "group", "by", "order", "limit", "offset", "having", "join", "on", "using",
	"as", "and", "or", "not", "in", "is", "null", "desc", "asc", "distinct", "all", "any", "some",
	"case", "when", "then", "else", "end", "like", "ilike", "between", "exists", "with", "union",
	"intersect", "except", "inner", "left", "right", "full", "outer", "cross", "natural", "true", "false",
	"interval", "cast", "try_cast", "over", "partition", "rows", "range", "preceding", "following",
	"unbounded", "current", "row", "filter", "within", "nulls", "first", "last", "qualify", "lateral",
	"count", "sum", "avg", "min", "max", "median", "mode", "stddev", "variance", "round", "floor", "ceil",
	"abs", "coalesce", "nullif", "greatest", "least", "lower", "upper", "trim", "length", "concat",
	"substring", "replace", "strftime", "strptime", "extract", "date_part", "date_trunc", "date_diff",
	"datediff", "date_add", "date_sub", "now", "current_date", "current_timestamp", "epoch", "century",
	"year", "quarter", "month", "week", "day", "dayofweek", "dayofmonth", "dayofyear", "hour", "minute",
	"second", "millisecond", "dow", "doy", "string_agg", "list", "array_agg", "row_number", "rank",
	"dense_rank", "ntile", "lag", "lead", "percentile_cont", "percentile_disc", "approx_count_distinct",
	"bigint", "integer", "int", "smallint", "tinyint", "hugeint", "varchar", "text", "date", "time",
	"timestamp", "double", "float", "real", "decimal", "numeric", "boolean", "bool",
	"insert", "into", "values", "update", "set", "delete", "drop", "create", "alter", "table",
	"truncate", "merge", "copy", "attach", "detach", "pragma", "grant", "revoke", "install", "load",
)

type Rewrite struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Distance int    `json:"distance"`
}

// RepairReport describes what Repair changed.
type RepairReport struct {
	Statement string
	Rewrites  []Rewrite
}

// Repairer fixes near-miss table and column names against a fixed schema.
type Repairer struct {
	known       map[string]struct{}
	identifiers []string
}

func NewRepairer(info schema.Info) *Repairer {
	identifiers := info.Identifiers()
	return &Repairer{known: toSet(identifiers...), identifiers: identifiers}
}

// Repair returns the statement with near-miss identifiers replaced. It never rejects input.
func (r *Repairer) Repair(statement string) string {
	return r.RepairWithReport(statement).Statement
}

func (r *Repairer) RepairWithReport(statement string) RepairReport {
	statement = airlineAliasPattern.ReplaceAllString(statement, schema.AirlinesTable+".")
	tokens := tokenize(statement)
	aliases := declaredAliases(tokens)

	var out strings.Builder
	out.Grow(len(statement))
	report := RepairReport{}
	for i, tok := range tokens {
		if tok.kind != tokenWord || r.skip(tokens, i, aliases) {
			out.WriteString(tok.text)
			continue
		}
		best, distance := r.nearest(tok.text)
		if best == "" || distance > MaxRepairDistance {
			out.WriteString(tok.text)
			continue
		}
		report.Rewrites = append(report.Rewrites, Rewrite{From: tok.text, To: best, Distance: distance})
		out.WriteString(best)
	}
	report.Statement = out.String()
	return report
}

func (r *Repairer) skip(tokens []token, i int, aliases map[string]struct{}) bool {
	word := tokens[i].text
	if _, ok := r.known[word]; ok {
		return true
	}
	lower := strings.ToLower(word)
	if _, ok := reservedWords[lower]; ok {
		return true
	}
	if _, ok := aliases[lower]; ok {
		return true
	}
	return nextNonSpace(tokens, i) == "("
}

// nearest scans identifiers in sorted order; the first strictly smaller distance wins ties.
func (r *Repairer) nearest(word string) (string, int) {
	best, bestDistance := "", -1
	for _, candidate := range r.identifiers {
		d := fuzzy.LevenshteinDistance(word, candidate)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best, bestDistance
}

type tokenKind int

const (
	tokenOther tokenKind = iota
	tokenWord
	tokenQuoted
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a statement into words, quoted sections (literals and comments) and everything else.
// Concatenating the token texts reproduces the input exactly.
func tokenize(statement string) []token {
	tokens := make([]token, 0, len(statement)/4)
	flushOther := func(start, end int) {
		if end > start {
			tokens = append(tokens, token{kind: tokenOther, text: statement[start:end]})
		}
	}
	otherStart := 0
	for i := 0; i < len(statement); {
		if end := skipEnd(statement, i); end > i {
			flushOther(otherStart, i)
			tokens = append(tokens, token{kind: tokenQuoted, text: statement[i:end]})
			i, otherStart = end, end
			continue
		}
		c := statement[i]
		if !isIdentByte(c) {
			i++
			continue
		}
		flushOther(otherStart, i)
		end := i
		for end < len(statement) && isIdentByte(statement[end]) {
			end++
		}
		kind := tokenWord
		if !isIdentStart(c) {
			kind = tokenOther
		}
		tokens = append(tokens, token{kind: kind, text: statement[i:end]})
		i, otherStart = end, end
	}
	flushOther(otherStart, len(statement))
	return tokens
}

// declaredAliases collects names introduced with AS so later references to them stay intact.
func declaredAliases(tokens []token) map[string]struct{} {
	aliases := map[string]struct{}{}
	for i, tok := range tokens {
		if tok.kind != tokenWord || !strings.EqualFold(tok.text, "as") {
			continue
		}
		for j := i + 1; j < len(tokens); j++ {
			if tokens[j].kind == tokenOther && strings.TrimSpace(tokens[j].text) == "" {
				continue
			}
			if tokens[j].kind == tokenWord {
				lower := strings.ToLower(tokens[j].text)
				if _, reserved := reservedWords[lower]; !reserved {
					aliases[lower] = struct{}{}
				}
			}
			break
		}
	}
	return aliases
}

func nextNonSpace(tokens []token, i int) string {
	for j := i + 1; j < len(tokens); j++ {
		trimmed := strings.TrimSpace(tokens[j].text)
		if trimmed == "" {
			continue
		}
		return trimmed[:1]
	}
	return ""
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
