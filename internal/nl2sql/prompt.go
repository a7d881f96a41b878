package nl2sql

import (
	"strings"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/schema"
)

const fewShotExamples = `Examples:
  -- Count per travel class:
  SELECT class, COUNT(*) AS num_bookings
    FROM bookings
   GROUP BY class
   ORDER BY num_bookings DESC;

  -- Bookings for one airline:
  SELECT airlines.airline_name, COUNT(*) AS total_bookings
    FROM bookings
    JOIN airlines ON bookings.airlie_id = airlines.airlie_id
   WHERE LOWER(airlines.airline_name) = LOWER('American Airlines')
   GROUP BY airlines.airline_name;

  -- Month with highest bookings in 2023:
  SELECT EXTRACT(MONTH FROM departure_dt) AS month, COUNT(*) AS total_bookings
    FROM bookings
   WHERE departure_dt >= '2023-01-01'
     AND departure_dt <  '2024-01-01'
   GROUP BY EXTRACT(MONTH FROM departure_dt)
   ORDER BY total_bookings DESC
   LIMIT 1;

  -- Count of bookings by terminal:
  SELECT terminal, COUNT(*) AS num_bookings
    FROM bookings
   GROUP BY terminal
   ORDER BY num_bookings DESC;

  -- Top 10 flights by number of bookings:
  SELECT flght, COUNT(*) AS num_bookings
    FROM bookings
   GROUP BY flght
   ORDER BY num_bookings DESC
   LIMIT 10;`

// BuildPrompt renders the schema, the naming rule, the examples and the quoted question.
// Double quotes in the question are escaped so it cannot close the """ block.
func BuildPrompt(question string, info schema.Info) string {
	var b strings.Builder
	b.WriteString("You are a DuckDB SQL expert. Schema:\n\n")
	for _, table := range []string{schema.AirlinesTable, schema.BookingsTable} {
		b.WriteString("  ")
		b.WriteString(table)
		b.WriteString("(")
		b.WriteString(strings.Join(info.Columns(table), ", "))
		b.WriteString(")\n")
	}
	b.WriteString("\nNo aliases: refer to the tables only as \"airlines\" and \"bookings\".\n\n")
	b.WriteString(fewShotExamples)
	b.WriteString("\n\nWrite exactly one valid SELECT to answer:\n\n\"\"\"")
	b.WriteString(strings.ReplaceAll(question, `"`, `\"`))
	b.WriteString("\"\"\"")
	return b.String()
}
