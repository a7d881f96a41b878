package sqlguard

import (
	"strings"
	"testing"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/schema"
)

func testInfo() schema.Info {
	return schema.Info{Tables: []schema.Table{
		{Name: "airlines", Columns: []string{"airlie_id", "airline_name"}},
		{Name: "bookings", Columns: []string{"airlie_id", "flght", "departure_dt", "arrival_dt", "class", "fare", "status", "terminal"}},
	}}
}

func TestRepairFixesNearMissColumns(t *testing.T) {
	r := NewRepairer(testInfo())
	report := r.RepairWithReport("SELECT clas, COUNT(*) AS num_bookings FROM bookings GROUP BY clas ORDER BY num_bookings DESC")

	want := "SELECT class, COUNT(*) AS num_bookings FROM bookings GROUP BY class ORDER BY num_bookings DESC"
	if report.Statement != want {
		t.Fatalf("RepairWithReport().Statement = %q, want %q", report.Statement, want)
	}
	if len(report.Rewrites) != 2 {
		t.Fatalf("Rewrites = %+v, want 2 entries", report.Rewrites)
	}
	if got := report.Rewrites[0]; got != (Rewrite{From: "clas", To: "class", Distance: 1}) {
		t.Fatalf("Rewrites[0] = %+v", got)
	}
}

func TestRepairSubstitutesAiresAlias(t *testing.T) {
	r := NewRepairer(testInfo())
	got := r.Repair("SELECT AIRES.airline_name, COUNT(*) FROM bookings JOIN airlines ON bookings.airline_id = aires.airlie_id GROUP BY aires.airline_name")

	want := "SELECT airlines.airline_name, COUNT(*) FROM bookings JOIN airlines ON bookings.airlie_id = airlines.airlie_id GROUP BY airlines.airline_name"
	if got != want {
		t.Fatalf("Repair() = %q, want %q", got, want)
	}
}

func TestRepairIsIdempotentForKnownIdentifiers(t *testing.T) {
	r := NewRepairer(testInfo())
	statement := "SELECT airlines.airline_name, bookings.fare FROM bookings JOIN airlines ON bookings.airlie_id = airlines.airlie_id"

	once := r.Repair(statement)
	if once != statement {
		t.Fatalf("Repair() = %q, want unchanged", once)
	}
	if twice := r.Repair(once); twice != once {
		t.Fatalf("Repair(Repair()) = %q, want %q", twice, once)
	}
}

func TestRepairLeavesDistantTokens(t *testing.T) {
	r := NewRepairer(testInfo())
	report := r.RepairWithReport("SELECT passenger_count FROM bookings")

	if report.Statement != "SELECT passenger_count FROM bookings" {
		t.Fatalf("RepairWithReport().Statement = %q", report.Statement)
	}
	if len(report.Rewrites) != 0 {
		t.Fatalf("Rewrites = %+v, want none", report.Rewrites)
	}
}

func TestRepairSkipsLiteralsKeywordsAndFunctions(t *testing.T) {
	r := NewRepairer(testInfo())
	statement := `SELECT "clas", LOWER(status) FROM bookings WHERE status = 'clas' -- clas
AND EXTRACT(MONTH FROM departure_dt) = 3 AND fare > 9007199254740993::BIGINT`

	if got := r.Repair(statement); got != statement {
		t.Fatalf("Repair() = %q, want unchanged", got)
	}
}

func TestRepairSkipsDollarEscapeAndBlockComments(t *testing.T) {
	r := NewRepairer(testInfo())
	statement := `SELECT $$clas$$, $t$clas$t$, E'clas\'s', clas /* clas */ FROM bookings`

	got := r.Repair(statement)
	want := `SELECT $$clas$$, $t$clas$t$, E'clas\'s', class /* clas */ FROM bookings`
	if got != want {
		t.Fatalf("Repair() = %q, want %q", got, want)
	}
}

func TestRepairTieBreakPrefersFirstSortedIdentifier(t *testing.T) {
	r := NewRepairer(schema.Info{Tables: []schema.Table{{Name: "t", Columns: []string{"cat", "bat"}}}})

	if got := r.Repair("SELECT hat FROM t"); got != "SELECT bat FROM t" {
		t.Fatalf("Repair() = %q", got)
	}
}

func TestRepairKeepsDeclaredAliases(t *testing.T) {
	r := NewRepairer(testInfo())
	statement := "SELECT fare AS fares FROM bookings ORDER BY fares"

	if got := r.Repair(statement); got != statement {
		t.Fatalf("Repair() = %q, want unchanged", got)
	}
}

func TestTokenizeRoundTrips(t *testing.T) {
	for _, statement := range []string{
		"SELECT a.b, 'it''s', \"x\"\"y\" FROM t -- tail\nWHERE 12abc = 1",
		"SELECT $$a;b$$, $q$x$q$, $1, E'\\'', /* c */ d FROM t",
		"SELECT 'unterminated",
		"SELECT $$unterminated",
	} {
		var rebuilt strings.Builder
		for _, tok := range tokenize(statement) {
			rebuilt.WriteString(tok.text)
		}
		if rebuilt.String() != statement {
			t.Fatalf("tokenize(%q) rebuilt %q", statement, rebuilt.String())
		}
	}
}

func TestRepairNeverRewritesMutationKeywords(t *testing.T) {
	r := NewRepairer(testInfo())
	statement := "UPDATE bookings SET fare = 0 WHERE status = 'x'; DROP TABLE bookings"

	got := r.Repair(statement)
	if got != statement {
		t.Fatalf("Repair() = %q, want unchanged", got)
	}
	if err := AssertSafe(got); err == nil {
		t.Fatal("AssertSafe() error = nil for UPDATE")
	}
}
