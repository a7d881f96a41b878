package sqlguard

import "testing"

func TestExtractStatement(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "sql fence with prose",
			output: "Here you go:\n```sql\nSELECT class, COUNT(*) FROM bookings GROUP BY class;\n```\nHope this helps!",
			want:   "SELECT class, COUNT(*) FROM bookings GROUP BY class",
		},
		{
			name:   "sql fence tag is case insensitive",
			output: "```SQL\nSELECT 1\n```",
			want:   "SELECT 1",
		},
		{
			name:   "sql fence wins over an earlier plain fence",
			output: "```\nnot this\n```\n```sql\nSELECT 2\n```",
			want:   "SELECT 2",
		},
		{
			name:   "plain fence with language tag",
			output: "```duckdb\nSELECT terminal FROM bookings\n```",
			want:   "SELECT terminal FROM bookings",
		},
		{
			name:   "plain fence without tag",
			output: "```SELECT 3```",
			want:   "SELECT 3",
		},
		{
			name:   "raw text keeps first statement",
			output: "  SELECT 1; DROP TABLE bookings;  ",
			want:   "SELECT 1",
		},
		{
			name:   "semicolon inside literal is kept",
			output: "SELECT * FROM bookings WHERE extras = 'a;b'; SELECT 2",
			want:   "SELECT * FROM bookings WHERE extras = 'a;b'",
		},
		{
			name:   "semicolon inside quoted identifier is kept",
			output: `SELECT "odd;name" FROM bookings;`,
			want:   `SELECT "odd;name" FROM bookings`,
		},
		{
			name:   "semicolon inside dollar quotes is kept",
			output: "```sql\nSELECT $$'$$ AS a; DROP TABLE bookings; SELECT $$'$$ AS b\n```",
			want:   "SELECT $$'$$ AS a",
		},
		{
			name:   "tagged dollar quotes",
			output: "SELECT $q$;$$;$q$ AS a; DROP TABLE bookings",
			want:   "SELECT $q$;$$;$q$ AS a",
		},
		{
			name:   "positional parameter is not a dollar quote",
			output: "SELECT $1; DROP TABLE bookings",
			want:   "SELECT $1",
		},
		{
			name:   "escape string with backslash quote",
			output: `SELECT E'it\'s;' AS a; DROP TABLE bookings`,
			want:   `SELECT E'it\'s;' AS a`,
		},
		{
			name:   "quote inside line comment does not hide the terminator",
			output: "SELECT 1 -- it's\n; DROP TABLE bookings",
			want:   "SELECT 1 -- it's",
		},
		{
			name:   "semicolon inside block comment is kept",
			output: "SELECT /* a; b */ 1; DROP TABLE bookings",
			want:   "SELECT /* a; b */ 1",
		},
		{
			name:   "stray backticks removed",
			output: "SELECT `class` FROM `bookings`",
			want:   "SELECT class FROM bookings",
		},
		{
			name:   "empty output",
			output: "   ",
			want:   "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractStatement(tc.output); got != tc.want {
				t.Fatalf("ExtractStatement() = %q, want %q", got, tc.want)
			}
		})
	}
}
