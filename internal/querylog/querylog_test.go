package querylog

import (
	"context"
	"errors"
	"testing"
)

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	if err := r.Record(context.Background(), Entry{Question: "q"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := r.Recent(context.Background(), 5); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Recent() error = %v, want ErrDisabled", err)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-1: DefaultRecentLimit, 0: DefaultRecentLimit, 7: 7, 500: MaxRecentLimit}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
