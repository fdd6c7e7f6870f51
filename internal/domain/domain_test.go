package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		want Window
		dur  time.Duration
	}{
		{"24h", Window24h, 24 * time.Hour},
		{"7d", Window7d, 7 * 24 * time.Hour},
	} {
		got, err := ParseWindow(tc.in)
		if err != nil {
			t.Fatalf("ParseWindow(%q): %v", tc.in, err)
		}
		if got != tc.want || got.Duration() != tc.dur {
			t.Fatalf("ParseWindow(%q) = %s (%s)", tc.in, got, got.Duration())
		}
	}

	if _, err := ParseWindow("30d"); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if Window("1h").Duration() != 0 {
		t.Fatal("unknown window must have zero duration")
	}
}

func TestParseSortOrder(t *testing.T) {
	t.Parallel()

	cases := map[string]SortOrder{"": SortLatest, "latest": SortLatest, "trending": SortTrending, "popular": SortPopular}
	for in, want := range cases {
		got, err := ParseSortOrder(in)
		if err != nil || got != want {
			t.Fatalf("ParseSortOrder(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseSortOrder("hot"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestViewEventExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	e := ViewEvent{ExpiresAt: now}
	if !e.Expired(now) {
		t.Fatal("event expiring now must count as expired")
	}
	if e.Expired(now.Add(-time.Second)) {
		t.Fatal("event not yet expired")
	}
}

func TestNewStorageError(t *testing.T) {
	t.Parallel()

	if NewStorageError("get", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
	if err := NewStorageError("get", ErrNotFound); err != ErrNotFound {
		t.Fatalf("sentinel must pass through, got %v", err)
	}

	cause := errors.New("connection refused")
	err := NewStorageError("list articles", cause)
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "list articles" || !errors.Is(err, cause) {
		t.Fatalf("unexpected wrap: %v", err)
	}
	if NewStorageError("outer", err) != err {
		t.Fatal("storage errors must not be wrapped twice")
	}
	if err.Error() != "storage: list articles: connection refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestScoreUpdateApply(t *testing.T) {
	t.Parallel()

	last7d := int64(9)
	a := Article{ViewsLast24h: 4, ViewsLast7d: 1}
	ScoreUpdate{ViewsLast7d: &last7d, PopularScore: 18, IsTrending: true}.Apply(&a)

	if a.ViewsLast24h != 4 || a.ViewsLast7d != 9 || a.PopularScore != 18 || !a.IsTrending {
		t.Fatalf("unexpected article after apply: %+v", a)
	}
}
