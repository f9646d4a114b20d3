package dataflow

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func sum(deps []any) (any, error) {
	total := 0.0
	for _, d := range deps {
		f, _ := d.(float64)
		total += f
	}
	return total, nil
}

func TestAdd_Ranks(t *testing.T) {
	df := New()
	a, _ := df.Signal("a", 1.0)
	b, _ := df.Signal("b", 2.0)
	c, _ := df.Add("c", nil, sum, a, b)
	d, _ := df.Add("d", nil, sum, c, a)

	if a.Rank() != 0 || b.Rank() != 0 {
		t.Errorf("source ranks = %d, %d", a.Rank(), b.Rank())
	}
	if c.Rank() != 1 {
		t.Errorf("c rank = %d, want 1", c.Rank())
	}
	if d.Rank() != 2 {
		t.Errorf("d rank = %d, want 2", d.Rank())
	}
	if got := a.Targets(); len(got) != 2 || got[0] != c || got[1] != d {
		t.Errorf("a targets = %v", got)
	}
}

func TestAdd_DuplicateName(t *testing.T) {
	df := New()
	if _, err := df.Signal("x", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := df.Signal("x", 2); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
}

func TestEvaluate_Propagation(t *testing.T) {
	df := New()
	ctx := context.Background()

	a, _ := df.Signal("a", 1.0)
	b, _ := df.Signal("b", 2.0)
	c, _ := df.Add("c", nil, sum, a, b)

	calls := 0
	d, _ := df.Add("d", nil, func(deps []any) (any, error) {
		calls++
		return deps[0].(float64) * 10, nil
	}, c)

	if err := df.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Value() != 3.0 || d.Value() != 30.0 {
		t.Fatalf("c=%v d=%v", c.Value(), d.Value())
	}
	if calls != 1 {
		t.Errorf("d evaluated %d times, want 1", calls)
	}

	df.Update(a, 5.0)
	df.Update(b, 5.0)
	if err := df.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if d.Value() != 100.0 {
		t.Errorf("d = %v, want 100", d.Value())
	}
	if calls != 2 {
		t.Errorf("d evaluated %d times, want 2", calls)
	}
}

func TestEvaluate_NoChangeStopsPropagation(t *testing.T) {
	df := New()
	ctx := context.Background()

	a, _ := df.Signal("a", 1.0)
	clamp, _ := df.Add("clamp", nil, func(deps []any) (any, error) {
		return 0.0, nil
	}, a)
	calls := 0
	df.Add("after", nil, func(deps []any) (any, error) {
		calls++
		return deps[0], nil
	}, clamp)

	if err := df.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	df.Update(a, 2.0)
	if err := df.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("downstream evaluated %d times, want 1", calls)
	}
}

func TestUpdate_Options(t *testing.T) {
	df := New()
	a, _ := df.Signal("a", 1.0)
	df.Evaluate(context.Background())

	if df.Update(a, 1.0) {
		t.Error("unchanged value should not schedule")
	}
	if !df.Update(a, 1.0, Force()) {
		t.Error("Force should schedule an unchanged value")
	}

	derived, _ := df.Add("derived", 0.0, func(deps []any) (any, error) {
		return deps[0].(float64) + 1, nil
	}, a)
	df.Evaluate(context.Background())
	if derived.Value() != 2.0 {
		t.Fatalf("derived = %v", derived.Value())
	}

	df.Update(derived, 50.0, Skip())
	df.Evaluate(context.Background())
	if derived.Value() != 50.0 {
		t.Errorf("skipped operator was re-evaluated: %v", derived.Value())
	}

	df.Update(derived, 60.0)
	df.Evaluate(context.Background())
	if derived.Value() != 2.0 {
		t.Errorf("operator without Skip should recompute, got %v", derived.Value())
	}
}

func TestEvaluate_OperatorError(t *testing.T) {
	var got []error
	df := New(WithErrorFunc(func(err error) { got = append(got, err) }))

	a, _ := df.Signal("a", 1.0)
	boom := errors.New("boom")
	bad, _ := df.Add("bad", nil, func([]any) (any, error) { return nil, boom }, a)
	downstream := 0
	df.Add("down", nil, func([]any) (any, error) { downstream++; return 1, nil }, bad)
	ok, _ := df.Add("ok", nil, sum, a)

	if err := df.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !errors.Is(got[0], boom) {
		t.Fatalf("errors = %v", got)
	}
	var oe *OperatorError
	if !errors.As(got[0], &oe) || oe.Operator == "" {
		t.Errorf("expected *OperatorError, got %v", got[0])
	}
	if ok.Value() != 1.0 {
		t.Errorf("independent path should still evaluate, got %v", ok.Value())
	}
	// "down" was scheduled by Add, so it evaluates once on the first run.
	if downstream != 1 {
		t.Errorf("down evaluated %d times", downstream)
	}
}

func TestEvaluate_Reentrant(t *testing.T) {
	df := New()
	a, _ := df.Signal("a", 1.0)

	var inner error
	df.On(a, nil, func(any) error {
		inner = df.Evaluate(context.Background())
		return nil
	})
	if err := df.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrReentrantRun) {
		t.Errorf("expected ErrReentrantRun, got %v", inner)
	}
	if df.Running() {
		t.Error("Running should be false after Evaluate returns")
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	df := New()
	a, _ := df.Signal("a", 1.0)
	double, _ := df.Add("double", nil, func(deps []any) (any, error) {
		return deps[0].(float64) * 2, nil
	}, a)
	if err := df.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}

	df.Update(a, 4.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clock := df.Clock()
	if err := df.Evaluate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !df.Pending() {
		t.Error("cancelled run dropped scheduled operators")
	}
	if df.Clock() != clock {
		t.Errorf("clock advanced to %d on a cancelled run", df.Clock())
	}

	if err := df.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if double.Value() != 8.0 {
		t.Errorf("double = %v, want 8", double.Value())
	}
}

func TestEvaluate_CancelledMidRun(t *testing.T) {
	df := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := df.Signal("a", 1.0)
	first, _ := df.Add("first", nil, func(deps []any) (any, error) {
		cancel()
		return deps[0].(float64) + 1, nil
	}, a)
	calls := 0
	second, _ := df.Add("second", nil, func(deps []any) (any, error) {
		calls++
		return deps[0].(float64) * 10, nil
	}, first)

	if err := df.Evaluate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("second evaluated %d times before resume, want 0", calls)
	}
	if !df.Pending() {
		t.Fatal("downstream operator was not kept scheduled")
	}

	if err := df.Evaluate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if first.Value() != 2.0 || second.Value() != 20.0 {
		t.Errorf("first=%v second=%v, want 2 and 20", first.Value(), second.Value())
	}
	if calls != 1 {
		t.Errorf("second evaluated %d times, want 1", calls)
	}
}

func TestOn_Listener(t *testing.T) {
	df := New()
	ctx := context.Background()
	a, _ := df.Signal("a", 1.0)
	df.Evaluate(ctx)

	var seen []any
	key := "listener"
	l := df.On(a, key, func(v any) error {
		seen = append(seen, v)
		return nil
	})
	if l.Key() != key {
		t.Errorf("Key() = %v", l.Key())
	}
	if l.Rank() != a.Rank()+1 {
		t.Errorf("listener rank = %d", l.Rank())
	}

	df.Update(a, 2.0)
	df.Evaluate(ctx)
	df.Update(a, 3.0)
	df.Evaluate(ctx)

	if !reflect.DeepEqual(seen, []any{2.0, 3.0}) {
		t.Errorf("seen = %v", seen)
	}

	if !a.RemoveTarget(l) {
		t.Fatal("RemoveTarget returned false")
	}
	if a.RemoveTarget(l) {
		t.Error("second RemoveTarget should return false")
	}
	df.Update(a, 4.0)
	df.Evaluate(ctx)
	if len(seen) != 2 {
		t.Errorf("removed listener still invoked: %v", seen)
	}
}

func TestRunAfter(t *testing.T) {
	df := New()
	var order []string

	df.RunAfter(func() {
		order = append(order, "first")
		df.RunAfter(func() { order = append(order, "nested") })
	})
	df.RunAfter(func() { order = append(order, "second") })

	if err := df.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "nested"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestSameValue(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil", nil, nil, true},
		{"nil vs value", nil, 0, false},
		{"floats", 1.5, 1.5, true},
		{"different types", 1, 1.0, false},
		{"slices", []any{1, 2}, []any{1, 2}, true},
		{"maps", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameValue(tt.a, tt.b); got != tt.want {
				t.Errorf("sameValue(%v, %v) = %v", tt.a, tt.b, got)
			}
		})
	}
}
