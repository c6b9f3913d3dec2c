package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/learning"
)

func TestFirstOf_ShortCircuits(t *testing.T) {
	var ran []string
	step := func(name string, v int, err error) Strategy[int] {
		return Strategy[int]{Name: name, Run: func(context.Context) (int, error) {
			ran = append(ran, name)
			return v, err
		}}
	}

	v, source, err := FirstOf(context.Background(),
		step("a", 0, ErrMiss),
		step("b", 0, learning.ErrNotFound),
		step("c", 3, nil),
		step("d", 4, nil),
	)
	if err != nil {
		t.Fatalf("FirstOf() error = %v", err)
	}
	if v != 3 || source != "c" {
		t.Errorf("FirstOf() = %d from %q, want 3 from c", v, source)
	}
	if len(ran) != 3 {
		t.Errorf("ran %v, want a, b, c only", ran)
	}
}

func TestFirstOf_StopsOnHardError(t *testing.T) {
	boom := errors.New("boom")
	_, source, err := FirstOf(context.Background(),
		Strategy[int]{Name: "first", Run: func(context.Context) (int, error) { return 0, boom }},
		Strategy[int]{Name: "second", Run: func(context.Context) (int, error) {
			t.Error("second strategy should not run")
			return 1, nil
		}},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("FirstOf() error = %v, want boom", err)
	}
	if source != "first" {
		t.Errorf("source = %q, want first", source)
	}
}

func TestFirstOf_AllMiss(t *testing.T) {
	_, _, err := FirstOf(context.Background(),
		Strategy[string]{Name: "only", Run: func(context.Context) (string, error) { return "", ErrMiss }},
	)
	if !errors.Is(err, learning.ErrNotFound) {
		t.Errorf("FirstOf() error = %v, want ErrNotFound", err)
	}
}
