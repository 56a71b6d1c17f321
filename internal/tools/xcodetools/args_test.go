package xcodetools

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xcodebridge/internal/security"
)

func TestIntArg(t *testing.T) {
	args := map[string]any{"n": float64(42), "s": "7", "bad": "abc"}

	if got, err := intArg(args, "n", 0); err != nil || got != 42 {
		t.Errorf("float64: got %d, %v", got, err)
	}
	if got, err := intArg(args, "s", 0); err != nil || got != 7 {
		t.Errorf("numeric string: got %d, %v", got, err)
	}
	if got, err := intArg(args, "absent", 25); err != nil || got != 25 {
		t.Errorf("default: got %d, %v", got, err)
	}
	if _, err := intArg(args, "bad", 0); !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("bad value: got %v, want ErrInvalidParameter", err)
	}
}

func TestBoolPtrArg(t *testing.T) {
	args := map[string]any{"t": true, "f": false, "s": "yes", "bad": 3.14}

	if got, err := boolPtrArg(args, "absent"); err != nil || got != nil {
		t.Errorf("absent: got %v, %v, want nil", got, err)
	}
	if got, err := boolPtrArg(args, "t"); err != nil || got == nil || !*got {
		t.Errorf("true: got %v, %v", got, err)
	}
	if got, err := boolPtrArg(args, "f"); err != nil || got == nil || *got {
		t.Errorf("false: got %v, %v", got, err)
	}
	if got, err := boolPtrArg(args, "s"); err != nil || got == nil || !*got {
		t.Errorf("string yes: got %v, %v", got, err)
	}
	if _, err := boolPtrArg(args, "bad"); !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("bad value: got %v", err)
	}
}

func TestTestListArg(t *testing.T) {
	cases := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"absent", map[string]any{}, nil},
		{"nil", map[string]any{"tests_to_run": nil}, nil},
		{"array", map[string]any{"tests_to_run": []any{"A/B/c", "A/B/d"}}, []string{"A/B/c", "A/B/d"}},
		{"empty string", map[string]any{"tests_to_run": ""}, nil},
		{"bracket literal", map[string]any{"tests_to_run": "[]"}, nil},
		{"null literal", map[string]any{"tests_to_run": "null"}, nil},
		{"json string", map[string]any{"tests_to_run": `["A/B/c","A/B/d"]`}, []string{"A/B/c", "A/B/d"}},
		{"comma separated", map[string]any{"tests_to_run": "A/B/c, A/B/d"}, []string{"A/B/c", "A/B/d"}},
		{"blank entries dropped", map[string]any{"tests_to_run": []any{" ", "A/B/c"}}, []string{"A/B/c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := testListArg(tc.args, "tests_to_run")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTestListArgRejectsNonStrings(t *testing.T) {
	_, err := testListArg(map[string]any{"tests_to_run": []any{1, 2}}, "tests_to_run")
	if !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}

	_, err = testListArg(map[string]any{"tests_to_run": 42}, "tests_to_run")
	if !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}
}
