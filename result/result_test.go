package result_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/adamwoolhether/fetch/result"
)

func TestResult_Variants(t *testing.T) {
	errBoom := errors.New("boom")

	testCases := []struct {
		name      string
		r         result.Result[int]
		expOK     bool
		expValue  int
		expErr    error
		expString string
	}{
		{
			name:      "Success",
			r:         result.Success(7),
			expOK:     true,
			expValue:  7,
			expString: "Success(7)",
		},
		{
			name:      "Failure",
			r:         result.Failure[int](errBoom),
			expErr:    errBoom,
			expString: "Failure(boom)",
		},
		{
			name:      "Failure with nil error",
			r:         result.Failure[int](nil),
			expErr:    result.ErrNilFailure,
			expString: "Failure(failure with nil error)",
		},
		{
			name:   "Zero value",
			r:      result.Result[int]{},
			expErr: result.ErrNilFailure,
		},
		{
			name:     "Of with value",
			r:        result.Of(3, nil),
			expOK:    true,
			expValue: 3,
		},
		{
			name:   "Of with error",
			r:      result.Of(3, errBoom),
			expErr: errBoom,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.r.IsSuccess() != tc.expOK || tc.r.IsFailure() == tc.expOK {
				t.Fatalf("exp success %v, got %v", tc.expOK, tc.r.IsSuccess())
			}

			v, err := tc.r.Get()
			if v != tc.expValue {
				t.Errorf("exp value %d, got %d", tc.expValue, v)
			}
			if !errors.Is(err, tc.expErr) {
				t.Errorf("exp err %v, got %v", tc.expErr, err)
			}
			if tc.expErr == nil && err != nil {
				t.Errorf("exp nil err, got %v", err)
			}
			if tc.expString != "" && tc.r.String() != tc.expString {
				t.Errorf("exp %q, got %q", tc.expString, tc.r.String())
			}
		})
	}
}

func TestResult_FoldCallsExactlyOne(t *testing.T) {
	var successes, failures int

	result.Success("x").Fold(func(string) { successes++ }, func(error) { failures++ })
	result.Failure[string](errors.New("x")).Fold(func(string) { successes++ }, func(error) { failures++ })

	if successes != 1 || failures != 1 {
		t.Errorf("exp 1 success and 1 failure, got %d and %d", successes, failures)
	}
}

func TestMapAndFlatMap(t *testing.T) {
	errParse := errors.New("parse")

	r := result.Map(result.Success(41), func(v int) int { return v + 1 })
	if r.Value() != 42 {
		t.Errorf("exp 42, got %d", r.Value())
	}

	s := result.FlatMap(result.Success("12"), func(v string) result.Result[int] {
		return result.Of(strconv.Atoi(v))
	})
	if s.Value() != 12 {
		t.Errorf("exp 12, got %d", s.Value())
	}

	f := result.FlatMap(result.Failure[string](errParse), func(v string) result.Result[int] {
		t.Error("fn must not run on failure")
		return result.Success(0)
	})
	if !errors.Is(f.Err(), errParse) {
		t.Errorf("exp %v, got %v", errParse, f.Err())
	}

	folded := result.Fold(result.Failure[int](errParse),
		func(v int) string { return strconv.Itoa(v) },
		func(err error) string { return "failed: " + err.Error() },
	)
	if folded != "failed: parse" {
		t.Errorf("exp folded failure text, got %q", folded)
	}
}

func TestRecover(t *testing.T) {
	r := result.Recover(result.Failure[int](errors.New("x")), func(error) result.Result[int] {
		return result.Success(-1)
	})
	if r.Value() != -1 {
		t.Errorf("exp recovered -1, got %d", r.Value())
	}

	if got := result.Failure[int](errors.New("x")).OrElse(9); got != 9 {
		t.Errorf("exp fallback 9, got %d", got)
	}
}
