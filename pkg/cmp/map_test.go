package cmp_test

import (
	"testing"

	"github.com/cardops/shiplane/pkg/cmp"
)

func TestMapEq(t *testing.T) {
	base := map[string]string{
		"model_version": "12",
		"gate_passed":   "true",
	}

	t.Run("it detects two equal maps", func(t *testing.T) {
		other := map[string]string{
			"gate_passed":   "true",
			"model_version": "12",
		}
		if !cmp.MapEq(base, other) {
			t.Error("two maps are not equal, unexpectedly.")
		}
	})

	t.Run("it detects two different maps", func(t *testing.T) {
		for name, other := range map[string]map[string]string{
			"different value": {"model_version": "13", "gate_passed": "true"},
			"different key":   {"model_run_id": "12", "gate_passed": "true"},
			"subset":          {"model_version": "12"},
			"superset": {
				"model_version": "12", "gate_passed": "true", "commit": "aabbccdd",
			},
			"empty": {},
			"nil":   nil,
		} {
			t.Run(name, func(t *testing.T) {
				if cmp.MapEq(base, other) {
					t.Errorf("%v == %v, unexpectedly.", base, other)
				}
			})
		}
	})

	t.Run("it treats nil and empty as equal", func(t *testing.T) {
		if !cmp.MapEq[string, string](nil, map[string]string{}) {
			t.Error("nil != empty, unexpectedly.")
		}
	})
}

func TestMapLeqGeq(t *testing.T) {
	small := map[string]string{"model_version": "12"}
	big := map[string]string{"model_version": "12", "gate_passed": "true"}

	if !cmp.MapLeq(small, big) {
		t.Errorf("%v should be a subset of %v", small, big)
	}
	if cmp.MapLeq(big, small) {
		t.Errorf("%v should not be a subset of %v", big, small)
	}
	if !cmp.MapGeq(big, small) {
		t.Errorf("%v should be a superset of %v", big, small)
	}
	if cmp.MapGeq(small, big) {
		t.Errorf("%v should not be a superset of %v", small, big)
	}
}
