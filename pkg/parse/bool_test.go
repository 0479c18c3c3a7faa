package parse

import "testing"

func TestFlexibleBool_Truthy(t *testing.T) {
	for _, v := range []interface{}{true, "true", "1", float64(1), 1} {
		got, err := FlexibleBool(v)
		if err != nil {
			t.Fatalf("FlexibleBool(%v): unexpected error: %v", v, err)
		}
		if !got {
			t.Errorf("FlexibleBool(%v) = false, want true", v)
		}
	}
}

func TestFlexibleBool_Falsy(t *testing.T) {
	for _, v := range []interface{}{nil, false, "false", "0", "", float64(0), 0} {
		got, err := FlexibleBool(v)
		if err != nil {
			t.Fatalf("FlexibleBool(%v): unexpected error: %v", v, err)
		}
		if got {
			t.Errorf("FlexibleBool(%v) = true, want false", v)
		}
	}
}

func TestFlexibleBool_Rejected(t *testing.T) {
	for _, v := range []interface{}{"yes", "TRUE", "on", float64(2), 7, []string{"true"}} {
		if _, err := FlexibleBool(v); err == nil {
			t.Errorf("FlexibleBool(%v): expected error", v)
		}
	}
}
