// Package parse holds small helpers for values that arrive from clients in
// loosely typed form.
package parse

import "fmt"

// FlexibleBool interprets the boolean-ish encodings clients actually send:
// JSON true/false, the strings "true"/"false", and the numbers 1/0 (or
// their string forms). Anything else is an error; a silent false here would
// swallow typos like "yes".
func FlexibleBool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		switch t {
		case "true", "1":
			return true, nil
		case "false", "0", "":
			return false, nil
		}
		return false, fmt.Errorf("cannot interpret %q as boolean", t)
	case float64:
		// JSON numbers decode as float64
		if t == 1 {
			return true, nil
		}
		if t == 0 {
			return false, nil
		}
		return false, fmt.Errorf("cannot interpret %v as boolean", t)
	case int:
		if t == 1 {
			return true, nil
		}
		if t == 0 {
			return false, nil
		}
		return false, fmt.Errorf("cannot interpret %d as boolean", t)
	default:
		return false, fmt.Errorf("cannot interpret %T as boolean", v)
	}
}
