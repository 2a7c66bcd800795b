/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package dsl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Repr renders a value the way EvalExpr's grammar would parse it back,
// picking the shortest faithful literal form: whole-valued float64s print
// without a decimal point, matching the integer literals the DSL writer
// typed in the first place.
func Repr(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return strconv.Quote(t)
	case float64:
		return reprFloat(t)
	case int:
		return strconv.Itoa(t)
	case Tuple:
		return reprSeq("(", ")", []interface{}(t))
	case []interface{}:
		return reprSeq("[", "]", t)
	case map[string]interface{}:
		return reprDict(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func reprFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func reprSeq(open, close string, vals []interface{}) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = Repr(v)
	}
	if open == "(" && len(vals) == 1 {
		return "(" + parts[0] + ",)"
	}
	return open + strings.Join(parts, ", ") + close
}

func reprDict(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = strconv.Quote(k) + ": " + Repr(m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
