/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package ptree

import (
	"encoding/json"
	"strings"
)

// stringValueKey is the single reserved key used when a raw payload cannot
// be parsed as a JSON object.
const stringValueKey = "string_value"

// Decode turns a raw node payload into a properties mapping, following the
// encoding rules: empty payload decodes to an empty mapping; a payload that,
// once trimmed, is a JSON object decodes to that object; anything else
// decodes to the single-key mapping {"string_value": <raw>}.
func Decode(payload []byte) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return map[string]interface{}{}, nil
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &m); err == nil {
			return m, nil
		}
	}

	return map[string]interface{}{stringValueKey: string(payload)}, nil
}

// Encode turns a properties mapping back into a raw node payload. A mapping
// whose only key is "string_value" round-trips to the raw string it
// represents; every other mapping is compact-JSON-encoded.
func Encode(props map[string]interface{}) ([]byte, error) {
	if len(props) == 1 {
		if v, ok := props[stringValueKey]; ok {
			if s, ok := v.(string); ok {
				return []byte(s), nil
			}
		}
	}
	return json.Marshal(props)
}
