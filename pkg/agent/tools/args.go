package tools

import (
	"bytes"
	"strconv"
	"strings"
	"sync"

	json "github.com/json-iterator/go"
	"github.com/json-iterator/go/extra"
)

var (
	fuzzyOnce sync.Once
	jsonAPI   = json.ConfigCompatibleWithStandardLibrary
)

// decodeArgs decodes a tool call's JSON arguments into v. Models often quote
// numbers ("bbox_id": "3"), so number fields accept numeric strings.
func decodeArgs(tool string, raw []byte, v interface{}) error {
	fuzzyOnce.Do(extra.RegisterFuzzyDecoders)

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if trimmed[0] != '{' {
		return newActionError(CodeInvalidArguments, tool, nil,
			"Error: Invalid arguments for %s: expected a JSON object.", tool)
	}
	if err := jsonAPI.Unmarshal(trimmed, v); err != nil {
		return newActionError(CodeInvalidArguments, tool, err,
			"Error: Invalid arguments for %s: %v", tool, err)
	}
	return nil
}

// bboxIndex resolves a bbox id against the current element list.
func bboxIndex(tool string, env *Env, id int) (int, error) {
	if id < 0 || id >= len(env.State.Observation.Elements) {
		return 0, newActionError(CodeOutOfRange, tool, nil, "Error: No bounding box found for ID %d.", id)
	}
	return id, nil
}

// parseTarget reads a scroll target: "WINDOW" or an element id.
func parseTarget(tool, target string) (window bool, id int, err error) {
	target = strings.TrimSpace(target)
	if strings.EqualFold(target, "WINDOW") {
		return true, 0, nil
	}
	id, convErr := strconv.Atoi(target)
	if convErr != nil {
		return false, 0, newActionError(CodeInvalidArguments, tool, convErr,
			"Error: Invalid scroll target %q; use WINDOW or an element id.", target)
	}
	return false, id, nil
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
