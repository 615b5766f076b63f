// Package template renders dynamic action configuration values against
// the execution context of a trigger run.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/richcrm/automation/pkg/models"
)

// RenderWithContext renders input with the trigger's execution context:
// .event, .data (the domain record fields) and .env are available inside
// the template.
func RenderWithContext(input string, execCtx models.ExecutionContext) (any, error) {
	data := map[string]any{
		"event": execCtx.Event,
		"data":  execCtx.Data,
		"env":   getEnvVars(),
	}

	return Render(input, data)
}

// RenderString is RenderWithContext narrowed to string results; non-string
// template output is serialized back to its JSON form.
func RenderString(input string, execCtx models.ExecutionContext) (string, error) {
	result, err := RenderWithContext(input, execCtx)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case string:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to serialize template result: %w", err)
		}

		return string(encoded), nil
	}
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("action_config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	// Decode structured output so templated JSON bodies stay structured.
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	// Coerce to a number only when the numeric form round-trips to the
	// exact rendered text. ParseFloat alone would mangle values like E.164
	// phone numbers ("+91...") or zero-padded references ("007").
	if num, err := strconv.ParseFloat(result, 64); err == nil {
		if strconv.FormatFloat(num, 'f', -1, 64) == result {
			return num, nil
		}
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// getEnvVars returns environment variables as a map.
func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
