package store

import (
	"log/slog"
	"reflect"
	"regexp"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DefaultSecretPatterns match payload keys whose values never reach the logs.
var DefaultSecretPatterns = []string{
	`(?i)^(current|new|confirm)?password$`,
	`(?i)^(refresh)?token$`,
}

const redacted = "***"

// LoggingMiddleware logs every action at debug level with secrets masked.
// Extra patterns extend DefaultSecretPatterns.
func LoggingMiddleware(logger *slog.Logger, extraPatterns ...string) Middleware {
	patterns := compilePatterns(append(append([]string{}, DefaultSecretPatterns...), extraPatterns...))
	return func(_ State, action domain.Action) domain.Action {
		logger.Debug("dispatch",
			"action", string(action.Type),
			"payload", Redact(action.Payload, patterns))
		return action
	}
}

// ValidatingMiddleware logs actions whose type is outside the closed set.
// The action still reaches the reducers, which leave every slice untouched.
func ValidatingMiddleware(logger *slog.Logger) Middleware {
	return func(_ State, action domain.Action) domain.Action {
		if !action.Type.Valid() {
			logger.Warn("unknown action type", "action", string(action.Type))
		}
		return action
	}
}

func compilePatterns(src []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(src))
	for i, p := range src {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Redact returns a copy of payload with the values of matching keys masked.
// Structs are flattened to maps first; other values are returned as is.
func Redact(payload any, patterns []*regexp.Regexp) any {
	if payload == nil {
		return nil
	}
	switch v := payload.(type) {
	case map[string]any:
		return maskMap(v, patterns)
	case string, bool, int, int64, float64:
		return v
	}

	rv := reflect.Indirect(reflect.ValueOf(payload))
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return payload
	}
	var m map[string]any
	if err := mapstructure.Decode(rv.Interface(), &m); err != nil {
		return payload
	}
	return maskMap(m, patterns)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if matchAny(k, patterns) {
			out[k] = redacted
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			out[k] = maskMap(sub, patterns)
			continue
		}
		out[k] = v
	}
	return out
}

func matchAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
