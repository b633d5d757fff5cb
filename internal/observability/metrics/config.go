package metrics

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Config identifies the service on every exported series.
type Config struct {
	ServiceName string
	Environment string
}

// FilterAttributes drops attributes with empty values so instruments
// never record blank labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if strings.TrimSpace(attr.Value.Emit()) == "" {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
