package services

import (
	"context"
	"strings"

	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
	"github.com/charlesng35/tenantguard/pkg/metrics"
	"github.com/charlesng35/tenantguard/pkg/validator"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func normaliseIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func normaliseTenant(tenantID *string) *string {
	if tenantID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*tenantID)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateInput(input any) error {
	if err := validator.ValidateStruct(input); err != nil {
		return apperrors.NewValidation(err.Error())
	}
	return nil
}

func observeMutation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.Mutations.WithLabelValues(operation, result).Inc()
}
