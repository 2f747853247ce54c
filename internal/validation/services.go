package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chirpsocial/backend/internal/logger"
	"go.uber.org/zap"
)

// Check probes one backing service
type Check func(ctx context.Context) error

// ServiceValidator fails startup when a service listed in
// CHIRP_REQUIRE_<NAME> is unreachable. Unlisted services are optional.
type ServiceValidator struct {
	checks   map[string]Check
	required []string
}

// NewServiceValidator creates a validator for the given probes
func NewServiceValidator(checks map[string]Check) *ServiceValidator {
	return &ServiceValidator{checks: checks, required: parseRequiredServices(checks)}
}

// Required lists the services that must be reachable
func (sv *ServiceValidator) Required() []string {
	return sv.required
}

// ValidateServices probes every required service
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.required) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services", zap.Strings("services", sv.required))

	for _, name := range sv.required {
		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := sv.checks[name](timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("❌ Required service validation failed", zap.String("service", name), zap.Error(err))
			return fmt.Errorf("required service %q: %w", name, err)
		}
		logger.Log.Info("✅ Service validated successfully", zap.String("service", name))
	}
	return nil
}

func parseRequiredServices(checks map[string]Check) []string {
	var required []string
	for name := range checks {
		if isTruthy(os.Getenv("CHIRP_REQUIRE_" + strings.ToUpper(name))) {
			required = append(required, name)
		}
	}
	return required
}

func isTruthy(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}
