package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/models"
	appErrors "github.com/charlesng35/tenantguard/pkg/errors"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// bindJSON decodes the payload into dest. Field rules are enforced by the services, which
// report them as VALIDATION_FAILED. A malformed body writes BAD_REQUEST and returns false.
func bindJSON[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return true
}

// realmQuery parses ?realm=. An absent value yields "" and ok.
func realmQuery(c *gin.Context) (models.Realm, bool) {
	value := strings.TrimSpace(c.Query("realm"))
	if value == "" {
		return "", true
	}
	realm, ok := models.ParseRealm(value)
	if !ok {
		response.Error(c, appErrors.NewValidation("realm must be admin or app"))
		return "", false
	}
	return realm, true
}

// tenantQuery returns ?tenant= or nil for the admin realm.
func tenantQuery(c *gin.Context) *string {
	value := strings.TrimSpace(c.Query("tenant"))
	if value == "" {
		return nil
	}
	return &value
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
