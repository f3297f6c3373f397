package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	// sqlite reports "UNIQUE constraint failed" without a typed error.
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

// wrapServiceError passes application errors through untouched and annotates infrastructure failures.
func wrapServiceError(component, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %s: %w", component, op, err)
}

// translateWriteError maps a uniqueness violation that slipped past the name pre-check to
// DuplicateName when the name is now taken. Other violations, such as a concurrent order, are wrapped.
func translateWriteError(db *gorm.DB, model any, component, op, name, excludeID string, err error) error {
	if isUniqueConstraintError(err) && name != "" {
		if taken, checkErr := nameTaken(db, model, name, excludeID); checkErr == nil && taken {
			return apperrors.NewDuplicateName(name)
		}
	}
	return wrapServiceError(component, op, err)
}

// createWithOrderRetry runs create in a transaction and repeats it once when it loses a race for
// the realm's next sort order. A uniqueness failure on the name is returned as is.
func createWithOrderRetry(db *gorm.DB, model any, name string, create func(tx *gorm.DB) error) error {
	err := db.Transaction(create)
	if err == nil || !isUniqueConstraintError(err) {
		return err
	}
	if taken, checkErr := nameTaken(db, model, name, ""); checkErr != nil || taken {
		return err
	}
	return db.Transaction(create)
}
