package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/picketer/pkg/errors"
	appvalidator "github.com/charlesng35/picketer/pkg/validator"
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

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

// validate runs struct validation and converts failures into a 400 listing
// every offending field.
func validate(input any) error {
	err := appvalidator.ValidateStruct(input)
	if err == nil {
		return nil
	}
	var fields appvalidator.ValidationErrors
	if errors.As(err, &fields) {
		return apperrors.ErrValidation.WithDetails(fields)
	}
	return apperrors.ErrValidation.WithInternal(err)
}
