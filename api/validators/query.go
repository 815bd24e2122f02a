package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryBool treats a missing value as false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParseQueryDate reads a required YYYY-MM-DD parameter as midnight in loc.
func ParseQueryDate(r *http.Request, key string, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	return ParseDate(key, raw, loc)
}

// ParseDate parses a YYYY-MM-DD value, naming field in the validation error.
func ParseDate(field, raw string, loc *time.Location) (time.Time, error) {
	t, err := period.ParseDate(raw, loc)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must use YYYY-MM-DD").WithDetails(map[string]any{"field": field})
	}
	return t, nil
}

// ParseQueryDateRange reads from/to as inclusive calendar days.
func ParseQueryDateRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	from, err := ParseQueryDate(r, "from", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseQueryDate(r, "to", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	return from, to, nil
}

// ParseIDParam reads a positive int64 chi path parameter.
func ParseIDParam(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParseYearMonthParams reads {year}/{month} path parameters.
func ParseYearMonthParams(r *http.Request) (period.YearMonth, error) {
	year, yerr := strconv.Atoi(chi.URLParam(r, "year"))
	month, merr := strconv.Atoi(chi.URLParam(r, "month"))
	if yerr != nil || merr != nil {
		return period.YearMonth{}, pkgerrors.New(pkgerrors.CodeValidation, "year and month must be numeric")
	}
	ym, err := period.NewYearMonth(year, time.Month(month))
	if err != nil {
		return period.YearMonth{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid year/month")
	}
	return ym, nil
}
