package units

import (
	"net/url"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/contador-app/contador/pkg/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var unitColumns = []string{
	"id", "name", "tax_id", "email",
	"consecutive_seed", "labeling_enabled", "auto_scan_enabled",
	"custom_prompt", "last_scan_at", "created_at", "updated_at",
}

// Filters contains optional filtering criteria for unit queries.
// Nil fields are ignored. Name uses case-insensitive contains matching.
type Filters struct {
	Name     *string `json:"name,omitempty"`
	AutoScan *bool   `json:"auto_scan,omitempty"`
}

// Apply adds filter conditions to a select builder.
func (f Filters) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.Name != nil {
		b = b.Where(sq.ILike{"name": "%" + *f.Name + "%"})
	}
	if f.AutoScan != nil {
		b = b.Where(sq.Eq{"auto_scan_enabled": *f.AutoScan})
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}
	if a := values.Get("auto_scan"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.AutoScan = &v
		}
	}

	return f
}

func scanUnit(s repository.Scanner) (Unit, error) {
	var u Unit
	err := s.Scan(
		&u.ID,
		&u.Name,
		&u.TaxID,
		&u.Email,
		&u.ConsecutiveSeed,
		&u.LabelingEnabled,
		&u.AutoScanEnabled,
		&u.CustomPrompt,
		&u.LastScanAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}
