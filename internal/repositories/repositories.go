package repositories

import (
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/stereo/internal/models"
	"github.com/desertthunder/stereo/internal/shared"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildWhere translates a filter model to a WHERE clause (without the keyword) and its arguments.
//
// Columns are joined with AND. An empty model yields an empty clause.
func BuildWhere(filter models.FilterModel) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	// Map order is random; keep the SQL stable.
	sort.Strings(cols)

	var (
		clauses []string
		args    []any
	)
	for _, col := range cols {
		if !models.IsColumn(col) {
			return "", nil, fmt.Errorf("%w: %q", shared.ErrUnknownColumn, col)
		}
		clause, a, err := buildCondition(ident(col), filter[col])
		if err != nil {
			return "", nil, err
		}
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, a...)
	}

	return strings.Join(clauses, " AND "), args, nil
}

func buildCondition(col string, item models.FilterItem) (string, []any, error) {
	if item.Combined() {
		var op string
		switch strings.ToUpper(item.Operator) {
		case "AND":
			op = " AND "
		case "OR":
			op = " OR "
		default:
			return "", nil, fmt.Errorf("%w: filter operator %q", shared.ErrInvalidInput, item.Operator)
		}

		var (
			parts []string
			args  []any
		)
		for _, cond := range item.Conditions {
			clause, a, err := buildCondition(col, cond)
			if err != nil {
				return "", nil, err
			}
			if clause == "" {
				continue
			}
			parts = append(parts, clause)
			args = append(args, a...)
		}
		if len(parts) == 0 {
			return "", nil, nil
		}
		return "(" + strings.Join(parts, op) + ")", args, nil
	}

	from, to := item.Filter, item.FilterTo
	if item.FilterType == "date" {
		from, to = dateArg(item.DateFrom), dateArg(item.DateTo)
	}

	switch item.Type {
	case models.FilterContains:
		return col + ` LIKE ? ESCAPE '\'`, []any{"%" + likeArg(from) + "%"}, nil
	case models.FilterNotContains:
		return "(" + col + ` IS NULL OR ` + col + ` NOT LIKE ? ESCAPE '\')`, []any{"%" + likeArg(from) + "%"}, nil
	case models.FilterStartsWith:
		return col + ` LIKE ? ESCAPE '\'`, []any{likeArg(from) + "%"}, nil
	case models.FilterEndsWith:
		return col + ` LIKE ? ESCAPE '\'`, []any{"%" + likeArg(from)}, nil
	case models.FilterEquals:
		return col + " = ?", []any{from}, nil
	case models.FilterNotEqual:
		return "(" + col + " IS NULL OR " + col + " != ?)", []any{from}, nil
	case models.FilterGreaterThan:
		return col + " > ?", []any{from}, nil
	case models.FilterLessThan:
		return col + " < ?", []any{from}, nil
	case models.FilterInRange:
		return col + " BETWEEN ? AND ?", []any{from, to}, nil
	case models.FilterBlank:
		return "(" + col + " IS NULL OR " + col + " = '')", nil, nil
	case models.FilterNotBlank:
		return "(" + col + " IS NOT NULL AND " + col + " != '')", nil, nil
	case "":
		return "", nil, nil
	default:
		return "", nil, fmt.Errorf("%w: filter type %q", shared.ErrInvalidInput, item.Type)
	}
}

// BuildOrder translates a sort model to an ORDER BY list (without the keyword).
//
// rowid is always appended so paging is stable between requests.
func BuildOrder(model models.SortModel) (string, error) {
	parts := make([]string, 0, len(model)+1)
	for _, item := range model {
		if !models.IsColumn(item.ColID) {
			return "", fmt.Errorf("%w: %q", shared.ErrUnknownColumn, item.ColID)
		}
		dir := "ASC"
		if item.Desc() {
			dir = "DESC"
		}
		parts = append(parts, ident(item.ColID)+" "+dir)
	}
	parts = append(parts, "rowid ASC")
	return strings.Join(parts, ", "), nil
}

// ident quotes a column name; "key" is an SQL keyword.
func ident(col string) string {
	return `"` + col + `"`
}

// columnList quotes and joins column names.
func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	return strings.Join(quoted, ", ")
}

func likeArg(v any) string {
	if v == nil {
		return ""
	}
	return likeEscaper.Replace(fmt.Sprint(v))
}

// dateArg trims the "YYYY-MM-DD hh:mm:ss" form date filters send to a stored date.
func dateArg(s string) any {
	if s == "" {
		return nil
	}
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	return s
}
