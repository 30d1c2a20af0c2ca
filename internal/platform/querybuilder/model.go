package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// InsertModel builds an INSERT from the `db` tags of model followed by suffix.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := columnsAndValuesFromModel(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix).
		ToSQL()
}

// UpsertModel inserts model and, on conflict over conflictCols, overwrites
// every other tagged column. Last writer wins.
func UpsertModel(table string, model any, conflictCols ...string) (string, []any, error) {
	cols, _, err := columnsAndValuesFromModel(model)
	if err != nil {
		return "", nil, err
	}
	if len(conflictCols) == 0 {
		return "", nil, fmt.Errorf("conflict columns are required")
	}

	skip := make(map[string]struct{}, len(conflictCols))
	for _, c := range conflictCols {
		skip[c] = struct{}{}
	}
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, ok := skip[c]; ok {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}

	suffix := "ON CONFLICT (" + strings.Join(conflictCols, ", ") + ") DO NOTHING"
	if len(sets) > 0 {
		suffix = "ON CONFLICT (" + strings.Join(conflictCols, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return InsertModel(table, model, suffix)
}

func columnsAndValuesFromModel(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct")
	}

	typ := value.Type()
	cols := make([]string, 0, typ.NumField())
	vals := make([]any, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(strings.TrimSpace(field.Tag.Get("db")), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}
