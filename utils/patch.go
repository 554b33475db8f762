package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// PatchFields collects the set (non-nil pointer) fields of a partial-update DTO,
// keyed by their json name. Columns share those names, so the map feeds
// gorm's Updates directly.
func PatchFields(dto any) map[string]any {
	fields := map[string]any{}
	v := reflect.Indirect(reflect.ValueOf(dto))
	if v.Kind() != reflect.Struct {
		return fields
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Ptr || f.IsNil() {
			continue
		}
		name, _, _ := strings.Cut(v.Type().Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = f.Elem().Interface()
	}
	return fields
}

// ParseIntDefault parses a non-negative int, falling back to def.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
