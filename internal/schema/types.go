package schema

import "strings"

var typeAliases = map[string]string{
	"int":         "integer",
	"int4":        "integer",
	"serial":      "integer",
	"serial4":     "integer",
	"int8":        "bigint",
	"bigserial":   "bigint",
	"serial8":     "bigint",
	"int2":        "smallint",
	"smallserial": "smallint",
	"serial2":     "smallint",
	"bool":        "boolean",
	"float8":      "double precision",
	"float4":      "real",
	"timestamptz": "timestamp with time zone",
	"timestamp":   "timestamp without time zone",
	"timetz":      "time with time zone",
	"time":        "time without time zone",
	"varchar":     "character varying",
	"char":        "character",
	"bpchar":      "character",
	"decimal":     "numeric",
}

var serialTypes = map[string]bool{
	"serial": true, "serial4": true, "bigserial": true, "serial8": true, "smallserial": true, "serial2": true,
}

// NormalizeType maps a SQL type spelling to the canonical form reported by
// information_schema, so statically parsed and live catalogs compare equal.
func NormalizeType(raw string) string {
	t := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if t == "" {
		return t
	}

	array := strings.HasSuffix(t, "[]")
	t = strings.TrimSuffix(t, "[]")

	base, mods := t, ""
	if open := strings.IndexByte(t, '('); open >= 0 {
		if closeIdx := strings.IndexByte(t[open:], ')'); closeIdx >= 0 {
			base = strings.TrimSpace(t[:open])
			mods = strings.ReplaceAll(t[open+1:open+closeIdx], " ", "")
			rest := strings.TrimSpace(t[open+closeIdx+1:])
			if rest != "" {
				base = base + " " + rest
			}
		}
	}

	if alias, ok := typeAliases[base]; ok {
		base = alias
	}

	switch base {
	case "timestamp with time zone", "timestamp without time zone", "time with time zone", "time without time zone":
		// Precision is not part of the comparison.
		mods = ""
	case "numeric":
		if mods != "" && !strings.Contains(mods, ",") {
			mods += ",0"
		}
	}

	out := base
	if mods != "" {
		out += "(" + mods + ")"
	}
	if array {
		out += "[]"
	}
	return out
}

func isSerialType(raw string) bool {
	return serialTypes[strings.ToLower(strings.TrimSpace(raw))]
}
