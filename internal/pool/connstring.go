// Package pool implements the fixed-size connection pool (spec §4.13):
// lazy connection creation up to a configured maximum, a checkout
// timeout, optional test-on-checkout validation, and connection-string
// parsing/sanitization/identity extraction. Grounded on FerretDB's
// internal/backends/sqlite/pool.go (a map-of-connections behind one
// mutex, created lazily on first use) generalized from "one DB per
// database name" to "up to N connections per pool, checked out and
// returned by callers".
package pool

import "strings"

// Option is one parsed key=value pair from an ODBC-style connection
// string, preserving the original key casing for diagnostics.
type Option struct {
	Key   string
	Value string
}

// ParseConnString splits a semicolon-delimited ODBC connection string
// into key/value options, honoring brace-quoted values that may
// themselves contain semicolons, e.g. `DRIVER={SQL Server};PWD={a;b}`.
// The braces themselves are not kept in the returned values.
func ParseConnString(connStr string) []Option {
	var opts []Option
	var key, val strings.Builder
	inBraces := false
	inKey := true

	flush := func() {
		k := strings.TrimSpace(key.String())
		if k != "" {
			opts = append(opts, Option{Key: k, Value: val.String()})
		}
		key.Reset()
		val.Reset()
		inKey = true
	}

	for _, r := range connStr {
		switch {
		case r == '{' && !inKey:
			inBraces = true
		case r == '}' && inBraces:
			inBraces = false
		case r == ';' && !inBraces:
			flush()
		case r == '=' && inKey:
			inKey = false
		case inKey:
			key.WriteRune(r)
		default:
			val.WriteRune(r)
		}
	}
	flush()
	return opts
}

// Lookup returns the value of the first option matching key
// case-insensitively, and whether it was found.
func Lookup(opts []Option, key string) (string, bool) {
	for _, o := range opts {
		if strings.EqualFold(o.Key, key) {
			return strings.Trim(o.Value, "{}"), true
		}
	}
	return "", false
}

// TestOnCheckoutKeys lists every case-insensitive connection-string key
// alias recognized for the test_on_check_out pool option (spec §4.12).
var TestOnCheckoutKeys = []string{
	"PoolTestOnCheckout",
	"TestOnCheckout",
	"Pool_Test_On_Checkout",
	"Pool_Test_On_Check_Out",
	"Test_On_Checkout",
	"Test_On_Check_Out",
}

// ParseBoolOption parses a connection-string option value using the
// spec's boolean grammar (spec §4.12): "1"/"true"/"yes"/"on" (any case)
// is true, "0"/"false"/"no"/"off" is false, anything else is
// unrecognized and reported via ok=false so the caller can fall through
// to its next resolution step instead of silently defaulting.
func ParseBoolOption(v string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// StripKeys removes every option whose key matches one of keys
// case-insensitively, rendering the rest back into a semicolon-joined
// connection string (spec §4.12: "the key/value is stripped from the
// string passed to the driver"). Unlike Sanitize, values are not masked.
// Values containing a semicolon are re-wrapped in braces; other values
// are written without braces.
func StripKeys(connStr string, keys ...string) string {
	opts := ParseConnString(connStr)
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		skip := false
		for _, k := range keys {
			if strings.EqualFold(o.Key, k) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		v := o.Value
		if strings.ContainsRune(v, ';') {
			v = "{" + v + "}"
		}
		parts = append(parts, o.Key+"="+v)
	}
	return strings.Join(parts, ";")
}

// sensitiveKeys are masked by Sanitize.
var sensitiveKeys = []string{"pwd", "password", "uid", "user", "user id"}

// Sanitize renders connStr with sensitive values replaced by "***",
// safe to place in logs or error messages.
func Sanitize(connStr string) string {
	opts := ParseConnString(connStr)
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		v := o.Value
		for _, s := range sensitiveKeys {
			if strings.EqualFold(o.Key, s) {
				v = "***"
				break
			}
		}
		parts = append(parts, o.Key+"="+v)
	}
	return strings.Join(parts, ";")
}

// ExtractIdentity derives the "server:port:user" pool-identity key used
// to decide whether two connection strings should share a pool.
func ExtractIdentity(connStr string) string {
	opts := ParseConnString(connStr)
	server, _ := Lookup(opts, "server")
	if server == "" {
		server, _ = Lookup(opts, "host")
	}
	port, _ := Lookup(opts, "port")
	user, _ := Lookup(opts, "uid")
	if user == "" {
		user, _ = Lookup(opts, "user")
	}
	return server + ":" + port + ":" + user
}
