package config

import (
	"os"
	"strconv"

	"github.com/engram/engram/internal/logging"
)

var log = logging.GetLogger("config")

// parseIntEnv reads key as an integer, returning def if the variable is
// unset, unparsable, or rejected by valid. This is the fallback-to-default
// rule: a malformed ENGRAM_HTTP_PORT never aborts startup, it just logs a
// warning and keeps going.
func parseIntEnv(key string, def int, valid func(int) bool) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Warn("invalid integer value, using default", "key", key, "value", s, "default", def)
		return def
	}
	if valid != nil && !valid(n) {
		log.Warn("value out of range, using default", "key", key, "value", s, "default", def)
		return def
	}
	return n
}

func parseFloatEnv(key string, def float64) float64 {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Warn("invalid float value, using default", "key", key, "value", s, "default", def)
		return def
	}
	return f
}

func parseBoolEnv(key string, def bool) bool {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	switch s {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		log.Warn("invalid boolean value, using default", "key", key, "value", s, "default", def)
		return def
	}
}

func validPort(n int) bool {
	return n >= 0 && n <= 65535
}
