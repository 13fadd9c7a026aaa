package core

import (
	"strconv"
	"strings"
	"time"
)

// envReader reads typed environment values. Unlike a silent default, a value
// that is set but malformed is recorded as a ConfigError so LoadConfig can
// report every bad key at once.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// String returns the trimmed value of key or def when unset.
func (r *envReader) String(key, def string) string {
	if v, ok := r.value(key); ok {
		return v
	}
	return def
}

func (r *envReader) Int(key string, def int) int {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, ErrInvalidValue(key, v, "expected an integer"))
		return def
	}
	return n
}

func (r *envReader) Float(key string, def float64) float64 {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, ErrInvalidValue(key, v, "expected a number"))
		return def
	}
	return f
}

// Bool accepts true/false, 1/0, yes/no and on/off in any case.
func (r *envReader) Bool(key string, def bool) bool {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		r.errs = append(r.errs, ErrInvalidValue(key, v, "expected true or false"))
		return def
	}
}

// Seconds reads an integer number of seconds.
func (r *envReader) Seconds(key string, def time.Duration) time.Duration {
	v, ok := r.value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, ErrInvalidValue(key, v, "expected whole seconds"))
		return def
	}
	return time.Duration(n) * time.Second
}
