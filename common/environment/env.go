// Package environment applies environment-variable overrides on top of an
// already populated configuration struct.
//
// Unlike a plain "value or default" lookup, a malformed value is reported
// rather than silently ignored: an operator who sets LIST_BATCH_SIZE=ten
// should hear about it instead of getting the default.
package environment

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Overlay reads variables and writes parsed values into caller-owned fields.
// Parse failures are collected and returned together by Err.
type Overlay struct {
	lookup func(string) (string, bool)
	errs   []error
}

// New returns an Overlay that reads the process environment.
func New() *Overlay {
	return &Overlay{lookup: os.LookupEnv}
}

// FromMap returns an Overlay backed by m instead of the process environment.
func FromMap(m map[string]string) *Overlay {
	return &Overlay{lookup: func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}}
}

// get returns the trimmed value of name. Unset and blank are the same.
func (o *Overlay) get(name string) (string, bool) {
	v, ok := o.lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (o *Overlay) fail(name, value, want string, err error) {
	o.errs = append(o.errs, fmt.Errorf("%s=%q: expected %s: %w", name, value, want, err))
}

// String sets *dst when name is set and non-blank.
func (o *Overlay) String(name string, dst *string) {
	if v, ok := o.get(name); ok {
		*dst = v
	}
}

// FirstString sets *dst from the first of names that is set and non-blank.
func (o *Overlay) FirstString(dst *string, names ...string) {
	for _, n := range names {
		if v, ok := o.get(n); ok {
			*dst = v
			return
		}
	}
}

// Int sets *dst from a decimal integer.
func (o *Overlay) Int(name string, dst *int) {
	v, ok := o.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		o.fail(name, v, "an integer", err)
		return
	}
	*dst = n
}

// Bool sets *dst using strconv.ParseBool, plus "yes"/"no" and "on"/"off".
func (o *Overlay) Bool(name string, dst *bool) {
	v, ok := o.get(name)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		*dst = true
		return
	case "no", "off":
		*dst = false
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		o.fail(name, v, "a boolean", err)
		return
	}
	*dst = b
}

// Duration sets *dst from a Go duration ("30s", "2m"). A bare integer is
// taken as seconds.
func (o *Overlay) Duration(name string, dst *time.Duration) {
	v, ok := o.get(name)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		o.fail(name, v, "a duration", err)
		return
	}
	*dst = d
}

// Err returns every parse failure seen so far, or nil.
func (o *Overlay) Err() error {
	return errors.Join(o.errs...)
}

// StringOr returns the value of the named environment variable, or
// defaultValue if the variable is unset or blank.
func StringOr(name, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return defaultValue
}
