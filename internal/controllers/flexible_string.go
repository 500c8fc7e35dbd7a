package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FlexibleString allows JSON fields to be provided as string or number
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	if fs == nil {
		return fmt.Errorf("FlexibleString: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*fs = FlexibleString(strings.TrimSpace(s))
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*fs = FlexibleString(num.String())
		return nil
	}

	return fmt.Errorf("FlexibleString: expected string or number, got %s", string(data))
}

func (fs FlexibleString) String() string {
	return string(fs)
}

// FlexibleFloat accepts 12.5 as well as "12.5". Set reports whether the
// field was present and non-null.
type FlexibleFloat struct {
	Value float64
	Set   bool
}

func (ff *FlexibleFloat) UnmarshalJSON(data []byte) error {
	var fs FlexibleString
	if err := fs.UnmarshalJSON(data); err != nil {
		return err
	}
	if fs == "" {
		return nil
	}
	v, err := strconv.ParseFloat(fs.String(), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("FlexibleFloat: %q is not a finite number", fs)
	}
	ff.Value = v
	ff.Set = true
	return nil
}

// FlexibleInt is the integer counterpart of FlexibleFloat.
type FlexibleInt struct {
	Value int
	Set   bool
}

func (fi *FlexibleInt) UnmarshalJSON(data []byte) error {
	var fs FlexibleString
	if err := fs.UnmarshalJSON(data); err != nil {
		return err
	}
	if fs == "" {
		return nil
	}
	v, err := strconv.Atoi(fs.String())
	if err != nil {
		return fmt.Errorf("FlexibleInt: %q is not an integer", fs)
	}
	fi.Value = v
	fi.Set = true
	return nil
}

var flexibleTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FlexibleTime accepts RFC3339 timestamps as well as the bare
// datetime-local and date strings HTML forms submit. Zone-less values are
// read as UTC.
type FlexibleTime struct {
	time.Time
}

func (ft *FlexibleTime) UnmarshalJSON(data []byte) error {
	var fs FlexibleString
	if err := fs.UnmarshalJSON(data); err != nil {
		return err
	}
	if fs == "" {
		return nil
	}
	for _, layout := range flexibleTimeLayouts {
		if t, err := time.Parse(layout, fs.String()); err == nil {
			ft.Time = t
			return nil
		}
	}
	return fmt.Errorf("FlexibleTime: unrecognised date %q", fs)
}
