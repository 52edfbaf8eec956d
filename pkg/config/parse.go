package config

import (
	"strconv"
	"strings"
)

var facilityNames = map[string]int{
	"kern":     0,
	"user":     1,
	"mail":     2,
	"daemon":   3,
	"auth":     4,
	"syslog":   5,
	"lpr":      6,
	"news":     7,
	"uucp":     8,
	"cron":     9,
	"authpriv": 10,
	"ftp":      11,
	"local0":   16,
	"local1":   17,
	"local2":   18,
	"local3":   19,
	"local4":   20,
	"local5":   21,
	"local6":   22,
	"local7":   23,
}

var levelNames = map[string]int{
	"emerg":   LevelEmerg,
	"alert":   LevelAlert,
	"crit":    LevelCrit,
	"err":     LevelErr,
	"warning": LevelWarning,
	"notice":  LevelNotice,
	"info":    LevelInfo,
	"debug":   LevelDebug,
}

var levelLabels = map[int]string{
	LevelEmerg:   "emerg",
	LevelAlert:   "alert",
	LevelCrit:    "crit",
	LevelErr:     "err",
	LevelWarning: "warning",
	LevelNotice:  "notice",
	LevelInfo:    "info",
	LevelDebug:   "debug",
}

// ParseFacility maps a canonical syslog facility name, or "*", to its
// code. "*" yields Any.
func ParseFacility(s string) (int, bool) {
	if s == "*" {
		return Any, true
	}
	n, ok := facilityNames[s]
	return n, ok
}

// ParseLevel maps a canonical syslog severity name, or "*", to its
// code. "*" yields Any.
func ParseLevel(s string) (int, bool) {
	if s == "*" {
		return Any, true
	}
	n, ok := levelNames[s]
	return n, ok
}

// LevelName returns the canonical name of a severity code for
// diagnostics, or "*" for Any.
func LevelName(level int) string {
	if level == Any {
		return "*"
	}
	if name, ok := levelLabels[level]; ok {
		return name
	}
	return strconv.Itoa(level)
}

// trimSuffixFold removes suffix from s if present, comparing
// case-insensitively.
func trimSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) {
		return s, false
	}
	tail := s[len(s)-len(suffix):]
	if !strings.EqualFold(tail, suffix) {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}

// ParseSize parses an integer with an optional K/KB (x1024) or M/MB
// (x1024^2) suffix, case-insensitive.
func ParseSize(s string) (int64, bool) {
	multiplier := int64(1)

	if trimmed, ok := trimSuffixFold(s, "KB"); ok {
		s, multiplier = trimmed, 1024
	} else if trimmed, ok := trimSuffixFold(s, "K"); ok {
		s, multiplier = trimmed, 1024
	} else if trimmed, ok := trimSuffixFold(s, "MB"); ok {
		s, multiplier = trimmed, 1024*1024
	} else if trimmed, ok := trimSuffixFold(s, "M"); ok {
		s, multiplier = trimmed, 1024*1024
	}

	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return n * multiplier, true
}

// ParseKeyValue splits an argument of the form "KEY=VALUE". The key may
// not be empty, the value may.
func ParseKeyValue(arg string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", "", false
	}
	return key, value, true
}
