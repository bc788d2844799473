package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var returns an environment variable stripped of leading and trailing quotes
// and spaces. When the variable is unset the config file value, if any, is
// returned instead.
func Var(key string) string {
	if s := strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"' "); s != "" {
		return s
	}

	return GetConfigValue(key)
}

// LogLevel returns the log level for the application.
// Values are 0 or false INFO (Default), 1 or true DEBUG, 2 TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("BPE_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

var (
	// Workers sets the number of corpus counting workers. Zero means no override.
	Workers = Uint("BPE_WORKERS", 0)
	// VocabSize sets the default target vocabulary size for training.
	VocabSize = Uint("BPE_VOCAB_SIZE", 0)
)

// SpecialTokens returns the default special tokens, a comma separated list
// set via BPE_SPECIAL_TOKENS.
func SpecialTokens() (tokens []string) {
	if s := Var("BPE_SPECIAL_TOKENS"); s != "" {
		for t := range strings.SplitSeq(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
	}

	return tokens
}

func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}

		return defaultValue
	}
}

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BPE_DEBUG":          {"BPE_DEBUG", LogLevel(), "Show additional debug information (e.g. BPE_DEBUG=1, BPE_DEBUG=2 for trace)"},
		"BPE_WORKERS":        {"BPE_WORKERS", Workers(), "Number of corpus counting workers (default min(8, cpus))"},
		"BPE_VOCAB_SIZE":     {"BPE_VOCAB_SIZE", VocabSize(), "Default target vocabulary size"},
		"BPE_SPECIAL_TOKENS": {"BPE_SPECIAL_TOKENS", SpecialTokens(), "A comma separated list of default special tokens"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
