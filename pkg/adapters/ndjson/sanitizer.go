package ndjson

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxLineSize bounds one intent line.
	DefaultMaxLineSize = 4096
	// EnvMaxLineSize overrides DefaultMaxLineSize.
	EnvMaxLineSize = "PULSE_MAX_INTENT_SIZE"
)

var (
	ErrLineTooLarge = errors.New("intent line exceeds maximum allowed size")
	ErrInvalidUTF8  = errors.New("intent line contains invalid UTF-8 sequences")
)

// SanitizeLine enforces the size limit, validates UTF-8 and strips control
// characters so hostile input cannot corrupt logs or the terminal.
// Oversized lines are rejected, never truncated.
func SanitizeLine(line string, limit int) (string, error) {
	if len(line) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrLineTooLarge, len(line), limit)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range line {
		if unicode.IsControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return line, nil
	}

	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func maxLineSizeFromEnv() int {
	if val := os.Getenv(EnvMaxLineSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxLineSize
}
