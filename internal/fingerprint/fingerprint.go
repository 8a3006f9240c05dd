// Package fingerprint derives a best-effort device identifier from client
// environment signals. It is not a security boundary: the hash is djb2, not
// cryptographic, and collisions are acceptable.
package fingerprint

import (
	"fmt"
	"strconv"
	"strings"
)

// Sentinel is returned when no client signals exist (a server-side
// execution context). It is distinct from any real fingerprint so a render
// pass never registers as a device mismatch.
const Sentinel = "server"

// Signals are the browser-environment inputs a client reports.
type Signals struct {
	UserAgent           string `json:"userAgent"`
	Language            string `json:"language"`
	ScreenWidth         int    `json:"screenWidth"`
	ScreenHeight        int    `json:"screenHeight"`
	ColorDepth          int    `json:"colorDepth"`
	TimezoneOffsetMin   int    `json:"timezoneOffset"`
	HardwareConcurrency int    `json:"hardwareConcurrency"`
	Canvas              string `json:"canvas"`
}

// Empty reports whether no usable signals were supplied at all.
func (s Signals) Empty() bool {
	return s.UserAgent == "" && s.Language == "" && s.ScreenWidth == 0 &&
		s.ScreenHeight == 0 && s.Canvas == ""
}

// Derive combines the signals into a deterministic 8-hex-char identifier.
// The same signals always produce the same id; nothing more is promised.
func Derive(s Signals) string {
	if s.Empty() {
		return Sentinel
	}

	concurrency := "unknown"
	if s.HardwareConcurrency > 0 {
		concurrency = strconv.Itoa(s.HardwareConcurrency)
	}
	canvas := s.Canvas
	if canvas == "" {
		canvas = "no-canvas"
	}

	components := []string{
		s.UserAgent,
		s.Language,
		fmt.Sprintf("%dx%d", s.ScreenWidth, s.ScreenHeight),
		strconv.Itoa(s.ColorDepth),
		strconv.Itoa(s.TimezoneOffsetMin),
		concurrency,
		canvas,
	}

	return hash(strings.Join(components, "|"))
}

// hash is djb2 over an unsigned 32-bit domain: h = h*33 XOR byte.
func hash(s string) string {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = (h * 33) ^ uint32(s[i])
	}
	return fmt.Sprintf("%08x", h)
}
