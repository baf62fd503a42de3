package shaders

import (
	"strings"
)

const defaultVersion = "#version 430 core"

// Preprocess inserts a #define for every known flag right after the #version
// line: 1 for flags present in the key, 0 for the rest. Flags outside
// KnownFlags that appear in the key are defined to 1 as well.
func Preprocess(src string, k Key) string {
	var defs strings.Builder
	for _, f := range KnownFlags {
		v := "0"
		if k.Has(f) {
			v = "1"
		}
		defs.WriteString("#define " + f + " " + v + "\n")
	}
	for _, f := range k.Flags {
		if !isKnown(f) {
			defs.WriteString("#define " + f + " 1\n")
		}
	}

	version := defaultVersion
	body := src
	trimmed := strings.TrimLeft(src, " \t\r\n")
	if strings.HasPrefix(trimmed, "#version") {
		line, rest, _ := strings.Cut(trimmed, "\n")
		version = strings.TrimRight(line, "\r")
		body = rest
	}
	return version + "\n" + defs.String() + "#line 2\n" + body
}

func isKnown(flag string) bool {
	for _, f := range KnownFlags {
		if f == flag {
			return true
		}
	}
	return false
}
