package shaders

import (
	"fmt"
	"strings"
)

// Feature flags understood by the GLSL sources. Every program is compiled
// with each of them defined to 1 or 0.
const (
	FlagSkybox       = "MCM_SKYBOX"
	FlagRefract      = "MCM_REFRACT"
	FlagBones        = "MCM_BONES"
	FlagShadows      = "MCM_SHADOWS"
	FlagFBO          = "MCM_FBO"
	FlagGoodGraphics = "MCM_GOOD_GRAPHICS"
	FlagSSAO         = "MCM_SSAO"
	FlagLL           = "MCM_LL"
	FlagBright       = "MCM_BRIGHT"
	FlagGodrays      = "MCM_GODRAYS"
	FlagHDR          = "MCM_HDR"
	FlagToonify      = "MCM_TOONIFY"
	FlagGrayscale    = "MCM_GRAYSCALE"
	FlagMotionBlur   = "MCM_MOTBLUR"
	FlagSSR          = "MCM_SSR"
	FlagText         = "MCM_TEXT"
	Flag1D           = "MCM_1D"
	FlagSky          = "MCM_SKY"
)

// KnownFlags lists every flag in the order the preprocessor defines them.
var KnownFlags = []string{
	FlagSkybox, FlagRefract, FlagBones, FlagShadows, FlagFBO,
	FlagGoodGraphics, FlagSSAO, FlagLL, FlagBright,
	FlagGodrays, FlagHDR, FlagToonify, FlagGrayscale, FlagMotionBlur, FlagSSR,
	FlagText, Flag1D, FlagSky,
}

// Key identifies one program variant: "base,FLAG_A,FLAG_B?geom_suffix".
type Key struct {
	Base     string
	Flags    []string
	Geometry string
}

// ParseKey parses a variant key. Whitespace around tokens is ignored.
func ParseKey(s string) (Key, error) {
	var k Key
	body, geom, hasGeom := strings.Cut(s, "?")
	if hasGeom {
		k.Geometry = strings.TrimSpace(geom)
		if k.Geometry == "" {
			return Key{}, fmt.Errorf("shader key %q: empty geometry suffix", s)
		}
	}
	parts := strings.Split(body, ",")
	k.Base = strings.TrimSpace(parts[0])
	if k.Base == "" {
		return Key{}, fmt.Errorf("shader key %q: empty base name", s)
	}
	for _, p := range parts[1:] {
		f := strings.TrimSpace(p)
		if f == "" {
			return Key{}, fmt.Errorf("shader key %q: empty flag", s)
		}
		if !k.Has(f) {
			k.Flags = append(k.Flags, f)
		}
	}
	return k, nil
}

// String formats the key in its wire form.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Base)
	for _, f := range k.Flags {
		b.WriteByte(',')
		b.WriteString(f)
	}
	if k.Geometry != "" {
		b.WriteByte('?')
		b.WriteString(k.Geometry)
	}
	return b.String()
}

// Has reports whether flag is set on the key.
func (k Key) Has(flag string) bool {
	for _, f := range k.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Variant builds a key string from a base name and the flags whose condition
// holds. Pass an empty geometry suffix for programs without a geometry stage.
//
//	Variant("lightadder", "", On(FlagShadows, shadows), On(FlagSSAO, ssao))
func Variant(base, geometry string, flags ...string) string {
	k := Key{Base: base, Geometry: geometry}
	for _, f := range flags {
		if f != "" && !k.Has(f) {
			k.Flags = append(k.Flags, f)
		}
	}
	return k.String()
}

// On returns flag when cond holds and "" otherwise, for use with Variant.
func On(flag string, cond bool) string {
	if cond {
		return flag
	}
	return ""
}
