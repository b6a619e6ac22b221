package domain

import (
	"fmt"

	"tablekit/internal/codec"
)

// Flag marks a message
type Flag int

const (
	FlagNormal Flag = iota
	FlagPinned
	FlagArchived
)

var flagTags = map[Flag]string{
	FlagNormal:   "normal",
	FlagPinned:   "pinned",
	FlagArchived: "archived",
}

// Flags lists every flag in declaration order
func Flags() []Flag {
	return []Flag{FlagNormal, FlagPinned, FlagArchived}
}

// FlagCodec stores flags as their tags
func FlagCodec() *codec.Enum[Flag] {
	return codec.NewEnum(flagTags, Flags()...)
}

func (f Flag) String() string {
	if tag, ok := flagTags[f]; ok {
		return tag
	}
	return fmt.Sprintf("flag(%d)", int(f))
}

// ParseFlag converts a tag to Flag
func ParseFlag(s string) (Flag, error) {
	for f, tag := range flagTags {
		if tag == s {
			return f, nil
		}
	}
	return FlagNormal, fmt.Errorf("unknown flag %q", s)
}
