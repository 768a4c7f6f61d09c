package config

import (
	"fmt"
	"strings"
)

// AllKeys is the default directory pagination: the digit bucket followed by a-z.
var AllKeys = func() []string {
	keys := []string{"1"}
	for r := 'a'; r <= 'z'; r++ {
		keys = append(keys, string(r))
	}
	return keys
}()

// ParseKeys expands a key selection into ordered, de-duplicated index keys.
//
// The selection is a comma-separated list of chunks. A chunk of the form "a-f"
// is an inclusive range; any other chunk contributes each of its characters.
// Keys are lower-cased and must be in [0-9a-z].
func ParseKeys(selection string) ([]string, error) {
	selection = strings.ToLower(strings.TrimSpace(selection))
	if selection == "" {
		return nil, fmt.Errorf("no index keys selected")
	}

	seen := make(map[rune]struct{})
	var keys []string
	add := func(r rune) error {
		if !isKeyRune(r) {
			return fmt.Errorf("invalid index key %q (expected 0-9 or a-z)", string(r))
		}
		if _, ok := seen[r]; ok {
			return nil
		}
		seen[r] = struct{}{}
		keys = append(keys, string(r))
		return nil
	}

	for _, chunk := range strings.Split(selection, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		runes := []rune(chunk)
		if len(runes) == 3 && runes[1] == '-' {
			lo, hi := runes[0], runes[2]
			if !isKeyRune(lo) || !isKeyRune(hi) || !sameClass(lo, hi) || lo > hi {
				return nil, fmt.Errorf("invalid index key range %q", chunk)
			}
			for r := lo; r <= hi; r++ {
				if err := add(r); err != nil {
					return nil, err
				}
			}
			continue
		}
		for _, r := range runes {
			if err := add(r); err != nil {
				return nil, err
			}
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no index keys selected")
	}
	return keys, nil
}

func isKeyRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z')
}

func sameClass(a, b rune) bool {
	digit := func(r rune) bool { return r >= '0' && r <= '9' }
	return digit(a) == digit(b)
}
