package workbook

import (
	"fmt"
	"strings"
)

// MaxSheetNameLen is the spreadsheet format's sheet-name limit, in characters.
const MaxSheetNameLen = 31

const ellipsis = "..."

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")",
	":", "-", "*", "-", "?", "-",
	"/", "-", `\`, "-",
)

// Namer hands out sheet names that are valid and unique within one workbook.
// Uniqueness is case-insensitive, as spreadsheet applications compare names
// that way.
type Namer struct {
	used map[string]bool
}

// NewNamer returns a Namer with no names taken.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]bool)}
}

// Name returns a sheet name for want. Forbidden characters are replaced, long
// names are cut to fit with a trailing "...", and a name already handed out
// gets " (2)", " (3)" and so on.
func (n *Namer) Name(want string) string {
	base := clean(want)
	name := fit(base, "")
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		name = fit(base, fmt.Sprintf(" (%d)", i))
	}
	n.used[strings.ToLower(name)] = true
	return name
}

func clean(s string) string {
	s = sheetNameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, "'")
	if s == "" {
		return "Sheet"
	}
	return s
}

// fit truncates base so that base+suffix fits the length limit.
func fit(base, suffix string) string {
	runes := []rune(base)
	room := MaxSheetNameLen - len([]rune(suffix))
	if len(runes) <= room {
		return base + suffix
	}
	cut := room - len(ellipsis)
	return strings.TrimRight(string(runes[:cut]), " ") + ellipsis + suffix
}
