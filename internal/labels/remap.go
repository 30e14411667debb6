// Package labels rewrites YOLO-style annotation files onto a unified class id.
//
// Each non-blank line is "<class> <values...>". A line whose value tokens form
// whole quadruples is split into one box per quadruple; anything else degrades
// to a single line with only the class token replaced. Value tokens are carried
// through verbatim and never reparsed as numbers.
package labels

import (
	"strconv"
	"strings"
)

const (
	// minBoxTokens is the token count of a single well-formed box line.
	minBoxTokens = 5
	// boxValues is the number of positional values per box.
	boxValues = 4
)

// TallyPolicy decides which class id an emitted line is counted under.
type TallyPolicy int

const (
	// TallyTarget counts every emitted line under the target id.
	TallyTarget TallyPolicy = iota
	// TallyOriginal counts fallback lines under their original class token,
	// falling back to the target id when that token is not an integer.
	TallyOriginal
)

// String implements fmt.Stringer
func (p TallyPolicy) String() string {
	switch p {
	case TallyTarget:
		return "target"
	case TallyOriginal:
		return "original"
	default:
		return "unknown"
	}
}

// Box is one emitted annotation: the target class and four verbatim values.
type Box struct {
	Class  int
	Values [boxValues]string
}

// String formats the box as an annotation line.
func (b Box) String() string {
	return strconv.Itoa(b.Class) + " " + strings.Join(b.Values[:], " ")
}

// Result is the outcome of remapping one annotation file.
type Result struct {
	Content   string // rewritten file content
	Lines     int    // emitted lines
	Fallbacks int    // lines emitted through a fallback path
	Tally     Tally  // emitted lines per counted class id
}

// Remap rewrites content so every emitted line carries target as its class id.
func Remap(content string, target int, policy TallyPolicy) Result {
	targetTok := strconv.Itoa(target)
	res := Result{Tally: make(Tally)}

	var out []string
	for _, raw := range splitLines(content) {
		tokens := strings.Fields(raw)
		if len(tokens) == 0 {
			continue
		}

		values := tokens[1:]
		if len(tokens) >= minBoxTokens && len(values)%boxValues == 0 {
			for i := 0; i < len(values); i += boxValues {
				var box Box
				box.Class = target
				copy(box.Values[:], values[i:i+boxValues])
				out = append(out, box.String())
				res.Tally.Add(target, 1)
			}
			continue
		}

		// Short line or trailing tokens that don't form quadruples: keep every
		// token, replace only the class.
		counted := target
		if policy == TallyOriginal {
			counted = ParseClassID(tokens[0]).Or(target)
		}
		line := make([]string, len(tokens))
		copy(line, tokens)
		line[0] = targetTok
		out = append(out, strings.Join(line, " "))
		res.Tally.Add(counted, 1)
		res.Fallbacks++
	}

	res.Lines = len(out)
	if len(out) > 0 {
		res.Content = strings.Join(out, "\n") + "\n"
	}
	return res
}

// splitLines splits on \n, \r\n and bare \r. Blank lines are dropped.
func splitLines(content string) []string {
	return strings.FieldsFunc(content, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
}

// ClassIDParse is the result of parsing a class token.
type ClassIDParse struct {
	Value int
	OK    bool
}

// ParseClassID parses a class token as a base-10 integer.
func ParseClassID(token string) ClassIDParse {
	v, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return ClassIDParse{}
	}
	return ClassIDParse{Value: v, OK: true}
}

// Or returns the parsed value, or fallback when parsing failed.
func (p ClassIDParse) Or(fallback int) int {
	if p.OK {
		return p.Value
	}
	return fallback
}
