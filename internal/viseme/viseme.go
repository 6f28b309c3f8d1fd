// Package viseme maps spoken text onto the 15-shape Oculus viseme set and
// builds timed lip-sync timelines from character-level speech timing.
package viseme

// Shape is one of the 15 Oculus lip-sync viseme IDs.
type Shape int

const (
	Sil Shape = iota // silence
	PP               // p, b, m
	FF               // f, v
	TH               // th
	DD               // t, d
	KK               // k, g
	CH               // ch, j, sh
	SS               // s, z
	NN               // n, l
	RR               // r
	AA               // open a
	E                // e as in "bed"
	IH               // i as in "sit"
	OH               // o as in "go"
	OU               // u as in "boot"
)

// ShapeCount is the size of the viseme set, used to validate puppet models.
const ShapeCount = 15

var shapeNames = [ShapeCount]string{
	"sil", "PP", "FF", "TH", "DD", "KK", "CH", "SS", "NN", "RR",
	"aa", "E", "ih", "oh", "ou",
}

// String returns the conventional morph-target suffix for the shape.
func (s Shape) String() string {
	if s < 0 || int(s) >= ShapeCount {
		return "sil"
	}
	return shapeNames[s]
}

// Valid reports whether s is inside the viseme set.
func (s Shape) Valid() bool {
	return s >= 0 && int(s) < ShapeCount
}

// graphemeShapes maps lowercase letters and digraphs to visemes. Unknown
// letters fall back to a neutral open mouth.
var graphemeShapes = map[string]Shape{
	"th": TH, "ch": CH, "sh": CH,

	"p": PP, "b": PP, "m": PP,
	"f": FF, "v": FF,
	"t": DD, "d": DD,
	"k": KK, "g": KK, "c": KK, "q": KK, "x": KK,
	"j": CH,
	"s": SS, "z": SS,
	"n": NN, "l": NN,
	"r": RR,
	"a": AA, "h": AA,
	"e": E,
	"i": IH, "y": IH,
	"o": OH,
	"u": OU, "w": OU,
}

// SequenceForText converts a chunk of text into the viseme shapes a mouth
// passes through while speaking it. Consecutive duplicates collapse;
// non-letters contribute nothing.
func SequenceForText(text string) []Shape {
	if text == "" {
		return nil
	}

	shapes := make([]Shape, 0, len(text))
	chars := []byte(lower(text))

	for i := 0; i < len(chars); i++ {
		ch := chars[i]
		if ch < 'a' || ch > 'z' {
			continue
		}

		grapheme := string(ch)
		if i+1 < len(chars) && isDigraph(string(chars[i:i+2])) {
			grapheme = string(chars[i : i+2])
			i++
		}

		shape, ok := graphemeShapes[grapheme]
		if !ok {
			shape = AA
		}
		if len(shapes) > 0 && shapes[len(shapes)-1] == shape {
			continue
		}
		shapes = append(shapes, shape)
	}

	return shapes
}

func isDigraph(s string) bool {
	return s == "th" || s == "ch" || s == "sh"
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
