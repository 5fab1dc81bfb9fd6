package receipt

// ESC/POS control sequences understood by generic thermal printers
// (Star, Epson and clones). Text and control bytes are interleaved in
// one stream; transports decide on chunking, not this package.
const (
	esc = "\x1b"
	gs  = "\x1d"

	Init = esc + "@"

	BoldOn  = esc + "E\x01"
	BoldOff = esc + "E\x00"

	DoubleHeightOn = esc + "!\x10"
	DoubleWidthOn  = esc + "!\x20"
	DoubleOn       = esc + "!\x30"
	Normal         = esc + "!\x00"

	AlignLeft   = esc + "a\x00"
	AlignCenter = esc + "a\x01"
	AlignRight  = esc + "a\x02"

	LF = "\n"

	CutFull    = gs + "V\x00"
	CutPartial = gs + "V\x01"
)

// FeedLines advances the paper n lines before the cut.
func FeedLines(n int) string {
	return esc + "d" + string(rune(n))
}
