package scan

// Direction is the scanner-selected movement: boarding the bus or alighting.
// The UI picks it explicitly; the server validates it against the checkpoint
// phase regardless of client intent.
type Direction string

const (
	CheckIn  Direction = "CHECK_IN"
	CheckOut Direction = "CHECK_OUT"
)

// ParseDirection validates a submitted direction.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(s); d {
	case CheckIn, CheckOut:
		return d, true
	}
	return "", false
}
