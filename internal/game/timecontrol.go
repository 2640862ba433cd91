package game

// TimeControl is a (base, increment) pair in seconds.
type TimeControl struct {
	TotalSeconds     int `json:"totalSeconds"`
	IncrementSeconds int `json:"incrementSeconds"`
}

// TimeControls is the fixed table clients choose from by index.
var TimeControls = []TimeControl{
	{TotalSeconds: 300, IncrementSeconds: 2},
	{TotalSeconds: 600, IncrementSeconds: 0},
	{TotalSeconds: 900, IncrementSeconds: 10},
	{TotalSeconds: 1800, IncrementSeconds: 15},
}

// DefaultTimeControlIndex is used when a client picks nothing or an
// out-of-range index.
const DefaultTimeControlIndex = 0

// TimeControlAt returns the table entry for a client's choice, falling
// back to the default for invalid indices.
func TimeControlAt(index int) TimeControl {
	if index < 0 || index >= len(TimeControls) {
		index = DefaultTimeControlIndex
	}
	return TimeControls[index]
}
