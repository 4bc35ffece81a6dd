package domain

// Flag is the classification of a measured value against its reference range.
type Flag string

const (
	FlagLow    Flag = "Low"
	FlagNormal Flag = "Normal"
	FlagHigh   Flag = "High"
)

// IsValid reports whether the flag is one of the declared values.
func (f Flag) IsValid() bool {
	switch f {
	case FlagLow, FlagNormal, FlagHigh:
		return true
	}
	return false
}
