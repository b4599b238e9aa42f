package msiexec

import "github.com/pkg/errors"

// UILevel selects how much installer UI msiexec presents. The zero
// value requests the executor's default interactive UI.
type UILevel int

const (
	UIDefault UILevel = iota
	UINone
	UIBasic
	UIReduced
	UIFull
)

func (u UILevel) String() string {
	switch u {
	case UIDefault:
		return "default"
	case UINone:
		return "none"
	case UIBasic:
		return "basic"
	case UIReduced:
		return "reduced"
	case UIFull:
		return "full"
	}
	return "unknown"
}

// Set implements flag.Value.
func (u *UILevel) Set(value string) error {
	switch value {
	case "", "default":
		*u = UIDefault
	case "none":
		*u = UINone
	case "basic":
		*u = UIBasic
	case "reduced":
		*u = UIReduced
	case "full":
		*u = UIFull
	default:
		return errors.Errorf("unknown ui level %q (want default, none, basic, reduced, or full)", value)
	}
	return nil
}

// Args returns the msiexec switches for the level. The default level
// passes nothing, leaving the executor's own interactive behavior in
// place.
func (u UILevel) Args() []string {
	switch u {
	case UINone:
		return []string{"/qn"}
	case UIBasic:
		return []string{"/qb"}
	case UIReduced:
		return []string{"/qr"}
	case UIFull:
		return []string{"/qf"}
	}
	return nil
}
