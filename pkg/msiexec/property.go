package msiexec

import (
	"strings"

	"github.com/pkg/errors"
)

// ValidateProperty checks an installer property argument. msiexec
// accepts PROP= to clear a property and PROP=VALUE to set one, so the
// argument must contain exactly one equals sign.
func ValidateProperty(value string) error {
	if value == "" {
		return errors.New("property cannot be empty")
	}

	if strings.Count(value, "=") != 1 {
		return errors.Errorf("property %q requires PROP= or PROP=VALUE", value)
	}

	if strings.HasPrefix(value, "=") {
		return errors.Errorf("property %q has no name", value)
	}

	return nil
}
