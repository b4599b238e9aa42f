package msiexec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateProperty(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		in      string
		wantErr bool
	}{
		{in: "MSIFASTINSTALL=7"},
		{in: "REBOOT="},
		{in: "", wantErr: true},
		{in: "NOEQUALS", wantErr: true},
		{in: "A=B=C", wantErr: true},
		{in: "=VALUE", wantErr: true},
	}

	for _, tt := range tests {
		err := ValidateProperty(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
		} else {
			require.NoError(t, err, tt.in)
		}
	}
}
