package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	dp "github.com/forscht/relock/internal/dataprovider"
)

func TestPqErrToOs(t *testing.T) {
	other := errors.New("boom")

	tt := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "Nil", err: nil, expected: nil},
		{name: "Unique violation", err: &pq.Error{Code: "23505"}, expected: dp.ErrExist},
		{name: "Other pq error", err: &pq.Error{Code: "42P01"}},
		{name: "Not a pq error", err: other, expected: other},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := pqErrToOs(tc.err)
			if tc.expected == nil && tc.err != nil {
				require.Same(t, tc.err, got)
				return
			}
			require.Equal(t, tc.expected, got)
		})
	}
}
