package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, page, size string
		want             Page
		offset           int
		err              bool
	}{
		{name: "none", want: Page{}, offset: 0},
		{name: "page only", page: "3", want: Page{Number: 3, Size: DefaultPageSize}, offset: 40},
		{name: "size only", size: "5", want: Page{Number: 1, Size: 5}, offset: 0},
		{name: "clamped", page: "2", size: "1000", want: Page{Number: 2, Size: MaxPageSize}, offset: 100},
		{name: "zero page", page: "0", err: true},
		{name: "garbage size", size: "x", err: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePage(tt.page, tt.size)
			if tt.err {
				require.ErrorIs(t, err, ErrBadPage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.offset, got.Offset())
		})
	}
}
