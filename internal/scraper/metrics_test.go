package scraper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "423", want: 423},
		{in: "1,234", want: 1234},
		{in: "1.2K", want: 1200},
		{in: "12.3K", want: 12300},
		{in: "1.2M", want: 1200000},
		{in: "5m", want: 5000000},
		{in: "2B", want: 2000000000},
		{in: " 7 K ", want: 7000},
		{in: "99999999999B", want: math.MaxInt},
		{in: "1e300", want: math.MaxInt},
		{in: "n/a", wantErr: true},
		{in: "K", wantErr: true},
		{in: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Zero(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMediaURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "https://pbs.twimg.com/media/Gabc123?format=jpg&name=small",
			want: "https://pbs.twimg.com/media/Gabc123?format=jpg&name=large",
		},
		{
			in:   "https://pbs.twimg.com/media/Gabc123",
			want: "https://pbs.twimg.com/media/Gabc123?format=jpg&name=large",
		},
		{
			in:   "https://video.twimg.com/ext_tw_video/1/pu/vid/720x1280/a.mp4",
			want: "https://video.twimg.com/ext_tw_video/1/pu/vid/720x1280/a.mp4",
		},
		{in: "blob:https://x.com/5d1e", want: ""},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeMediaURL(tt.in), tt.in)
	}
}
