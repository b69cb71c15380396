package capability

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_String(t *testing.T) {
	p := Params{
		"schoolId": "s1",
		"capacity": float64(25),
		"isLab":    true,
		"tags":     []string{"first", "second"},
		"empty":    []string{},
	}

	assert.Equal(t, "s1", p.String("schoolId"))
	assert.Equal(t, "25", p.String("capacity"))
	assert.Equal(t, "true", p.String("isLab"))
	assert.Equal(t, "first", p.String("tags"))
	assert.Equal(t, "", p.String("empty"))
	assert.Equal(t, "", p.String("missing"))
	assert.True(t, p.Has("capacity"))
	assert.False(t, p.Has("missing"))
}

type bindTarget struct {
	Name        string     `json:"name"`
	Capacity    *int       `json:"capacity"`
	IsLab       *bool      `json:"isLab"`
	Resources   []string   `json:"resources"`
	Established *time.Time `json:"established"`
	Untouched   *string    `json:"untouched"`
}

func TestParams_Bind(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		check  func(t *testing.T, got bindTarget)
	}{
		{
			name: "json body types",
			params: Params{
				"name":        "Lab A",
				"capacity":    float64(24),
				"isLab":       true,
				"resources":   []any{"microscope", "sink"},
				"established": "1998-09-01T00:00:00Z",
			},
			check: func(t *testing.T, got bindTarget) {
				assert.Equal(t, "Lab A", got.Name)
				require.NotNil(t, got.Capacity)
				assert.Equal(t, 24, *got.Capacity)
				require.NotNil(t, got.IsLab)
				assert.True(t, *got.IsLab)
				assert.Equal(t, []string{"microscope", "sink"}, got.Resources)
				require.NotNil(t, got.Established)
				assert.Equal(t, 1998, got.Established.Year())
				assert.Nil(t, got.Untouched)
			},
		},
		{
			name: "weakly typed query values",
			params: Params{
				"capacity":    "40",
				"isLab":       "false",
				"resources":   "projector",
				"established": "2001-02-03",
			},
			check: func(t *testing.T, got bindTarget) {
				require.NotNil(t, got.Capacity)
				assert.Equal(t, 40, *got.Capacity)
				require.NotNil(t, got.IsLab)
				assert.False(t, *got.IsLab)
				assert.Equal(t, []string{"projector"}, got.Resources)
				assert.Equal(t, time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC), *got.Established)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bindTarget
			require.NoError(t, tt.params.Bind(&got))
			tt.check(t, got)
		})
	}
}

func TestParams_BindRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"unparseable date", Params{"established": "last tuesday"}},
		{"word for an int", Params{"capacity": "thirty"}},
		{"fractional number", Params{"capacity": 25.5}},
		{"number beyond int64", Params{"capacity": 1e20}},
		{"not a number", Params{"capacity": math.NaN()}},
		{"infinity", Params{"capacity": math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bindTarget
			assert.Error(t, tt.params.Bind(&got))
		})
	}
}

func TestParams_BindIntegralFloats(t *testing.T) {
	var got struct {
		Small int8  `json:"small"`
		Count uint  `json:"count"`
		Large int64 `json:"large"`
	}
	require.NoError(t, Params{"small": float64(-128), "count": float64(7), "large": float64(1 << 52)}.Bind(&got))
	assert.Equal(t, int8(-128), got.Small)
	assert.Equal(t, uint(7), got.Count)
	assert.Equal(t, int64(1<<52), got.Large)

	assert.Error(t, Params{"small": float64(200)}.Bind(&got))
	assert.Error(t, Params{"count": float64(-1)}.Bind(&got))
}
