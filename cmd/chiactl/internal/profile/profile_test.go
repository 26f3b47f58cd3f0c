package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"cpu", CPU, false},
		{"gpu", GPU, false},
		{"", "", true},
		{"tpu", "", true},
		{"GPU", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProfile)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAcceleratorCount(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"0", CPU, false},
		{"1", GPU, false},
		{"4", GPU, false},
		{"-1", "", true},
		{"two", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FromAcceleratorCount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProfile)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelector_Resolve(t *testing.T) {
	sel := Selector{
		BaseFile:       "docker-compose.yml",
		GPUOverlayFile: "docker-compose.gpu.yml",
	}

	t.Run("cpu returns base only", func(t *testing.T) {
		files, err := sel.Resolve(CPU)
		require.NoError(t, err)
		assert.Equal(t, []string{"docker-compose.yml"}, files)
	})

	t.Run("gpu returns base then overlay", func(t *testing.T) {
		files, err := sel.Resolve(GPU)
		require.NoError(t, err)
		assert.Equal(t, []string{"docker-compose.yml", "docker-compose.gpu.yml"}, files)
	})

	t.Run("unknown profile fails", func(t *testing.T) {
		_, err := sel.Resolve(Profile("npu"))
		assert.ErrorIs(t, err, ErrUnknownProfile)
	})

	t.Run("gpu without overlay fails", func(t *testing.T) {
		_, err := Selector{BaseFile: "docker-compose.yml"}.Resolve(GPU)
		assert.ErrorIs(t, err, ErrUnknownProfile)
	})
}
