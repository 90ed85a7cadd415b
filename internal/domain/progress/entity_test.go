package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

func TestStatus_Rank(t *testing.T) {
	assert.Equal(t, 1, StatusSeen.Rank())
	assert.Equal(t, 2, StatusCompleted.Rank())
	assert.Equal(t, 0, Status("skipped").Rank())
	assert.Equal(t, 0, Status("").Rank())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("seen")
	require.NoError(t, err)
	assert.Equal(t, StatusSeen, s)

	s, err = ParseStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseStatus("SEEN")
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	_, err = ParseStatus("done")
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestMerge_Monotonic(t *testing.T) {
	tests := []struct {
		name      string
		existing  Status
		requested Status
		want      Status
	}{
		{"seen upgrades to completed", StatusSeen, StatusCompleted, StatusCompleted},
		{"completed never downgrades", StatusCompleted, StatusSeen, StatusCompleted},
		{"seen repeat is no-op", StatusSeen, StatusSeen, StatusSeen},
		{"completed repeat is no-op", StatusCompleted, StatusCompleted, StatusCompleted},
		{"invalid never downgrades", StatusCompleted, Status("bogus"), StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.existing, tt.requested))
		})
	}
}
