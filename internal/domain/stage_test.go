package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOrder(t *testing.T) {
	stages := []Stage{StageNew, StageModeling, StageFiring, StageColoring, StagePrefinal, StageFinished}

	for i := 0; i < len(stages)-1; i++ {
		next, err := stages[i].Next()
		require.NoError(t, err)
		assert.Equal(t, stages[i+1], next)
	}
}

func TestStageNextTerminal(t *testing.T) {
	_, err := StageFinished.Next()
	assert.ErrorIs(t, err, ErrTerminalStage)
}

func TestStageValid(t *testing.T) {
	assert.True(t, StageNew.Valid())
	assert.True(t, StageFinished.Valid())
	assert.False(t, Stage(-1).Valid())
	assert.False(t, Stage(6).Valid())
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageFinished.Terminal())
	assert.False(t, StagePrefinal.Terminal())
	assert.False(t, StageNew.Terminal())
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageNew, "new"},
		{StageModeling, "modeling"},
		{StageFiring, "firing"},
		{StageColoring, "coloring"},
		{StagePrefinal, "prefinal"},
		{StageFinished, "finished"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.stage.String())
	}
}

func TestParseStage(t *testing.T) {
	for _, name := range []string{"new", "modeling", "firing", "coloring", "prefinal", "finished"} {
		stage, err := ParseStage(name)
		require.NoError(t, err)
		assert.Equal(t, name, stage.String())
	}

	_, err := ParseStage("glazing")
	assert.ErrorIs(t, err, ErrInvalidStage)
}
