package smoketest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/testnetoor/pkg/prompt"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		input   string
		want    Answer
		wantErr bool
	}{
		{input: "Yes", want: Yes},
		{input: " y ", want: Yes},
		{input: "NO", want: No},
		{input: "n/a", want: NotApplicable},
		{input: "NA", want: NotApplicable},
		{input: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAnswer(tt.input)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlyph(t *testing.T) {
	assert.Equal(t, "✅", Glyph("Yes"))
	assert.Equal(t, "❌", Glyph("No"))
	assert.Equal(t, "N/A", Glyph("N/A"))
	assert.Equal(t, "?", Glyph("yes"))
	assert.Equal(t, "?", Glyph(""))
}

func TestValidate(t *testing.T) {
	answers := make(map[string]string, len(Questions))
	for _, q := range Questions {
		answers[q] = "Yes"
	}

	require.NoError(t, Validate(answers))

	answers[Questions[3]] = "perhaps"
	assert.Error(t, Validate(answers))

	delete(answers, Questions[3])
	assert.Error(t, Validate(answers))
}

func TestAsk(t *testing.T) {
	p := &prompt.Static{Choice: 1}

	answers, err := Ask(context.Background(), p, map[string]string{Questions[0]: "y"})
	require.NoError(t, err)
	require.Len(t, answers, len(Questions))
	assert.Equal(t, "Yes", answers[Questions[0]])
	assert.Equal(t, "No", answers[Questions[1]])
	assert.Len(t, p.Asked, len(Questions)-1)
	assert.NoError(t, Validate(answers))

	_, err = Ask(context.Background(), p, map[string]string{Questions[2]: "maybe"})
	assert.Error(t, err)

	_, err = Ask(context.Background(), &prompt.Static{Choice: 5}, nil)
	assert.Error(t, err)
}
