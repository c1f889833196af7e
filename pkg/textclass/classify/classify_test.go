package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/textclass/pkg/textclass/internalerr"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("svm")
	assert.ErrorIs(t, err, internalerr.ErrUnsupportedModelType)
}

func TestLabelsFirstSeenOrder(t *testing.T) {
	order, counts := Labels([]Example{
		{Label: "ui"}, {Label: "api"}, {Label: "ui"}, {Label: "ai"},
	})

	assert.Equal(t, []string{"ui", "api", "ai"}, order)
	assert.Equal(t, map[string]int{"ui": 2, "api": 1, "ai": 1}, counts)
}

func TestErrNoExamplesIsInsufficientData(t *testing.T) {
	assert.ErrorIs(t, ErrNoExamples, internalerr.ErrInsufficientData)
}
