package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCompletion = `**Analysis:**

Students often forget to distribute.

**New Question:**

What is the value of \( x \) if \( 2x + 3 = 11 \)?
(A) \( 2 \)
(B) \( 4 \)
(C) \( 5 \)

**Answer:**

(B)

**Explanation:**

Subtract 3 and divide by 2.`

func TestParseClone(t *testing.T) {
	got, err := ParseClone(sampleCompletion)
	require.NoError(t, err)
	assert.Equal(t, "Students often forget to distribute.", got.Analysis)
	assert.Equal(t, "B", got.Answer)
	assert.Equal(t, "Subtract 3 and divide by 2.", got.Explanation)
	assert.Contains(t, got.Question, `What is the value of \( x \)`)
	assert.NotContains(t, got.Question, "**")
}

func TestParseCloneMissingSections(t *testing.T) {
	_, err := ParseClone("**New Question:** x\n**Explanation:** y")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseClone("no structure at all")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseCloneInvalidAnswer(t *testing.T) {
	_, err := ParseClone("**New Question:** q\n**Answer:** none\n**Explanation:** e")
	assert.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestPrepareLatex(t *testing.T) {
	assert.Equal(t, `If \( x \) then`, PrepareLatex(`If <b>\\( x \\)</b> then`))
	assert.Equal(t, `a \(b\) c`, PrepareLatex(`a\(b\)c`))
	assert.Equal(t, "", PrepareLatex(""))
}
