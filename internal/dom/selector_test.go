package dom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	t.Parallel()

	got, err := Flatten([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "a > b > c", got)

	_, err = Flatten(nil)
	assert.ErrorIs(t, err, ErrEmptyHierarchy)
}

func TestValidateLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		valid bool
	}{
		{"cat_dog", true},
		{"catdog", true},
		{"_title_", true},
		{"cat dog!", false},
		{" catdog", false},
		{"catdog!", false},
		{"cat2", false},
		{"", false},
		{"___", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			t.Parallel()

			err := ValidateLabel(tt.label)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var labelErr *LabelError
			require.True(t, errors.As(err, &labelErr), "got %v", err)
			assert.Equal(t, tt.label, labelErr.Label)
		})
	}
}

func TestNew_RejectsEmptyHierarchy(t *testing.T) {
	t.Parallel()

	_, err := New("title", nil)
	assert.ErrorIs(t, err, ErrEmptyHierarchy)
}

func TestNew_CopiesSegments(t *testing.T) {
	t.Parallel()

	segments := []string{"body", "div"}
	s, err := New("box", segments)
	require.NoError(t, err)

	segments[1] = "span"

	assert.Equal(t, "body > div", s.String())
}

func TestSelector_PopInvalidatesCache(t *testing.T) {
	t.Parallel()

	s := MustNew("button", "body", "div", "div", "button")
	before, err := s.CSS()
	require.NoError(t, err)

	s.Pop()

	after, err := s.CSS()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, "body > div > div", after)
	assert.Equal(t, []string{"body", "div", "div"}, s.Segments())
}

func TestSelector_PopToEmpty(t *testing.T) {
	t.Parallel()

	s := MustNew("only", "h1")
	s.Pop()
	s.Pop()

	assert.True(t, s.IsEmpty())
	_, err := s.CSS()
	assert.ErrorIs(t, err, ErrEmptyHierarchy)
	_, err = s.Query()
	assert.ErrorIs(t, err, ErrEmptyHierarchy)
}

func TestSelector_SetHierarchy(t *testing.T) {
	t.Parallel()

	s := MustNew("title", "#app", "div", "h1")
	_, err := s.CSS()
	require.NoError(t, err)

	s.SetHierarchy([]string{"#other"})

	assert.Equal(t, "#other", s.String())
	assert.Equal(t, "title", s.Label())
}

func TestSelector_Query(t *testing.T) {
	t.Parallel()

	s := MustNew("link", `a[href="/x"]`)

	q, err := s.Query()
	require.NoError(t, err)
	assert.Equal(t, `document.querySelector("a[href=\"/x\"]")`, q)
}

func TestSelector_QueryEscapesForJS(t *testing.T) {
	t.Parallel()

	s := MustNew("odd", "[data-x=\"a\ab\"]")

	q, err := s.Query()
	require.NoError(t, err)
	assert.Equal(t, `document.querySelector("[data-x=\"a\u0007b\"]")`, q)
}

func TestMustNew_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustNew("bad label", "div") })
}
