package tally

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCountAcrossRows(t *testing.T) {
	c := Count([]string{"A, B", "A"})
	assert.Equal(t, 2, c.Get("A"))
	assert.Equal(t, 1, c.Get("B"))
	assert.Equal(t, 0, c.Get("C"))
	assert.Equal(t, 3, c.Total())

	// Order of rows does not change the counts.
	d := Count([]string{"A", "B , A"})
	if diff := cmp.Diff(c.Items(), d.Items()); diff != "" {
		t.Errorf("counts differ (-first +second):\n%s", diff)
	}
}

func TestCountOrdering(t *testing.T) {
	c := Count([]string{"x,y", "y,z", "z,y"})
	want := []Item{{"y", 3}, {"z", 2}, {"x", 1}}
	if diff := cmp.Diff(want, c.Items()); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
	assert.Equal(t, []Item{{"y", 3}}, c.Top(1))
	assert.Len(t, c.Top(0), 3)
	assert.Len(t, c.Top(10), 3)
}

func TestCountIgnoresEmpty(t *testing.T) {
	c := Count([]string{"", " , ", "精度が低い,"})
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Get("精度が低い"))

	empty := Count(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 0, empty.Get("x"))
}

func TestWords(t *testing.T) {
	c := Words([]string{"Cursor が便利。Cursor", "a, 便利"})
	assert.Equal(t, 2, c.Get("cursor"))
	assert.Equal(t, 1, c.Get("便利"))
	assert.Equal(t, 0, c.Get("a"))
}

func TestWordsKeepsSingleNonASCIIRune(t *testing.T) {
	c := Words([]string{"x 卒 ab Z"})
	assert.Equal(t, 0, c.Get("x"))
	assert.Equal(t, 0, c.Get("z"))
	assert.Equal(t, 1, c.Get("卒"))
	assert.Equal(t, 1, c.Get("ab"))
}

func TestNormalizeAndPreview(t *testing.T) {
	assert.Equal(t, "一行目 二行目", Normalize("一行目\r\n二行目\n"))
	assert.Equal(t, "あいう...", Preview("あいうえお", 3))
	assert.Equal(t, "あいう", Preview("あいう", 3))
}
