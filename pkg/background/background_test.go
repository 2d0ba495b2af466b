package background

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerge_SameSeedSamePixels(t *testing.T) {
	g := NewGenerator(120, 200)
	a := g.Verge(42)
	b := g.Verge(42)
	require.Equal(t, a.Rect, b.Rect)
	assert.Equal(t, a.Pix, b.Pix)

	c := g.Verge(43)
	assert.NotEqual(t, a.Pix, c.Pix)
}

func TestVerge_Opaque(t *testing.T) {
	img := NewGenerator(64, 64).Verge(7)
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			t.Fatalf("pixel %d is not opaque", i/4)
		}
	}
}
