package renderer

import (
	"image/color"
	"math/rand"

	"github.com/pthm-cable/snowdrift/canvas"
)

// starSize is the reference sprite extent before scaling.
const starSize = 9

var starColors = [...]color.RGBA{
	{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}, // gold
	{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}, // gold1
	{R: 0x8b, G: 0x75, B: 0x00, A: 0xff}, // gold4
	{R: 0xff, G: 0xa5, B: 0x00, A: 0xff}, // orange
}

type star struct {
	x, y  int
	color int
}

// Stars is the twinkling decoration across the top quarter of the display.
type Stars struct {
	rng     *rand.Rand
	stars   []star
	sprites [len(starColors)]*canvas.Raster
}

// NewStars scatters count stars over the top quarter of a w×h display.
// scale is the combined user and display scale.
func NewStars(rng *rand.Rand, count, w, h int, scale float64) *Stars {
	s := &Stars{rng: rng, stars: make([]star, max(count, 0))}
	for i := range s.stars {
		s.stars[i] = star{
			x:     randint(rng, w),
			y:     randint(rng, h/4),
			color: rng.Intn(len(starColors)),
		}
	}

	base := starSize * 0.8 * scale
	for i, c := range starColors {
		size := max(3, int(base*0.2*(1+4*rng.Float64())))
		s.sprites[i] = starSprite(size, c)
	}
	return s
}

// starSprite draws an eight-ray cross: both diagonals and both axes.
func starSprite(size int, c color.RGBA) *canvas.Raster {
	r := canvas.NewRaster(size, size)
	mid := size / 2
	for i := 0; i < size; i++ {
		r.Set(i, i, c)
		r.Set(i, size-1-i, c)
		r.Set(i, mid, c)
		r.Set(mid, i, c)
	}
	return r
}

// Len returns the number of stars.
func (s *Stars) Len() int { return len(s.stars) }

// Twinkle re-picks the color of about a fifth of the stars.
func (s *Stars) Twinkle() {
	for i := range s.stars {
		if s.rng.Float64() > 0.8 {
			s.stars[i].color = s.rng.Intn(len(starColors))
		}
	}
}

// Draw blits every star onto dst and returns the rectangles touched.
func (s *Stars) Draw(dst *canvas.Raster, alpha float64, damage *Damage) {
	for _, st := range s.stars {
		damage.Add(dst.Blit(s.sprites[st.color], st.x, st.y, alpha))
	}
}

func randint(rng *rand.Rand, m int) int {
	if m <= 0 {
		return 0
	}
	return rng.Intn(m)
}
