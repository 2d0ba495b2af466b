package game

// Projection maps world coordinates onto the screen with a simple
// perspective: objects shrink and rise towards the horizon as they get
// further ahead of the car.
type Projection struct {
	Width, Height float64
	HorizonY      float64
	CarY          float64 // screen Y of the car
	PixelsPerX    float64 // at the car
	Depth         float64 // distance ahead at which objects are drawn half size
}

// DefaultProjection fits the road to a screen of w x h pixels
func DefaultProjection(w, h int) Projection {
	return Projection{
		Width:      float64(w),
		Height:     float64(h),
		HorizonY:   float64(h) * 0.18,
		CarY:       float64(h) - 110,
		PixelsPerX: 80.0 / 3,
		Depth:      40,
	}
}

// Scale is the size factor of something dist units ahead of the car
func (p Projection) Scale(dist float64) float64 {
	if nearest := -p.Depth / 2; dist < nearest {
		dist = nearest
	}
	return p.Depth / (p.Depth + dist)
}

// Project returns the screen position and size factor of a point at worldX, z
func (p Projection) Project(worldX, z, carZ float64) (x, y, scale float64) {
	// the car drives towards negative z
	scale = p.Scale(carZ - z)
	x = p.Width/2 + worldX*p.PixelsPerX*scale
	y = p.HorizonY + (p.CarY-p.HorizonY)*scale
	return x, y, scale
}

// RowScale is the size factor of the road at screen row y
func (p Projection) RowScale(y float64) float64 {
	if y <= p.HorizonY {
		return 0
	}
	return (y - p.HorizonY) / (p.CarY - p.HorizonY)
}

// Visible reports whether a projected point is on screen
func (p Projection) Visible(y float64) bool {
	return y >= p.HorizonY && y <= p.Height+40
}
