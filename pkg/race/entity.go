package race

// Kind tells obstacles, bonus boxes and golden keys apart
type Kind int

const (
	KindObstacle Kind = iota
	KindBonusBox
	KindGoldenKey
)

func (k Kind) String() string {
	switch k {
	case KindObstacle:
		return "obstacle"
	case KindBonusBox:
		return "bonus-box"
	case KindGoldenKey:
		return "golden-key"
	default:
		return "unknown"
	}
}

// ObstacleVariants is the number of cosmetic obstacle shapes
const ObstacleVariants = 3

// Entity is an object on the road owned by the active session
type Entity struct {
	ID        int64
	Kind      Kind
	X         float64 // lane centre in world X
	Z         float64
	Variant   int     // cosmetic shape, obstacles only
	Rotation  float64 // cosmetic spin, keys only
	Collected bool
}

// behind reports whether the entity has passed the car by more than margin
func (e *Entity) behind(carZ, margin float64) bool {
	return e.Z > carZ+margin
}

// within reports whether the entity overlaps the box around the car
func (e *Entity) within(carX, carZ, halfX, halfZ float64) bool {
	dz := e.Z - carZ
	dx := e.X - carX
	return dz < halfZ && dz > -halfZ && dx < halfX && dx > -halfX
}
