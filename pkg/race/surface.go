package race

// Surface is the rendering side of a session. Implementations draw entities
// they were told about and present one snapshot per frame.
type Surface interface {
	AddEntity(e Entity) error
	RemoveEntity(e Entity) error
	Present(s Snapshot) error
}

// NopSurface renders nothing, used for headless races
type NopSurface struct{}

func (NopSurface) AddEntity(Entity) error    { return nil }
func (NopSurface) RemoveEntity(Entity) error { return nil }
func (NopSurface) Present(Snapshot) error    { return nil }
