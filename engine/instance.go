package engine

// Instance is a live use of a module. It co-owns the module: the module's
// code stays mapped and registered for as long as any instance of it is
// open, regardless of when the creator closes its own handle.
type Instance struct {
	mod    *Module
	closed bool
}

// Instantiate opens an instance over m, taking a share of ownership.
func Instantiate(m *Module) (*Instance, error) {
	if err := m.retain(); err != nil {
		return nil, err
	}
	return &Instance{mod: m}, nil
}

// Module returns the instantiated module.
func (i *Instance) Module() *Module { return i.mod }

// EntryPC returns the address of the first byte of the module's text,
// usable as a known-resolvable pc in diagnostics.
func (i *Instance) EntryPC() uintptr { return i.mod.Text().Start }

// Close releases this instance's share of the module. Closing an instance
// twice is an error on the second call and releases nothing further.
func (i *Instance) Close() error {
	if i.closed {
		return ErrModuleClosed
	}
	i.closed = true
	return i.mod.Close()
}
