package blobstore

// Container is a handle bound to one named container of an Engine. It holds
// no state of its own: handles with the same engine and name are
// interchangeable, and a change made through one is visible through all.
type Container struct {
	name   string
	engine *Engine
}

// Name returns the container name.
func (c *Container) Name() string {
	return c.name
}

// Info returns the container metadata.
func (c *Container) Info() (ContainerMetadata, error) {
	return c.engine.ContainerMetadata(c.name)
}

// GetData reads the inclusive byte range [start, end] of an object.
func (c *Container) GetData(name string, start, end uint64) (*IncomingValue, error) {
	data, err := c.engine.ObjectData(c.name, name, &Range{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return NewIncomingValue(data), nil
}

// GetAllData reads a whole object.
func (c *Container) GetAllData(name string) (*IncomingValue, error) {
	data, err := c.engine.ObjectData(c.name, name, nil)
	if err != nil {
		return nil, err
	}
	return NewIncomingValue(data), nil
}

// ReadObject reads an object's metadata and bytes as one consistent
// snapshot. pick selects the range as in Engine.ReadObject.
func (c *Container) ReadObject(name string, pick RangeFunc) (ObjectMetadata, *IncomingValue, error) {
	meta, data, err := c.engine.ReadObject(c.name, name, pick)
	if err != nil {
		return ObjectMetadata{}, nil, err
	}
	return meta, NewIncomingValue(data), nil
}

// WriteData creates or replaces an object with the contents of a finished
// OutgoingValue.
func (c *Container) WriteData(name string, value *OutgoingValue) error {
	if value == nil {
		return InvalidOperation("outgoing value must not be nil")
	}
	data, err := value.frozen()
	if err != nil {
		return InvalidOperation("outgoing value must be finished before writing")
	}
	return c.engine.PutObjectData(c.name, name, data)
}

// ListObjects returns a cursor over a snapshot of the container's object
// names.
func (c *Container) ListObjects() (*ObjectNames, error) {
	names, err := c.engine.ListObjects(c.name)
	if err != nil {
		return nil, err
	}
	return NewObjectNames(names), nil
}

// DeleteObject removes an object. A missing object is not an error.
func (c *Container) DeleteObject(name string) error {
	return c.engine.DeleteObject(c.name, name)
}

// DeleteObjects removes several objects. Missing names are ignored.
func (c *Container) DeleteObjects(names []string) error {
	return c.engine.DeleteObjects(c.name, names)
}

// HasObject reports whether the object exists.
func (c *Container) HasObject(name string) (bool, error) {
	return c.engine.ObjectExists(c.name, name)
}

// ObjectInfo returns an object's metadata.
func (c *Container) ObjectInfo(name string) (ObjectMetadata, error) {
	return c.engine.ObjectMetadata(c.name, name)
}

// Clear removes every object, leaving the container in place.
func (c *Container) Clear() error {
	return c.engine.ClearContainer(c.name)
}
