package blobstore

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Operation names reported to an Observer.
const (
	OpCreateContainer  = "CreateContainer"
	OpContainerExists  = "ContainerExists"
	OpContainerInfo    = "ContainerMetadata"
	OpDeleteContainer  = "DeleteContainer"
	OpDestroyContainer = "DestroyContainer"
	OpClearContainer   = "ClearContainer"
	OpListContainers   = "ListContainers"
	OpListObjects      = "ListObjects"
	OpGetObject        = "GetObjectData"
	OpPutObject        = "PutObjectData"
	OpDeleteObject     = "DeleteObject"
	OpDeleteObjects    = "DeleteObjects"
	OpObjectExists     = "ObjectExists"
	OpObjectInfo       = "ObjectMetadata"
	OpCopyObject       = "CopyObject"
	OpMoveObject       = "MoveObject"
)

// Observer receives the outcome of every engine operation. It is called
// after the engine lock has been released and must be safe for concurrent use.
type Observer interface {
	ObserveOperation(op string, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for mutation tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver sets the operation observer.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		e.observer = obs
	}
}

// WithClock sets the source of creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine is an in-memory, two-level blob store: named containers holding
// named objects. A single readers-writer lock guards the whole
// container/object map. Queries share the lock; mutations hold it
// exclusively. All methods are safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	containers map[string]*storedContainer

	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// New creates an empty Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		containers: make(map[string]*storedContainer),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// observe reports an operation outcome and returns err unchanged.
func (e *Engine) observe(op string, err error) error {
	if e.observer != nil {
		e.observer.ObserveOperation(op, err)
	}
	return err
}

// containerLocked returns the named container. The caller must hold e.mu.
func (e *Engine) containerLocked(name string) (*storedContainer, error) {
	c, found := e.containers[name]
	if !found {
		return nil, ErrContainerNotFound.WithName(name)
	}
	return c, nil
}

// objectLocked returns the named object. The caller must hold e.mu.
func (e *Engine) objectLocked(container, object string) (*storedObject, error) {
	c, err := e.containerLocked(container)
	if err != nil {
		return nil, err
	}
	obj, found := c.objects[object]
	if !found {
		return nil, ErrObjectNotFound.WithName(object)
	}
	return obj, nil
}

// CreateContainer creates a new empty container.
func (e *Engine) CreateContainer(name string) error {
	return e.observe(OpCreateContainer, e.createContainer(name))
}

func (e *Engine) createContainer(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.containers[name]; exists {
		return ErrContainerAlreadyExists.WithName(name)
	}
	e.containers[name] = &storedContainer{
		meta:    ContainerMetadata{Name: name, CreatedAt: e.now()},
		objects: make(map[string]*storedObject),
	}
	e.logger.Debug("container created", "container", name)
	return nil
}

// ContainerExists reports whether the named container exists.
func (e *Engine) ContainerExists(name string) bool {
	e.mu.RLock()
	_, exists := e.containers[name]
	e.mu.RUnlock()

	e.observe(OpContainerExists, nil)
	return exists
}

// ContainerMetadata returns the metadata of the named container.
func (e *Engine) ContainerMetadata(name string) (ContainerMetadata, error) {
	e.mu.RLock()
	c, err := e.containerLocked(name)
	var meta ContainerMetadata
	if err == nil {
		meta = c.meta
	}
	e.mu.RUnlock()

	return meta, e.observe(OpContainerInfo, err)
}

// DeleteContainer removes an empty container. It fails with
// ErrContainerNotEmpty while any object remains.
func (e *Engine) DeleteContainer(name string) error {
	return e.observe(OpDeleteContainer, e.deleteContainer(name, false))
}

// DestroyContainer removes a container together with all of its objects in
// one exclusive step.
func (e *Engine) DestroyContainer(name string) error {
	return e.observe(OpDestroyContainer, e.deleteContainer(name, true))
}

func (e *Engine) deleteContainer(name string, force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.containerLocked(name)
	if err != nil {
		return err
	}
	if !force && len(c.objects) > 0 {
		return ErrContainerNotEmpty.WithName(name)
	}
	delete(e.containers, name)
	e.logger.Debug("container deleted", "container", name, "objects", len(c.objects))
	return nil
}

// ClearContainer removes every object from the container, leaving its
// metadata intact.
func (e *Engine) ClearContainer(name string) error {
	return e.observe(OpClearContainer, e.clearContainer(name))
}

func (e *Engine) clearContainer(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.containerLocked(name)
	if err != nil {
		return err
	}
	cleared := len(c.objects)
	c.objects = make(map[string]*storedObject)
	e.logger.Debug("container cleared", "container", name, "objects", cleared)
	return nil
}

// ListContainers returns the names of all containers in ascending order.
func (e *Engine) ListContainers() []string {
	e.mu.RLock()
	names := make([]string, 0, len(e.containers))
	for name := range e.containers {
		names = append(names, name)
	}
	e.mu.RUnlock()

	slices.Sort(names)
	e.observe(OpListContainers, nil)
	return names
}

// ListObjects returns the names of the objects in a container in ascending
// order.
func (e *Engine) ListObjects(container string) ([]string, error) {
	e.mu.RLock()
	c, err := e.containerLocked(container)
	var names []string
	if err == nil {
		names = make([]string, 0, len(c.objects))
		for name := range c.objects {
			names = append(names, name)
		}
	}
	e.mu.RUnlock()

	if err != nil {
		return nil, e.observe(OpListObjects, err)
	}
	slices.Sort(names)
	return names, e.observe(OpListObjects, nil)
}

// ObjectData returns a copy of an object's bytes. A nil range returns the
// whole object; otherwise both bounds are inclusive and the end is clamped to
// the object size.
func (e *Engine) ObjectData(container, object string, rng *Range) ([]byte, error) {
	data, err := e.objectData(container, object, rng)
	return data, e.observe(OpGetObject, err)
}

func (e *Engine) objectData(container, object string, rng *Range) ([]byte, error) {
	_, data, err := e.readObject(container, object, func(uint64) (*Range, error) {
		return rng, nil
	})
	return data, err
}

// RangeFunc picks the inclusive byte range to read from an object of the
// given size. A nil range selects the whole object.
type RangeFunc func(size uint64) (*Range, error)

// ReadObject returns an object's metadata and a copy of its bytes, both
// taken under one read lock so they always describe the same version of the
// object. If pick is non-nil it is called under that lock with the object
// size and its range is validated and applied as in ObjectData. An error
// from pick is returned unchanged.
func (e *Engine) ReadObject(container, object string, pick RangeFunc) (ObjectMetadata, []byte, error) {
	meta, data, err := e.readObject(container, object, pick)
	return meta, data, e.observe(OpGetObject, err)
}

func (e *Engine) readObject(container, object string, pick RangeFunc) (ObjectMetadata, []byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	obj, err := e.objectLocked(container, object)
	if err != nil {
		return ObjectMetadata{}, nil, err
	}

	data := obj.data
	if pick != nil {
		rng, err := pick(uint64(len(data)))
		if err != nil {
			return ObjectMetadata{}, nil, err
		}
		if rng != nil {
			if err := validateRange(rng.Start, rng.End, uint64(len(data))); err != nil {
				return ObjectMetadata{}, nil, err
			}
			data = sliceRange(data, rng.Start, rng.End)
		}
	}

	// Return a copy so callers cannot mutate the stored slice.
	out := make([]byte, len(data))
	copy(out, data)
	return obj.meta, out, nil
}

// PutObjectData creates or wholesale replaces an object. Overwrites are
// silent. The engine keeps its own copy of data.
func (e *Engine) PutObjectData(container, object string, data []byte) error {
	return e.observe(OpPutObject, e.putObjectData(container, object, data))
}

func (e *Engine) putObjectData(container, object string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.containerLocked(container)
	if err != nil {
		return err
	}
	c.objects[object] = &storedObject{
		meta: ObjectMetadata{
			Name:      object,
			Container: container,
			CreatedAt: e.now(),
			Size:      uint64(len(stored)),
		},
		data: stored,
	}
	e.logger.Debug("object written", "container", container, "object", object, "size", len(stored))
	return nil
}

// DeleteObject removes an object. Deleting an object that does not exist is
// not an error.
func (e *Engine) DeleteObject(container, object string) error {
	return e.observe(OpDeleteObject, e.deleteObjects(container, []string{object}))
}

// DeleteObjects removes several objects from one container. Missing names
// are ignored.
func (e *Engine) DeleteObjects(container string, names []string) error {
	return e.observe(OpDeleteObjects, e.deleteObjects(container, names))
}

func (e *Engine) deleteObjects(container string, names []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.containerLocked(container)
	if err != nil {
		return err
	}
	for _, name := range names {
		delete(c.objects, name)
	}
	return nil
}

// ObjectExists reports whether the object exists in the container.
func (e *Engine) ObjectExists(container, object string) (bool, error) {
	e.mu.RLock()
	c, err := e.containerLocked(container)
	var exists bool
	if err == nil {
		_, exists = c.objects[object]
	}
	e.mu.RUnlock()

	return exists, e.observe(OpObjectExists, err)
}

// ObjectMetadata returns the metadata of an object.
func (e *Engine) ObjectMetadata(container, object string) (ObjectMetadata, error) {
	e.mu.RLock()
	obj, err := e.objectLocked(container, object)
	var meta ObjectMetadata
	if err == nil {
		meta = obj.meta
	}
	e.mu.RUnlock()

	return meta, e.observe(OpObjectInfo, err)
}

// CopyObject copies src to dest, overwriting any object already at dest.
// The source and both containers are checked and the copy inserted under a
// single exclusive lock, so concurrent writers never observe a partial copy.
func (e *Engine) CopyObject(src, dest ObjectID) error {
	e.mu.Lock()
	err := e.copyLocked(src, dest)
	e.mu.Unlock()

	return e.observe(OpCopyObject, err)
}

// MoveObject moves src to dest, overwriting any object already at dest.
// The copy and the removal of the source happen under one exclusive lock:
// either both take effect or neither does. Moving an object onto itself
// leaves it in place.
func (e *Engine) MoveObject(src, dest ObjectID) error {
	e.mu.Lock()
	err := e.copyLocked(src, dest)
	if err == nil && src != dest {
		delete(e.containers[src.Container].objects, src.Object)
	}
	e.mu.Unlock()

	return e.observe(OpMoveObject, err)
}

// copyLocked performs the copy half of CopyObject and MoveObject. The caller
// must hold e.mu exclusively.
func (e *Engine) copyLocked(src, dest ObjectID) error {
	obj, err := e.objectLocked(src.Container, src.Object)
	if err != nil {
		return err
	}
	dc, err := e.containerLocked(dest.Container)
	if err != nil {
		return err
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)

	meta := obj.meta
	meta.Name = dest.Object
	meta.Container = dest.Container
	meta.CreatedAt = e.now()

	dc.objects[dest.Object] = &storedObject{meta: meta, data: data}
	e.logger.Debug("object copied",
		"src_container", src.Container, "src_object", src.Object,
		"dest_container", dest.Container, "dest_object", dest.Object)
	return nil
}

// ContainerCount returns the number of containers.
func (e *Engine) ContainerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.containers)
}

// ObjectCount returns the number of objects in a container.
func (e *Engine) ObjectCount(container string) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, err := e.containerLocked(container)
	if err != nil {
		return 0, err
	}
	return len(c.objects), nil
}

// Stats returns container, object and byte totals across the engine.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Stats{Containers: len(e.containers)}
	for _, c := range e.containers {
		st.Objects += len(c.objects)
		for _, obj := range c.objects {
			st.Bytes += uint64(len(obj.data))
		}
	}
	return st
}

// NewContainer creates a container and returns a handle bound to it.
func (e *Engine) NewContainer(name string) (*Container, error) {
	if err := e.CreateContainer(name); err != nil {
		return nil, err
	}
	return &Container{name: name, engine: e}, nil
}

// Container returns a handle bound to an existing container.
func (e *Engine) Container(name string) (*Container, error) {
	if !e.ContainerExists(name) {
		return nil, ErrContainerNotFound.WithName(name)
	}
	return &Container{name: name, engine: e}, nil
}
