package handlers

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bleepstore/blobstore/blobstore"
)

// ContainerHandler contains the JSON API operations for containers,
// listings and engine statistics. Its methods have the signature expected by
// huma.Register.
type ContainerHandler struct {
	engine       *blobstore.Engine
	listPageSize int
}

// NewContainerHandler creates a new ContainerHandler. listPageSize is the
// page size used when a listing request does not specify a limit.
func NewContainerHandler(engine *blobstore.Engine, listPageSize int) *ContainerHandler {
	if listPageSize <= 0 {
		listPageSize = 1000
	}
	return &ContainerHandler{engine: engine, listPageSize: listPageSize}
}

// ContainerInput addresses a single container.
type ContainerInput struct {
	Container string `path:"container" doc:"Container name"`
}

// DeleteContainerInput addresses a container to delete.
type DeleteContainerInput struct {
	Container string `path:"container" doc:"Container name"`
	Force     bool   `query:"force" doc:"Delete the container together with its objects"`
}

// ContainerOutput returns a container's metadata.
type ContainerOutput struct {
	Body ContainerInfo
}

// ContainerInfo is a container's metadata plus its current object count.
type ContainerInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Objects   int       `json:"objects"`
}

// ListContainersOutput lists container names in ascending order.
type ListContainersOutput struct {
	Body struct {
		Containers []string `json:"containers"`
	}
}

// ListObjectsInput selects a page of a container listing.
type ListObjectsInput struct {
	Container string `path:"container" doc:"Container name"`
	Offset    int    `query:"offset" minimum:"0" doc:"Number of names to skip"`
	Limit     int    `query:"limit" minimum:"0" doc:"Maximum number of names to return (0 uses the server default)"`
}

// ListObjectsOutput is one page of object names.
type ListObjectsOutput struct {
	Body ObjectPage
}

// ObjectPage is one page of a sorted object listing.
type ObjectPage struct {
	Container string   `json:"container"`
	Objects   []string `json:"objects"`
	Offset    int      `json:"offset"`
	Total     int      `json:"total"`
	// NextOffset is set when more names follow this page.
	NextOffset *int `json:"next_offset,omitempty"`
}

// DeleteObjectsInput names objects to remove from one container.
type DeleteObjectsInput struct {
	Container string `path:"container" doc:"Container name"`
	Body      struct {
		Objects []string `json:"objects" doc:"Object names; missing names are ignored"`
	}
}

// StatsOutput reports engine totals.
type StatsOutput struct {
	Body StatsBody
}

// StatsBody is the JSON body of the stats endpoint.
type StatsBody struct {
	Containers int    `json:"containers"`
	Objects    int    `json:"objects"`
	Bytes      uint64 `json:"bytes"`
	Size       string `json:"size" doc:"Bytes in human-readable form"`
}

// ListContainers handles GET /containers.
func (h *ContainerHandler) ListContainers(ctx context.Context, _ *struct{}) (*ListContainersOutput, error) {
	out := &ListContainersOutput{}
	out.Body.Containers = h.engine.ListContainers()
	return out, nil
}

// CreateContainer handles PUT /containers/{container}.
func (h *ContainerHandler) CreateContainer(ctx context.Context, in *ContainerInput) (*ContainerOutput, error) {
	if err := h.engine.CreateContainer(in.Container); err != nil {
		return nil, toAPIError(err)
	}
	return h.info(in.Container)
}

// GetContainer handles GET /containers/{container}.
func (h *ContainerHandler) GetContainer(ctx context.Context, in *ContainerInput) (*ContainerOutput, error) {
	return h.info(in.Container)
}

func (h *ContainerHandler) info(name string) (*ContainerOutput, error) {
	meta, err := h.engine.ContainerMetadata(name)
	if err != nil {
		return nil, toAPIError(err)
	}
	count, err := h.engine.ObjectCount(name)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ContainerOutput{Body: ContainerInfo{
		Name:      meta.Name,
		CreatedAt: meta.CreatedAt,
		Objects:   count,
	}}, nil
}

// DeleteContainer handles DELETE /containers/{container}. Without force the
// container must be empty.
func (h *ContainerHandler) DeleteContainer(ctx context.Context, in *DeleteContainerInput) (*struct{}, error) {
	var err error
	if in.Force {
		err = h.engine.DestroyContainer(in.Container)
	} else {
		err = h.engine.DeleteContainer(in.Container)
	}
	if err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}

// ClearContainer handles DELETE /containers/{container}/objects.
func (h *ContainerHandler) ClearContainer(ctx context.Context, in *ContainerInput) (*struct{}, error) {
	if err := h.engine.ClearContainer(in.Container); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}

// ListObjects handles GET /containers/{container}/objects. Each request
// lists a fresh snapshot, so pages may shift if the container changes
// between requests.
func (h *ContainerHandler) ListObjects(ctx context.Context, in *ListObjectsInput) (*ListObjectsOutput, error) {
	c, err := h.engine.Container(in.Container)
	if err != nil {
		return nil, toAPIError(err)
	}
	names, err := c.ListObjects()
	if err != nil {
		return nil, toAPIError(err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = h.listPageSize
	}

	names.Skip(in.Offset)
	batch, end := names.Read(limit)

	page := ObjectPage{
		Container: in.Container,
		Objects:   batch,
		Offset:    min(in.Offset, names.Len()),
		Total:     names.Len(),
	}
	if !end {
		next := names.Position()
		page.NextOffset = &next
	}
	return &ListObjectsOutput{Body: page}, nil
}

// DeleteObjects handles POST /containers/{container}/delete.
func (h *ContainerHandler) DeleteObjects(ctx context.Context, in *DeleteObjectsInput) (*struct{}, error) {
	if err := h.engine.DeleteObjects(in.Container, in.Body.Objects); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}

// Stats handles GET /stats.
func (h *ContainerHandler) Stats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	st := h.engine.Stats()
	return &StatsOutput{Body: StatsBody{
		Containers: st.Containers,
		Objects:    st.Objects,
		Bytes:      st.Bytes,
		Size:       humanize.IBytes(st.Bytes),
	}}, nil
}
