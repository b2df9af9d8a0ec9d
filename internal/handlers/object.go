package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bleepstore/blobstore/blobstore"
)

// ObjectHandler contains handlers for object-level operations. Object bodies
// travel as raw bytes: uploads are staged in an OutgoingValue and downloads
// are streamed from an IncomingStream.
type ObjectHandler struct {
	engine        *blobstore.Engine
	maxObjectSize int64
	chunkSize     int
}

// NewObjectHandler creates a new ObjectHandler. A maxObjectSize of zero
// disables the upload limit; a chunkSize of zero uses the stream default.
func NewObjectHandler(engine *blobstore.Engine, maxObjectSize int64, chunkSize int) *ObjectHandler {
	return &ObjectHandler{
		engine:        engine,
		maxObjectSize: maxObjectSize,
		chunkSize:     chunkSize,
	}
}

// PutObject handles PUT /containers/{container}/objects/{object} and creates
// or replaces the object with the request body.
func (h *ObjectHandler) PutObject(w http.ResponseWriter, r *http.Request) {
	containerName := extractContainerName(r)
	name := extractObjectName(r)
	if name == "" {
		writeError(w, r, errMissingObjectName)
		return
	}

	if h.maxObjectSize > 0 && r.ContentLength > h.maxObjectSize {
		writeError(w, r, errEntityTooLarge)
		return
	}

	// Verify the container exists before reading the body.
	c, err := h.engine.Container(containerName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := io.Reader(r.Body)
	if h.maxObjectSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxObjectSize)
	}

	value, err := stageBody(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, errEntityTooLarge)
			return
		}
		slog.Warn("PutObject body read failed", "container", containerName, "object", name, "error", err)
		writeError(w, r, &APIError{
			Status:  http.StatusBadRequest,
			Code:    blobstore.ErrIO.Code,
			Message: fmt.Sprintf("reading request body: %v", err),
		})
		return
	}

	if err := c.WriteData(name, value); err != nil {
		writeError(w, r, err)
		return
	}

	meta, err := c.ObjectInfo(name)
	if err != nil {
		// Deleted by a concurrent request after the write.
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// stageBody copies body into a finished OutgoingValue.
func stageBody(body io.Reader) (*blobstore.OutgoingValue, error) {
	value := blobstore.NewOutgoingValue()
	stream, err := value.WriteBody()
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(stream, body); err != nil {
		return nil, err
	}
	if err := stream.Close(); err != nil {
		return nil, err
	}
	if err := value.Finish(); err != nil {
		return nil, err
	}
	return value, nil
}

// GetObject handles GET /containers/{container}/objects/{object} and streams
// the object body. A Range header selects an inclusive byte range and yields
// 206 Partial Content.
func (h *ObjectHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	containerName := extractContainerName(r)
	name := extractObjectName(r)
	if name == "" {
		writeError(w, r, errMissingObjectName)
		return
	}

	c, err := h.engine.Container(containerName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The range is resolved against the same snapshot the headers and body
	// come from.
	rangeHeader := r.Header.Get("Range")
	var (
		pick       blobstore.RangeFunc
		start, end uint64
		total      uint64
		rangeErr   error
	)
	if rangeHeader != "" {
		pick = func(size uint64) (*blobstore.Range, error) {
			total = size
			start, end, rangeErr = parseRange(rangeHeader, size)
			if rangeErr != nil {
				return nil, rangeErr
			}
			return &blobstore.Range{Start: start, End: end}, nil
		}
	}

	meta, value, err := c.ReadObject(name, pick)
	if err != nil {
		if rangeErr != nil {
			// 416 Range Not Satisfiable.
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", total))
		}
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if pick != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, meta.Size))
		status = http.StatusPartialContent
	}

	stream, err := value.ConsumeStream()
	if err != nil {
		writeError(w, r, err)
		return
	}
	stream.SetChunkSize(h.chunkSize)

	setObjectResponseHeaders(w, meta)
	w.Header().Set("Content-Length", strconv.FormatUint(value.Size(), 10))
	w.WriteHeader(status)

	if _, err := stream.WriteTo(w); err != nil {
		slog.Debug("GetObject write aborted", "container", containerName, "object", name, "error", err)
	}
}

// HeadObject handles HEAD /containers/{container}/objects/{object} and
// returns the object metadata as headers without a body.
func (h *ObjectHandler) HeadObject(w http.ResponseWriter, r *http.Request) {
	name := extractObjectName(r)
	if name == "" {
		writeError(w, r, errMissingObjectName)
		return
	}

	meta, err := h.engine.ObjectMetadata(extractContainerName(r), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	setObjectResponseHeaders(w, meta)
	w.WriteHeader(http.StatusOK)
}

// DeleteObject handles DELETE /containers/{container}/objects/{object}.
// Deleting a missing object succeeds; a missing container does not.
func (h *ObjectHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	name := extractObjectName(r)
	if name == "" {
		writeError(w, r, errMissingObjectName)
		return
	}

	if err := h.engine.DeleteObject(extractContainerName(r), name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferInput is the request of the copy and move operations.
type TransferInput struct {
	Body struct {
		Source      blobstore.ObjectID `json:"source" doc:"Object to read"`
		Destination blobstore.ObjectID `json:"destination" doc:"Object to create or replace"`
	}
}

// ObjectOutput returns an object's metadata.
type ObjectOutput struct {
	Body blobstore.ObjectMetadata
}

// CopyObject handles POST /copy. The destination is overwritten if present.
func (h *ObjectHandler) CopyObject(ctx context.Context, in *TransferInput) (*ObjectOutput, error) {
	src, dest := in.Body.Source, in.Body.Destination
	if err := h.engine.CopyObject(src, dest); err != nil {
		return nil, toAPIError(err)
	}
	return h.destinationInfo(dest)
}

// MoveObject handles POST /move. The source is removed only if the copy
// succeeds.
func (h *ObjectHandler) MoveObject(ctx context.Context, in *TransferInput) (*ObjectOutput, error) {
	src, dest := in.Body.Source, in.Body.Destination
	if err := h.engine.MoveObject(src, dest); err != nil {
		return nil, toAPIError(err)
	}
	return h.destinationInfo(dest)
}

func (h *ObjectHandler) destinationInfo(dest blobstore.ObjectID) (*ObjectOutput, error) {
	meta, err := h.engine.ObjectMetadata(dest.Container, dest.Object)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ObjectOutput{Body: meta}, nil
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
