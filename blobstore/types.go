package blobstore

import "time"

// ContainerMetadata describes a container. It is fixed at creation.
type ContainerMetadata struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ObjectMetadata describes an object. Size always equals the length of the
// data stored by the most recent write.
type ObjectMetadata struct {
	Name      string    `json:"name"`
	Container string    `json:"container"`
	CreatedAt time.Time `json:"created_at"`
	Size      uint64    `json:"size"`
}

// ObjectID addresses an object in any container. It is used as the source
// and destination of copy and move.
type ObjectID struct {
	Container string `json:"container"`
	Object    string `json:"object"`
}

// Range is an inclusive byte interval [Start, End].
type Range struct {
	Start uint64
	End   uint64
}

// Stats summarizes the contents of an engine.
type Stats struct {
	Containers int    `json:"containers"`
	Objects    int    `json:"objects"`
	Bytes      uint64 `json:"bytes"`
}

// storedObject holds an object's metadata and its private copy of the data.
type storedObject struct {
	meta ObjectMetadata
	data []byte
}

// storedContainer holds a container's metadata and its objects keyed by name.
type storedContainer struct {
	meta    ContainerMetadata
	objects map[string]*storedObject
}

// validateRange checks an inclusive range against an object of the given size.
func validateRange(start, end, size uint64) error {
	if start > end {
		return InvalidRangeError(start, end)
	}
	if start >= size && size > 0 {
		return InvalidRangeError(start, end)
	}
	return nil
}

// sliceRange returns data[start : min(end+1, len(data))] for a range that
// already passed validateRange. An empty object yields an empty slice.
func sliceRange(data []byte, start, end uint64) []byte {
	size := uint64(len(data))
	if size == 0 {
		return data[:0]
	}
	stop := size
	if end < size {
		stop = end + 1
	}
	return data[start:stop]
}
