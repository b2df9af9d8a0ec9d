// Package handlers implements the HTTP handlers of the blobstore server: raw
// byte transfer for objects and JSON API operations for containers.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bleepstore/blobstore/blobstore"
)

const (
	containersPrefix = "/containers/"
	objectsSegment   = "objects/"
)

// extractContainerName extracts the container name from a path of the form
// /containers/{container}[/...].
func extractContainerName(r *http.Request) string {
	rest, ok := strings.CutPrefix(r.URL.Path, containersPrefix)
	if !ok {
		return ""
	}
	// Find the first slash (if any) to separate the container from the rest.
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// extractObjectName extracts the object name from a path of the form
// /containers/{container}/objects/{object...}. Object names may contain
// slashes.
func extractObjectName(r *http.Request) string {
	rest, ok := strings.CutPrefix(r.URL.Path, containersPrefix)
	if !ok {
		return ""
	}
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return ""
	}
	name, ok := strings.CutPrefix(rest[idx+1:], objectsSegment)
	if !ok {
		return ""
	}
	return name
}

// parseRange parses an HTTP Range header value and returns the byte range
// [start, end] inclusive. Supports three formats:
//   - bytes=0-4   (first 5 bytes)
//   - bytes=5-    (from byte 5 to end)
//   - bytes=-10   (last 10 bytes)
//
// Unsatisfiable ranges and invalid syntax return an InvalidRange error.
func parseRange(rangeHeader string, objectSize uint64) (start, end uint64, err error) {
	if objectSize == 0 {
		return 0, 0, blobstore.InvalidRangeError(0, 0)
	}

	rangeSpec, ok := strings.CutPrefix(rangeHeader, "bytes=")
	if !ok {
		return 0, 0, invalidRange("missing bytes= prefix")
	}

	// Only a single range is supported.
	if strings.Contains(rangeSpec, ",") {
		return 0, 0, invalidRange("multiple ranges not supported")
	}

	startStr, endStr, ok := strings.Cut(rangeSpec, "-")
	if !ok {
		return 0, 0, invalidRange(fmt.Sprintf("invalid range spec %q", rangeSpec))
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" && endStr == "" {
		return 0, 0, invalidRange("both start and end are empty")
	}

	if startStr == "" {
		// Suffix range: bytes=-N (last N bytes).
		suffixLen, parseErr := strconv.ParseUint(endStr, 10, 64)
		if parseErr != nil || suffixLen == 0 {
			return 0, 0, invalidRange(fmt.Sprintf("invalid suffix length %q", endStr))
		}
		if suffixLen >= objectSize {
			return 0, objectSize - 1, nil
		}
		return objectSize - suffixLen, objectSize - 1, nil
	}

	start, err = strconv.ParseUint(startStr, 10, 64)
	if err != nil {
		return 0, 0, invalidRange(fmt.Sprintf("invalid range start %q", startStr))
	}
	if start >= objectSize {
		return 0, 0, blobstore.InvalidRangeError(start, objectSize-1)
	}

	if endStr == "" {
		// Open-ended range: bytes=N- (from byte N to end).
		return start, objectSize - 1, nil
	}

	end, err = strconv.ParseUint(endStr, 10, 64)
	if err != nil {
		return 0, 0, invalidRange(fmt.Sprintf("invalid range end %q", endStr))
	}

	// Clamp end to last byte.
	end = min(end, objectSize-1)

	if start > end {
		return 0, 0, blobstore.InvalidRangeError(start, end)
	}
	return start, end, nil
}

// invalidRange returns an InvalidRange error for a malformed header.
func invalidRange(msg string) *APIError {
	return &APIError{
		Status:  blobstore.ErrInvalidRange.HTTPStatus,
		Code:    blobstore.ErrInvalidRange.Code,
		Message: "invalid range: " + msg,
		cause:   blobstore.ErrInvalidRange,
	}
}

// setObjectResponseHeaders sets the metadata headers shared by GET and HEAD.
func setObjectResponseHeaders(w http.ResponseWriter, meta blobstore.ObjectMetadata) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatUint(meta.Size, 10))
	w.Header().Set("Last-Modified", meta.CreatedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("X-Object-Created-At", meta.CreatedAt.UTC().Format(time.RFC3339Nano))
}
