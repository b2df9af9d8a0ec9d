package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bleepstore/blobstore/blobstore"
)

// newTestObjectHandler creates an ObjectHandler over a fresh engine holding
// an empty "test-container".
func newTestObjectHandler(t *testing.T, maxObjectSize int64) (*ObjectHandler, *blobstore.Engine) {
	t.Helper()
	eng := blobstore.New()
	if err := eng.CreateContainer("test-container"); err != nil {
		t.Fatalf("CreateContainer failed: %v", err)
	}
	return NewObjectHandler(eng, maxObjectSize, 4), eng
}

// putObject uploads body through the handler and fails the test on error.
func putObject(t *testing.T, h *ObjectHandler, path, body string) {
	t.Helper()
	req := httptest.NewRequest("PUT", path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.PutObject(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PutObject %s status = %d, want %d; body: %s", path, rec.Code, http.StatusOK, rec.Body)
	}
}

// decodeError decodes a JSON error response body.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return apiErr
}

func TestPutAndGetObject(t *testing.T) {
	h, _ := newTestObjectHandler(t, 0)

	body := "Hello, blobstore!"
	req := httptest.NewRequest("PUT", "/containers/test-container/objects/hello.txt", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.PutObject(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PutObject status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var meta blobstore.ObjectMetadata
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decoding PutObject body: %v", err)
	}
	if meta.Name != "hello.txt" || meta.Container != "test-container" || meta.Size != uint64(len(body)) {
		t.Errorf("PutObject metadata = %+v", meta)
	}

	req = httptest.NewRequest("GET", "/containers/test-container/objects/hello.txt", nil)
	rec = httptest.NewRecorder()
	h.GetObject(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GetObject status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}
	if got := rec.Body.String(); got != body {
		t.Errorf("GetObject body = %q, want %q", got, body)
	}
	if got := rec.Header().Get("Content-Length"); got != "17" {
		t.Errorf("GetObject Content-Length = %q, want %q", got, "17")
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("GetObject Accept-Ranges = %q, want %q", got, "bytes")
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Error("GetObject: missing Last-Modified header")
	}
}

func TestPutObjectNestedName(t *testing.T) {
	h, eng := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/2024/01/cat.jpg", "meow")

	ok, err := eng.ObjectExists("test-container", "2024/01/cat.jpg")
	if err != nil || !ok {
		t.Fatalf("ObjectExists = %v, %v; want true, nil", ok, err)
	}
}

func TestPutObjectOverwrites(t *testing.T) {
	h, eng := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/o1", "first version")
	putObject(t, h, "/containers/test-container/objects/o1", "v2")

	data, err := eng.ObjectData("test-container", "o1", nil)
	if err != nil {
		t.Fatalf("ObjectData failed: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("object data = %q, want %q", data, "v2")
	}
}

func TestPutObjectEmptyBody(t *testing.T) {
	h, eng := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/empty", "")

	meta, err := eng.ObjectMetadata("test-container", "empty")
	if err != nil {
		t.Fatalf("ObjectMetadata failed: %v", err)
	}
	if meta.Size != 0 {
		t.Errorf("Size = %d, want 0", meta.Size)
	}
}

func TestPutObjectNoSuchContainer(t *testing.T) {
	h, _ := newTestObjectHandler(t, 0)

	req := httptest.NewRequest("PUT", "/containers/missing/objects/o1", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	h.PutObject(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("PutObject status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Code != "ContainerNotFound" {
		t.Errorf("error code = %q, want %q", apiErr.Code, "ContainerNotFound")
	}
	if apiErr.Resource != "missing" {
		t.Errorf("error resource = %q, want %q", apiErr.Resource, "missing")
	}
}

func TestPutObjectMissingName(t *testing.T) {
	h, _ := newTestObjectHandler(t, 0)

	req := httptest.NewRequest("PUT", "/containers/test-container/objects/", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	h.PutObject(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PutObject status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPutObjectTooLarge(t *testing.T) {
	h, eng := newTestObjectHandler(t, 8)

	// Declared length over the limit is rejected before reading.
	req := httptest.NewRequest("PUT", "/containers/test-container/objects/big", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	h.PutObject(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("PutObject status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}

	// Unknown length is cut off while reading.
	req = httptest.NewRequest("PUT", "/containers/test-container/objects/big", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.PutObject(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("chunked PutObject status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}

	if ok, _ := eng.ObjectExists("test-container", "big"); ok {
		t.Error("oversized object was stored")
	}

	putObject(t, h, "/containers/test-container/objects/small", "01234567")
}

func TestGetObjectNotFound(t *testing.T) {
	h, _ := newTestObjectHandler(t, 0)

	tests := []struct {
		path string
		code string
	}{
		{"/containers/test-container/objects/nope", "ObjectNotFound"},
		{"/containers/missing/objects/nope", "ContainerNotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			rec := httptest.NewRecorder()
			h.GetObject(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Fatalf("GetObject status = %d, want %d", rec.Code, http.StatusNotFound)
			}
			if got := decodeError(t, rec).Code; got != tt.code {
				t.Errorf("error code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestGetObjectRange(t *testing.T) {
	h, _ := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/abc", "abc")
	putObject(t, h, "/containers/test-container/objects/alpha", "abcdefghijklmnopqrstuvwxyz")

	tests := []struct {
		name         string
		object       string
		rangeHeader  string
		wantBody     string
		contentRange string
	}{
		{"first two bytes", "abc", "bytes=0-1", "ab", "bytes 0-1/3"},
		{"first bytes", "alpha", "bytes=0-4", "abcde", "bytes 0-4/26"},
		{"open ended", "alpha", "bytes=20-", "uvwxyz", "bytes 20-25/26"},
		{"suffix", "alpha", "bytes=-3", "xyz", "bytes 23-25/26"},
		{"end clamped", "alpha", "bytes=24-100", "yz", "bytes 24-25/26"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/containers/test-container/objects/"+tt.object, nil)
			req.Header.Set("Range", tt.rangeHeader)
			rec := httptest.NewRecorder()
			h.GetObject(rec, req)

			if rec.Code != http.StatusPartialContent {
				t.Fatalf("GetObject status = %d, want %d; body: %s", rec.Code, http.StatusPartialContent, rec.Body)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("GetObject body = %q, want %q", got, tt.wantBody)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.contentRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.contentRange)
			}
		})
	}
}

func TestGetObjectRangeNotSatisfiable(t *testing.T) {
	h, _ := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/abc", "abc")

	for _, header := range []string{"bytes=3-5", "bytes=2-1", "items=0-1", "bytes=0-1,2-3"} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/containers/test-container/objects/abc", nil)
			req.Header.Set("Range", header)
			rec := httptest.NewRecorder()
			h.GetObject(rec, req)

			if rec.Code != http.StatusRequestedRangeNotSatisfiable {
				t.Fatalf("GetObject status = %d, want %d", rec.Code, http.StatusRequestedRangeNotSatisfiable)
			}
			if got := rec.Header().Get("Content-Range"); got != "bytes */3" {
				t.Errorf("Content-Range = %q, want %q", got, "bytes */3")
			}
			if got := decodeError(t, rec).Code; got != "InvalidRange" {
				t.Errorf("error code = %q, want %q", got, "InvalidRange")
			}
		})
	}
}

// rewriteOnRead replaces an object with new data the first time the engine
// reports a read of any kind, simulating a PUT that races a GET.
type rewriteOnRead struct {
	engine    *blobstore.Engine
	container string
	object    string
	data      []byte
	once      sync.Once
}

func (o *rewriteOnRead) ObserveOperation(op string, err error) {
	if op != blobstore.OpObjectInfo && op != blobstore.OpGetObject {
		return
	}
	o.once.Do(func() {
		_ = o.engine.PutObjectData(o.container, o.object, o.data)
	})
}

func TestGetObjectConcurrentOverwrite(t *testing.T) {
	tests := []struct {
		name        string
		replacement string
		// Second GET after the overwrite has landed.
		wantStatus       int
		wantContentRange string
		wantBody         string
	}{
		{"to empty", "", http.StatusRequestedRangeNotSatisfiable, "bytes */0", ""},
		{"shrink", "xy", http.StatusPartialContent, "bytes 0-1/2", "xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &rewriteOnRead{container: "c1", object: "o1", data: []byte(tt.replacement)}
			eng := blobstore.New(blobstore.WithObserver(obs))
			obs.engine = eng
			if err := eng.CreateContainer("c1"); err != nil {
				t.Fatalf("CreateContainer failed: %v", err)
			}
			if err := eng.PutObjectData("c1", "o1", []byte("hello")); err != nil {
				t.Fatalf("PutObjectData failed: %v", err)
			}
			h := NewObjectHandler(eng, 0, 0)

			get := func() *httptest.ResponseRecorder {
				req := httptest.NewRequest("GET", "/containers/c1/objects/o1", nil)
				req.Header.Set("Range", "bytes=0-4")
				rec := httptest.NewRecorder()
				h.GetObject(rec, req)
				return rec
			}

			// The overwrite lands while the first GET is in flight. The
			// response must describe one version of the object throughout.
			rec := get()
			if rec.Code != http.StatusPartialContent {
				t.Fatalf("first GET status = %d, want %d; body: %s", rec.Code, http.StatusPartialContent, rec.Body)
			}
			if got := rec.Header().Get("Content-Range"); got != "bytes 0-4/5" {
				t.Errorf("first GET Content-Range = %q, want %q", got, "bytes 0-4/5")
			}
			if got := rec.Header().Get("Content-Length"); got != "5" {
				t.Errorf("first GET Content-Length = %q, want %q", got, "5")
			}
			if got := rec.Body.String(); got != "hello" {
				t.Errorf("first GET body = %q, want %q", got, "hello")
			}

			rec = get()
			if rec.Code != tt.wantStatus {
				t.Fatalf("second GET status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantContentRange {
				t.Errorf("second GET Content-Range = %q, want %q", got, tt.wantContentRange)
			}
			if tt.wantStatus == http.StatusPartialContent {
				if got := rec.Body.String(); got != tt.wantBody {
					t.Errorf("second GET body = %q, want %q", got, tt.wantBody)
				}
				if got := rec.Header().Get("Content-Length"); got != "2" {
					t.Errorf("second GET Content-Length = %q, want %q", got, "2")
				}
			}
		})
	}
}

func TestHeadObject(t *testing.T) {
	h, _ := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/o1", "12345")

	req := httptest.NewRequest("HEAD", "/containers/test-container/objects/o1", nil)
	rec := httptest.NewRecorder()
	h.HeadObject(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("HeadObject status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Length"); got != "5" {
		t.Errorf("HeadObject Content-Length = %q, want %q", got, "5")
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HeadObject body length = %d, want 0", rec.Body.Len())
	}

	req = httptest.NewRequest("HEAD", "/containers/test-container/objects/missing", nil)
	rec = httptest.NewRecorder()
	h.HeadObject(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("HeadObject missing status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HeadObject error body length = %d, want 0", rec.Body.Len())
	}
}

func TestDeleteObject(t *testing.T) {
	h, eng := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/o1", "x")

	// Deleting twice succeeds both times.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("DELETE", "/containers/test-container/objects/o1", nil)
		rec := httptest.NewRecorder()
		h.DeleteObject(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("DeleteObject #%d status = %d, want %d", i+1, rec.Code, http.StatusNoContent)
		}
	}

	if ok, _ := eng.ObjectExists("test-container", "o1"); ok {
		t.Error("object still exists after delete")
	}

	req := httptest.NewRequest("DELETE", "/containers/missing/objects/o1", nil)
	rec := httptest.NewRecorder()
	h.DeleteObject(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("DeleteObject missing container status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func transferInput(srcContainer, srcObject, destContainer, destObject string) *TransferInput {
	in := &TransferInput{}
	in.Body.Source = blobstore.ObjectID{Container: srcContainer, Object: srcObject}
	in.Body.Destination = blobstore.ObjectID{Container: destContainer, Object: destObject}
	return in
}

func TestCopyAndMoveObject(t *testing.T) {
	h, eng := newTestObjectHandler(t, 0)
	if err := eng.CreateContainer("other"); err != nil {
		t.Fatalf("CreateContainer failed: %v", err)
	}
	putObject(t, h, "/containers/test-container/objects/src", "payload")

	out, err := h.CopyObject(context.Background(), transferInput("test-container", "src", "other", "copy"))
	if err != nil {
		t.Fatalf("CopyObject failed: %v", err)
	}
	if out.Body.Name != "copy" || out.Body.Container != "other" || out.Body.Size != 7 {
		t.Errorf("CopyObject metadata = %+v", out.Body)
	}
	if ok, _ := eng.ObjectExists("test-container", "src"); !ok {
		t.Error("CopyObject removed the source")
	}

	out, err = h.MoveObject(context.Background(), transferInput("test-container", "src", "other", "moved"))
	if err != nil {
		t.Fatalf("MoveObject failed: %v", err)
	}
	if out.Body.Name != "moved" {
		t.Errorf("MoveObject name = %q, want %q", out.Body.Name, "moved")
	}
	if ok, _ := eng.ObjectExists("test-container", "src"); ok {
		t.Error("MoveObject left the source in place")
	}
}

func TestMoveObjectMissingDestination(t *testing.T) {
	h, eng := newTestObjectHandler(t, 0)
	putObject(t, h, "/containers/test-container/objects/src", "payload")

	_, err := h.MoveObject(context.Background(), transferInput("test-container", "src", "missing", "dst"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("MoveObject error = %v, want *APIError", err)
	}
	if apiErr.GetStatus() != http.StatusNotFound || apiErr.Code != "ContainerNotFound" {
		t.Errorf("MoveObject error = %+v, want 404 ContainerNotFound", apiErr)
	}
	if ok, _ := eng.ObjectExists("test-container", "src"); !ok {
		t.Error("failed move removed the source")
	}
}
