package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bleepstore/blobstore/blobstore"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/stats", "/stats"},
		{"/copy", "/copy"},
		{"/move", "/move"},
		{"/docs", "/docs"},
		{"/docs/", "/docs"},
		{"/docs/something", "/docs"},
		{"/openapi.json", "/openapi"},
		{"/openapi.yaml", "/openapi"},
		{"/schemas/Stats.json", "/openapi"},
		{"/", "/"},
		{"", "/"},
		{"/containers", "/containers"},
		{"/containers/", "/containers"},
		{"/containers/photos", "/containers/{container}"},
		{"/containers/photos/", "/containers/{container}"},
		{"/containers/photos/objects", "/containers/{container}/objects"},
		{"/containers/photos/objects/", "/containers/{container}/objects"},
		{"/containers/photos/delete", "/containers/{container}/delete"},
		{"/containers/photos/objects/cat.jpg", "/containers/{container}/objects/{object}"},
		{"/containers/photos/objects/2024/01/cat.jpg", "/containers/{container}/objects/{object}"},
		{"/containers/photos/unknown", "/other"},
		{"/favicon.ico", "/other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := NormalizePath(tt.path)
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMetricsRegistered(t *testing.T) {
	Register()
	Register()

	// Verify that calling Inc/Observe on metrics does not panic.
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/health").Observe(0.001)
	HTTPRequestSize.WithLabelValues("PUT", "/containers/{container}/objects/{object}").Observe(1024)
	HTTPResponseSize.WithLabelValues("GET", "/containers/{container}/objects/{object}").Observe(2048)
	BytesReceivedTotal.Add(1024)
	BytesSentTotal.Add(2048)
}

func TestOperationStatus(t *testing.T) {
	if got := OperationStatus(nil); got != StatusSuccess {
		t.Errorf("OperationStatus(nil) = %q, want %q", got, StatusSuccess)
	}
	if got := OperationStatus(blobstore.ErrObjectNotFound.WithName("x")); got != "ObjectNotFound" {
		t.Errorf("OperationStatus(ObjectNotFound) = %q, want %q", got, "ObjectNotFound")
	}
}

func TestObserverCountsOperations(t *testing.T) {
	eng := blobstore.New(blobstore.WithObserver(Observer{}))

	created := OperationsTotal.WithLabelValues(blobstore.OpCreateContainer, StatusSuccess)
	conflicts := OperationsTotal.WithLabelValues(blobstore.OpCreateContainer, "ContainerAlreadyExists")
	beforeCreated := testutil.ToFloat64(created)
	beforeConflicts := testutil.ToFloat64(conflicts)

	if err := eng.CreateContainer("observed"); err != nil {
		t.Fatalf("CreateContainer failed: %v", err)
	}
	if err := eng.CreateContainer("observed"); err == nil {
		t.Fatal("second CreateContainer succeeded, want error")
	}

	if got := testutil.ToFloat64(created) - beforeCreated; got != 1 {
		t.Errorf("success count delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(conflicts) - beforeConflicts; got != 1 {
		t.Errorf("conflict count delta = %v, want 1", got)
	}
}

func TestStatsCollector(t *testing.T) {
	eng := blobstore.New()
	if err := eng.CreateContainer("a"); err != nil {
		t.Fatalf("CreateContainer failed: %v", err)
	}
	if err := eng.CreateContainer("b"); err != nil {
		t.Fatalf("CreateContainer failed: %v", err)
	}
	if err := eng.PutObjectData("a", "one", []byte("hello")); err != nil {
		t.Fatalf("PutObjectData failed: %v", err)
	}
	if err := eng.PutObjectData("b", "two", []byte("world!")); err != nil {
		t.Fatalf("PutObjectData failed: %v", err)
	}

	c := NewStatsCollector(eng)
	if n := testutil.CollectAndCount(c); n != 3 {
		t.Fatalf("CollectAndCount = %d, want 3", n)
	}

	want := `
# HELP blobstore_containers Number of containers
# TYPE blobstore_containers gauge
blobstore_containers 2
# HELP blobstore_objects Number of objects across all containers
# TYPE blobstore_objects gauge
blobstore_objects 2
# HELP blobstore_stored_bytes Total object bytes held in memory
# TYPE blobstore_stored_bytes gauge
blobstore_stored_bytes 11
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Errorf("CollectAndCompare: %v", err)
	}
}
