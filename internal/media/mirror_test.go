package media

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

type fakeObjectStore struct {
	mu       sync.Mutex
	failures int
	keys     []string
	deleted  []string
}

func (f *fakeObjectStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("service unavailable")
	}
	f.keys = append(f.keys, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjectStore) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func TestMirrorUploadsWithRetry(t *testing.T) {
	s := newTestStorage(t, 0)
	file, err := s.Save(strings.NewReader("voice"), "AUDIO_DETALHE", "", "audio/webm")
	if err != nil {
		t.Fatal(err)
	}

	store := &fakeObjectStore{failures: 2}
	m := newMirror(store, &S3Config{Bucket: "media", Prefix: "plant-1"}, nil,
		util.NewBackoff(5*time.Millisecond, 20*time.Millisecond))
	m.Start()
	defer m.Stop()

	m.Enqueue(file)

	deadline := time.Now().Add(2 * time.Second)
	for len(store.uploaded()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("upload not retried, pending = %d", m.Pending())
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := "plant-1/audio/" + file.Filename
	if got := store.uploaded(); got[0] != want {
		t.Errorf("key = %q, want %q", got[0], want)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d after success", m.Pending())
	}
}

func TestMirrorDrainsOnStop(t *testing.T) {
	s := newTestStorage(t, 0)
	store := &fakeObjectStore{}
	m := newMirror(store, &S3Config{Bucket: "media"}, nil, util.NewBackoff(time.Second, time.Second))

	// Queue before the worker runs so Stop has to drain.
	for _, tipo := range []string{"FOTO", "AUDIO_OBSERVACAO"} {
		f, err := s.Save(strings.NewReader("x"), tipo, "", "image/png")
		if err != nil {
			t.Fatal(err)
		}
		m.Enqueue(f)
	}
	m.Start()
	m.Stop()

	if got := store.uploaded(); len(got) != 2 || !strings.HasPrefix(got[0], defaultPrefix) {
		t.Errorf("uploaded = %v", got)
	}
}

func TestTestConnection(t *testing.T) {
	store := &fakeObjectStore{}
	if err := testConnection(context.Background(), store, "media"); err != nil {
		t.Fatalf("testConnection() error = %v", err)
	}
	if len(store.keys) != 1 || len(store.deleted) != 1 || store.keys[0] != store.deleted[0] {
		t.Errorf("put %v, deleted %v", store.keys, store.deleted)
	}

	store.failures = 1
	if err := testConnection(context.Background(), store, "media"); err == nil {
		t.Error("testConnection() = nil on upload failure")
	}

	if err := TestS3Connection(context.Background(), &S3Config{}); !errors.Is(err, ErrS3NotConfigured) {
		t.Errorf("unconfigured: error = %v", err)
	}
}
