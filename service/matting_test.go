package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteMatter(t *testing.T) {
	matte := solid(6, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 0x40})
	encoded := encodePNG(t, matte)
	input := []byte("raw-image-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		got, _ := io.ReadAll(file)
		if string(got) != string(input) {
			t.Errorf("uploaded %q, want %q", got, input)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(encoded)
	}))
	defer server.Close()

	out, err := NewRemoteMatter(server.URL, 5*time.Second).Matte(context.Background(), input)
	if err != nil {
		t.Fatalf("Matte() error: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 6, 4) {
		t.Errorf("bounds = %v, want 6x4", out.Bounds())
	}
	if got := out.NRGBAAt(2, 2); got != matte.NRGBAAt(2, 2) {
		t.Errorf("pixel = %v, want %v", got, matte.NRGBAAt(2, 2))
	}
}

func TestRemoteMatterServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot identify image file", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := NewRemoteMatter(server.URL, time.Second).Matte(context.Background(), []byte("x")); err == nil {
		t.Error("Matte() should fail on 500")
	}
}

func TestMattingServiceWrapsErrors(t *testing.T) {
	cause := errors.New("boom")
	svc := NewMattingService(&fakeMatter{err: cause}, 1, time.Second)

	_, err := svc.Matte(context.Background(), nil)
	if !IsCode(err, ErrCodeMattingFailure) {
		t.Errorf("error = %v, want MATTING_FAILURE", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be preserved")
	}
}

// blockingMatter 占住并发槽直到 release 关闭
type blockingMatter struct {
	started chan struct{}
	release chan struct{}
}

func (m *blockingMatter) Matte(ctx context.Context, raw []byte) (*image.NRGBA, error) {
	close(m.started)
	<-m.release
	return solid(1, 1, color.NRGBA{A: 0xff}), nil
}

func TestMattingServiceQueueFull(t *testing.T) {
	m := &blockingMatter{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewMattingService(m, 1, 50*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Matte(context.Background(), nil)
		done <- err
	}()
	<-m.started

	_, err := svc.Matte(context.Background(), nil)
	if !IsCode(err, ErrCodeQueueFull) {
		t.Errorf("second call error = %v, want QUEUE_FULL", err)
	}

	close(m.release)
	if err := <-done; err != nil {
		t.Errorf("first call error: %v", err)
	}
}

func TestMattingServiceFreeSlotWithZeroQueueTimeout(t *testing.T) {
	out := solid(2, 2, color.NRGBA{A: 0xff})
	svc := NewMattingService(&fakeMatter{out: out}, 1, 0)

	for i := 0; i < 50; i++ {
		if _, err := svc.Matte(context.Background(), nil); err != nil {
			t.Fatalf("call %d: error = %v, want success with a free slot", i, err)
		}
	}
}
