package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"koboldswitch/internal/controller"
)

type ctxKey struct{}

func TestJoinContexts_KeepsRequestValues(t *testing.T) {
	req := context.WithValue(context.Background(), ctxKey{}, "rid-1")
	j, cancel := joinContexts(context.Background(), req)
	defer cancel()
	if got := j.Value(ctxKey{}); got != "rid-1" {
		t.Fatalf("request value lost: %v", got)
	}
}

func TestJoinContexts_CancelsWithEitherParent(t *testing.T) {
	for _, which := range []string{"base", "request"} {
		base, bc := context.WithCancel(context.Background())
		req, rc := context.WithCancel(context.Background())
		j, cancel := joinContexts(base, req)
		if which == "base" {
			bc()
		} else {
			rc()
		}
		select {
		case <-j.Done():
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("joined context not canceled by %s", which)
		}
		cancel()
		bc()
		rc()
	}
}

func TestJoinContexts_ReleasedBeforeBaseEnds(t *testing.T) {
	base, bc := context.WithCancel(context.Background())
	defer bc()
	j, cancel := joinContexts(base, context.Background())
	cancel()
	if j.Err() == nil {
		t.Fatal("expected joined context to be canceled after release")
	}
	// Base ending after release must be harmless.
	bc()
}

// A shutdown while DELETE /model?wait= blocks must end the request.
func TestBaseContextCancelEndsDeleteWait(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	entered := make(chan struct{})
	svc := &mockService{waitFn: func(ctx context.Context) (controller.Status, error) {
		close(entered)
		<-ctx.Done()
		return controller.Status{State: controller.StateStopping}, ctx.Err()
	}}
	done := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		NewMux(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/model?wait=1m", nil))
		done <- w.Code
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never started waiting")
	}
	cancel()
	select {
	case code := <-done:
		if code == http.StatusNoContent {
			t.Fatalf("canceled wait must not report success")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DELETE wait did not return after base context cancellation")
	}
	if svc.stops != 1 {
		t.Fatalf("stop calls=%d", svc.stops)
	}
}

func TestSetBaseContext_NilRestoresBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	SetBaseContext(ctx)
	// nolint:staticcheck // SA1012: nil selects the fallback
	SetBaseContext(nil)
	if serverBaseCtx.Err() != nil {
		t.Fatal("base context should be Background after nil")
	}
}
