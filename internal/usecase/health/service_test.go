package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kantolabs/pokedex/internal/usecase/recommend"
)

// --- Mocks ---

type mockCachePinger struct {
	err error
}

func (m *mockCachePinger) Ping(_ context.Context) error { return m.err }

type mockRecommenderStatus struct {
	state recommend.State
}

func (m *mockRecommenderStatus) State() recommend.State { return m.state }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockCachePinger{}, &mockRecommenderStatus{state: recommend.Ready})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["cache"] != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"])
	}
	if r.Checks["recommender"] != CheckOK {
		t.Errorf("expected recommender %q, got %q", CheckOK, r.Checks["recommender"])
	}
	if r.RecommenderState != "ready" {
		t.Errorf("expected state ready, got %q", r.RecommenderState)
	}
}

func TestCheck_CacheError(t *testing.T) {
	svc := New(
		&mockCachePinger{err: errors.New("conn refused")},
		&mockRecommenderStatus{state: recommend.Ready},
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks["cache"])
	}
	if r.Checks["recommender"] != CheckOK {
		t.Errorf("expected recommender %q, got %q", CheckOK, r.Checks["recommender"])
	}
}

func TestCheck_RecommenderNotReady(t *testing.T) {
	for _, state := range []recommend.State{
		recommend.Uninitialized, recommend.Initializing, recommend.Failed,
	} {
		svc := New(&mockCachePinger{}, &mockRecommenderStatus{state: state})
		r := svc.Check(context.Background())

		if r.Status != Degraded {
			t.Errorf("state %v: expected %q, got %q", state, Degraded, r.Status)
		}
		if r.Checks["recommender"] != CheckError {
			t.Errorf("state %v: expected recommender error", state)
		}
		if r.RecommenderState != state.String() {
			t.Errorf("state %v: expected %q, got %q", state, state.String(), r.RecommenderState)
		}
	}
}

func TestCheck_NoCache(t *testing.T) {
	svc := New(nil, &mockRecommenderStatus{state: recommend.Ready})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("expected no cache check when no cache is configured")
	}
}
