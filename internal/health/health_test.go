package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEmptyRegistryIsHealthy(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected no statuses, got %d", len(statuses))
	}
}

func TestFailingCheckerFlipsAggregate(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(context.Context) error { return nil })
	r.Register("realtime", func(context.Context) error {
		return errors.New("client limit reached")
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("aggregate should be unhealthy when any checker fails")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "database" || !statuses[0].Healthy {
		t.Fatalf("database status wrong: %+v", statuses[0])
	}
	if statuses[1].Healthy || statuses[1].Detail != "client limit reached" {
		t.Fatalf("realtime status wrong: %+v", statuses[1])
	}
}

func TestRegisterSameNameReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(context.Context) error {
		return errors.New("down")
	})
	r.Register("database", func(context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("replacement checker should win")
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status after replacement, got %d", len(statuses))
	}
}

func TestStableOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"database", "realtime", "queue"}
	for _, n := range names {
		r.Register(n, func(context.Context) error { return nil })
	}

	for i := 0; i < 5; i++ {
		_, statuses := r.CheckAll(context.Background())
		for j, st := range statuses {
			if st.Name != names[j] {
				t.Fatalf("run %d: status %d = %q, want %q", i, j, st.Name, names[j])
			}
		}
	}
}

func TestConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("database", func(context.Context) error { return nil })
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}
	wg.Wait()
}
