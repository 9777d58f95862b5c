package engine

import (
	"sync"
	"sync/atomic"
	"testing"
)

// These tests port the registry churn scenarios that historically crashed
// hosts when OS address reuse collided with deferred unregistration: rapid
// module creation and destruction across threads makes the OS hand a new
// mapping the exact range a dying module has not yet withdrawn. The
// remove-before-unmap ordering must make that window impossible.

// Test_Stress_MultithreadChurn runs several goroutines each rapidly
// creating and destroying engines and modules to maximize address reuse.
func Test_Stress_MultithreadChurn(t *testing.T) {
	const (
		goroutines = 8
		iterations = 100
	)
	reg := testRegistry()
	var completed atomic.Int64

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				// Fresh engine each iteration to maximize registrations.
				eng, _ := testEngine(t, Config{Registry: reg})

				m, err := eng.NewModule("churn", testWords)
				if err != nil {
					t.Errorf("goroutine %d iteration %d: %v", id, i, err)
					return
				}
				inst, err := Instantiate(m)
				if err != nil {
					t.Errorf("goroutine %d iteration %d: %v", id, i, err)
					return
				}
				if err := inst.Close(); err != nil {
					t.Errorf("goroutine %d iteration %d: %v", id, i, err)
					return
				}
				if err := m.Close(); err != nil {
					t.Errorf("goroutine %d iteration %d: %v", id, i, err)
					return
				}
				eng.Close()
			}
			completed.Add(iterations)
		}(g)
	}
	wg.Wait()

	if got := completed.Load(); got != goroutines*iterations {
		t.Fatalf("completed %d iterations; want %d", got, goroutines*iterations)
	}
	if s := reg.Stats(); s.Modules != 0 || s.Regions != 0 {
		t.Fatalf("registry not empty after churn: %+v", s)
	}
}

// Test_Stress_SequentialChurn cycles one goroutine through many
// create/destroy rounds; address reuse by the allocator across rounds must
// never conflict with registrations already withdrawn.
func Test_Stress_SequentialChurn(t *testing.T) {
	const iterations = 500
	reg := testRegistry()

	for i := 0; i < iterations; i++ {
		eng, _ := testEngine(t, Config{Registry: reg})
		m, err := eng.NewModule("seq", testWords)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if _, ok := reg.Lookup(m.Text().Start); !ok {
			t.Fatalf("iteration %d: fresh module does not resolve", i)
		}
		if err := m.Close(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		eng.Close()
	}

	if s := reg.Stats(); s.Modules != 0 {
		t.Fatalf("registry not empty: %+v", s)
	}
}

// Test_Stress_HeldReferences keeps a sliding window of live modules per
// goroutine while churning, so deallocations land while unrelated
// registrations are in flight.
func Test_Stress_HeldReferences(t *testing.T) {
	const (
		goroutines = 16
		iterations = 50
		holdCount  = 10
	)
	reg := testRegistry()

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			eng, _ := testEngine(t, Config{Registry: reg})
			defer eng.Close()

			var held []*Module
			for i := 0; i < iterations; i++ {
				m, err := eng.NewModule("held", testWords)
				if err != nil {
					t.Errorf("goroutine %d iteration %d: %v", id, i, err)
					return
				}
				if len(held) >= holdCount {
					oldest := held[0]
					held = held[1:]
					if err := oldest.Close(); err != nil {
						t.Errorf("goroutine %d iteration %d: close: %v", id, i, err)
						return
					}
				}
				held = append(held, m)

				// Everything still held must resolve to itself.
				for _, h := range held {
					hit, ok := reg.Lookup(h.Text().Start)
					if !ok || hit.Module.ID != h.ID() {
						t.Errorf("goroutine %d: held module %d unresolvable", id, h.ID())
						return
					}
				}
			}
			for _, h := range held {
				if err := h.Close(); err != nil {
					t.Errorf("goroutine %d: drain close: %v", id, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if s := reg.Stats(); s.Modules != 0 {
		t.Fatalf("registry not empty: %+v", s)
	}
}

// Test_Stress_InterleavedCreateDestroy splits creation and destruction
// across goroutine pools connected by a channel, so a module's final close
// runs on a different goroutine than its registration.
func Test_Stress_InterleavedCreateDestroy(t *testing.T) {
	const (
		creators   = 8
		destroyers = 8
		iterations = 100
	)
	reg := testRegistry()
	eng, _ := testEngine(t, Config{Registry: reg})
	defer eng.Close()

	ch := make(chan *Module, creators)

	var creatorWG sync.WaitGroup
	for c := 0; c < creators; c++ {
		creatorWG.Add(1)
		go func(id int) {
			defer creatorWG.Done()
			for i := 0; i < iterations; i++ {
				m, err := eng.NewModule("interleaved", testWords)
				if err != nil {
					t.Errorf("creator %d iteration %d: %v", id, i, err)
					return
				}
				ch <- m
			}
		}(c)
	}

	var destroyerWG sync.WaitGroup
	var destroyed atomic.Int64
	for d := 0; d < destroyers; d++ {
		destroyerWG.Add(1)
		go func(id int) {
			defer destroyerWG.Done()
			for m := range ch {
				if err := m.Close(); err != nil {
					t.Errorf("destroyer %d: %v", id, err)
					return
				}
				destroyed.Add(1)
			}
		}(d)
	}

	creatorWG.Wait()
	close(ch)
	destroyerWG.Wait()

	if got := destroyed.Load(); got != creators*iterations {
		t.Fatalf("destroyed %d modules; want %d", got, creators*iterations)
	}
	if s := reg.Stats(); s.Modules != 0 {
		t.Fatalf("registry not empty: %+v", s)
	}
}

// Test_Stress_BurstAllocation allocates batches of modules at once and
// releases each batch together, creating memory pressure that encourages
// the OS to reuse freed ranges immediately.
func Test_Stress_BurstAllocation(t *testing.T) {
	const (
		burstSize = 50
		bursts    = 20
	)
	reg := testRegistry()
	eng, _ := testEngine(t, Config{Registry: reg})
	defer eng.Close()

	for burst := 0; burst < bursts; burst++ {
		batch := make([]*Module, 0, burstSize)
		for i := 0; i < burstSize; i++ {
			m, err := eng.NewModule("burst", testWords)
			if err != nil {
				t.Fatalf("burst %d module %d: %v", burst, i, err)
			}
			batch = append(batch, m)
		}
		if got := reg.Stats().Modules; got != len(batch) {
			t.Fatalf("burst %d: registry holds %d modules; want %d", burst, got, len(batch))
		}
		for _, m := range batch {
			if err := m.Close(); err != nil {
				t.Fatalf("burst %d: close: %v", burst, err)
			}
		}
		if got := reg.Stats().Modules; got != 0 {
			t.Fatalf("burst %d: %d modules leaked", burst, got)
		}
	}
}
