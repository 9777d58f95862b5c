package code

import (
	"sync"
	"testing"
)

// Test_Registry_ConcurrentChurn runs independent register/hold/drop cycles
// on several goroutines over disjoint address ranges and verifies that no
// worker's registrations are ever disturbed by another's, while readers
// hammer Lookup the whole time.
func Test_Registry_ConcurrentChurn(t *testing.T) {
	const (
		workers = 4
		cycles  = 1000
		span    = uintptr(0x1000)
	)
	r := NewRegistry(discardLogger())

	var writers, readers sync.WaitGroup
	stop := make(chan struct{})

	// Readers: unsynchronized lookups across every worker's window plus
	// addresses nobody owns. They must never observe a torn view; any hit
	// must be internally consistent.
	for w := 0; w < workers; w++ {
		readers.Add(1)
		go func(base uintptr) {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for pc := base; pc < base+8*span; pc += span / 4 {
					if hit, ok := r.Lookup(pc); ok {
						if !hit.Region.Contains(pc) {
							t.Errorf("hit region [%#x,%#x) does not contain pc %#x",
								hit.Region.Start, hit.Region.End, pc)
							return
						}
					}
				}
				if _, ok := r.Lookup(0); ok {
					t.Error("null address resolved")
					return
				}
			}
		}(uintptr(0x1000000 * (w + 1)))
	}

	// Writers: each worker owns a disjoint window and cycles module
	// registrations through it, holding a batch live at a time. A region
	// registered by one worker can only ever be removed by that worker, so
	// every held module must remain resolvable until its own drop.
	for w := 0; w < workers; w++ {
		writers.Add(1)
		go func(worker int) {
			defer writers.Done()
			base := uintptr(0x1000000 * (worker + 1))

			var held []*ModuleRecord
			for i := 0; i < cycles; i++ {
				slot := uintptr(i%8) * span
				rec := NewModuleRecord("worker", []Region{
					{Start: base + slot, End: base + slot + span/2},
				}, nil)
				if err := r.Insert(rec); err != nil {
					t.Errorf("worker %d cycle %d: insert: %v", worker, i, err)
					return
				}

				if hit, ok := r.Lookup(rec.Regions[0].Start); !ok || hit.Module.ID != rec.ID {
					t.Errorf("worker %d cycle %d: own module did not resolve", worker, i)
					return
				}

				held = append(held, rec)
				if len(held) == 8 {
					for _, h := range held {
						if hit, ok := r.Lookup(h.Regions[0].Start); !ok || hit.Module.ID != h.ID {
							t.Errorf("worker %d: held module %d vanished", worker, h.ID)
							return
						}
					}
					for _, h := range held {
						if !r.Remove(h.ID) {
							t.Errorf("worker %d: remove of own module %d failed", worker, h.ID)
							return
						}
					}
					held = held[:0]
				}
			}
			for _, h := range held {
				r.Remove(h.ID)
			}
		}(w)
	}

	writers.Wait()
	close(stop)
	readers.Wait()

	if s := r.Stats(); s.Modules != 0 || s.Regions != 0 {
		t.Errorf("registry not empty after churn: %+v", s)
	}
}

// Test_Registry_ConcurrentRemoveUnknown hammers the double-unregistration
// guard from many goroutines; every call must report false and the
// registry must stay intact.
func Test_Registry_ConcurrentRemoveUnknown(t *testing.T) {
	r := NewRegistry(discardLogger())
	rec := mustInsert(t, r, "anchor", Region{Start: 0x1000, End: 0x2000})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if r.Remove(ModuleID(1_000_000 + seed*1000 + i)) {
					t.Errorf("remove of unknown id returned true")
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if hit, ok := r.Lookup(0x1000); !ok || hit.Module.ID != rec.ID {
		t.Fatal("anchor module disturbed by unknown-id removes")
	}
}
