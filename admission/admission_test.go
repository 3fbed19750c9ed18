package admission

import (
	"sync"
	"testing"
)

func TestController_NoLimits(t *testing.T) {
	t.Parallel()

	c := NewController(Config{})
	for i := 0; i < 100; i++ {
		if !c.Acquire("owner-1") {
			t.Fatal("unlimited controller rejected a submission")
		}
	}
	if got := c.ActiveCount(); got != 100 {
		t.Errorf("ActiveCount = %d, want 100", got)
	}
}

func TestController_MaxActive(t *testing.T) {
	t.Parallel()

	c := NewController(Config{MaxActive: 2})

	if !c.Acquire("a") || !c.Acquire("b") {
		t.Fatal("expected first two acquisitions to succeed")
	}
	if c.Acquire("c") {
		t.Fatal("expected third acquisition to be rejected")
	}

	c.Release("a")
	if !c.Acquire("c") {
		t.Fatal("expected acquisition to succeed after release")
	}
}

func TestController_MaxPerOwner(t *testing.T) {
	t.Parallel()

	c := NewController(Config{MaxPerOwner: 1})

	if !c.Acquire("owner-1") {
		t.Fatal("first acquisition should succeed")
	}
	if c.Acquire("owner-1") {
		t.Fatal("second acquisition for same owner should fail")
	}
	// Other owners are unaffected.
	if !c.Acquire("owner-2") {
		t.Fatal("different owner should succeed")
	}

	c.Release("owner-1")
	if got := c.OwnerCount("owner-1"); got != 0 {
		t.Errorf("OwnerCount = %d, want 0", got)
	}
	if !c.Acquire("owner-1") {
		t.Fatal("acquisition should succeed after release")
	}
}

func TestController_AnonymousOwnerSkipsPerOwnerCap(t *testing.T) {
	t.Parallel()

	c := NewController(Config{MaxPerOwner: 1})

	if !c.Acquire("") || !c.Acquire("") {
		t.Fatal("empty owner must not hit the per-owner cap")
	}
}

func TestController_SubmitRate(t *testing.T) {
	t.Parallel()

	// 1/s with burst 2: first two pass immediately, third is rejected.
	c := NewController(Config{SubmitRate: 1, SubmitBurst: 2})

	if !c.Acquire("a") || !c.Acquire("a") {
		t.Fatal("burst acquisitions should succeed")
	}
	if c.Acquire("a") {
		t.Fatal("expected rate limiter to reject third acquisition")
	}
}

func TestController_ReleaseNeverGoesNegative(t *testing.T) {
	t.Parallel()

	c := NewController(Config{})
	c.Release("ghost")
	if got := c.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount = %d, want 0", got)
	}
}

func TestController_ConcurrentAcquireRelease(t *testing.T) {
	t.Parallel()

	c := NewController(Config{MaxActive: 50})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Acquire("owner") {
				c.Release("owner")
			}
		}()
	}
	wg.Wait()

	if got := c.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount = %d, want 0 after all releases", got)
	}
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	if (Config{}).Enabled() {
		t.Error("zero config should be disabled")
	}
	if !(Config{MaxActive: 1}).Enabled() {
		t.Error("MaxActive should enable admission")
	}
	if !(Config{SubmitRate: 1}).Enabled() {
		t.Error("SubmitRate should enable admission")
	}
}
