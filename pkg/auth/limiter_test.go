package auth

import "testing"

func TestLimiterPoolBurstPerKey(t *testing.T) {
	p := &limiterPool{cfg: SecConfig{RPS: 1, Burst: 2}}

	if !p.Allow("key-a") || !p.Allow("key-a") {
		t.Fatal("burst requests denied")
	}
	if p.Allow("key-a") {
		t.Fatal("request over burst allowed")
	}
	// limits are tracked per key, not globally
	if !p.Allow("key-b") {
		t.Fatal("fresh key denied")
	}
}

func TestLimiterPoolDefaults(t *testing.T) {
	p := &limiterPool{}
	for i := 0; i < 10; i++ {
		if !p.Allow("key") {
			t.Fatalf("default burst exhausted at %d", i)
		}
	}
	if p.Allow("key") {
		t.Fatal("request past default burst allowed")
	}
}
