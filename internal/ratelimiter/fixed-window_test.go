package ratelimiter

import (
	"testing"
	"time"
)

func TestFixedWindowLimiter(t *testing.T) {
	rl := NewFixedWindowLimiter(2, 50*time.Millisecond)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, retryAfter := rl.Allow("1.2.3.4")
	if ok {
		t.Fatal("third request in the window should be denied")
	}
	if retryAfter <= 0 || retryAfter > 50*time.Millisecond {
		t.Errorf("retryAfter = %v, want within (0, 50ms]", retryAfter)
	}

	// Other clients keep their own windows.
	if ok, _ := rl.Allow("5.6.7.8"); !ok {
		t.Error("different client should be allowed")
	}

	time.Sleep(60 * time.Millisecond)
	if ok, _ := rl.Allow("1.2.3.4"); !ok {
		t.Error("request after the window elapsed should be allowed")
	}
}
