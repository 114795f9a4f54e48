package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewCircuitBreaker_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.failureThreshold <= 0 {
		t.Error("should apply default failure threshold")
	}
	if cb.successThreshold <= 0 {
		t.Error("should apply default success threshold")
	}
	if cb.timeout <= 0 {
		t.Error("should apply default timeout")
	}
	if cb.State() != CircuitClosed {
		t.Error("should start closed")
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	})

	for range 2 {
		cb.Failure()
	}
	if cb.State() != CircuitClosed {
		t.Fatal("should stay closed below the failure threshold")
	}
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() while closed = %v", err)
	}

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Fatal("should open at the failure threshold")
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	})

	cb.Failure()
	cb.Failure()
	cb.Success()
	cb.Failure()
	cb.Failure()

	if cb.State() != CircuitClosed {
		t.Error("interleaved successes should keep the breaker closed")
	}
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
	})

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Fatal("should be open after the threshold failure")
	}

	time.Sleep(50 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown = %v, want a probe admitted", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Errorf("State() = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterProbeSuccesses(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	})

	cb.Failure()
	time.Sleep(30 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown = %v", err)
	}

	cb.Success()
	if cb.State() != CircuitHalfOpen {
		t.Fatal("one probe success should not close the breaker yet")
	}
	cb.Success()
	if cb.State() != CircuitClosed {
		t.Error("should close after enough probe successes")
	}
}

func TestCircuitBreaker_ReopensOnProbeFailure(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	})

	cb.Failure()
	time.Sleep(30 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown = %v", err)
	}

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Fatal("probe failure should reopen the breaker")
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() right after reopening = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	cb.Failure()
	cb.Reset()

	if cb.State() != CircuitClosed {
		t.Error("Reset() should close the breaker")
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() after reset = %v", err)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = cb.Allow()
				cb.Success()
				cb.Failure()
				_ = cb.State()
			}
		}()
	}
	wg.Wait()
}

func TestRetryClientCircuitBreaker(t *testing.T) {
	t.Run("open breaker rejects before calling the provider", func(t *testing.T) {
		fake := &fakeClient{response: "Ojekoo!"}
		client := NewRetryClient(fake, fastRetryConfig(), nil, nil)

		for range DefaultCircuitBreakerConfig().FailureThreshold {
			client.breaker.Failure()
		}

		_, err := client.Generate(context.Background(), Request{Prompt: "good morning"})
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("Generate() error = %v, want ErrCircuitOpen", err)
		}
		if fake.callCount() != 0 {
			t.Errorf("provider saw %d calls, want 0 while the breaker is open", fake.callCount())
		}
	})

	t.Run("reset breaker admits calls again", func(t *testing.T) {
		fake := &fakeClient{response: "Ojekoo!"}
		client := NewRetryClient(fake, fastRetryConfig(), nil, nil)

		for range DefaultCircuitBreakerConfig().FailureThreshold {
			client.breaker.Failure()
		}
		client.breaker.Reset()

		got, err := client.Generate(context.Background(), Request{Prompt: "good morning"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if got != "Ojekoo!" {
			t.Errorf("Generate() = %q, want %q", got, "Ojekoo!")
		}
		if client.breaker.State() != CircuitClosed {
			t.Errorf("breaker state = %v after success, want closed", client.breaker.State())
		}
	})
}
