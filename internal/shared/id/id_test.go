package id

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateWithPrefix(SessionPrefix)
	if !strings.HasPrefix(id, "sess_") {
		t.Fatalf("ID should start with 'sess_', got: %s", id)
	}

	parts := strings.Split(id, "_")
	if len(parts) != 2 {
		t.Fatalf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
	}
	if !IsValid(parts[1]) {
		t.Errorf("ULID part should be valid: %s", parts[1])
	}
}

func TestTypedIDGeneration(t *testing.T) {
	sessID := NewSessionID()
	capID := NewCaptchaID()
	msgID := NewMessageID()

	if !IsSessionID(sessID.String()) {
		t.Errorf("SessionID should be a prefixed ULID, got: %s", sessID)
	}
	if !strings.HasPrefix(capID.String(), "cap_") {
		t.Errorf("CaptchaID should start with 'cap_', got: %s", capID)
	}
	if !strings.HasPrefix(msgID.String(), "msg_") {
		t.Errorf("MessageID should start with 'msg_', got: %s", msgID)
	}
	if NewCaptchaID() == capID {
		t.Error("CaptchaIDs should be unique")
	}
}

func TestIsSessionID(t *testing.T) {
	invalid := []string{"", "sess_", "sess_invalid", "cap_" + NewGenerator().GenerateString()}
	for _, s := range invalid {
		if IsSessionID(s) {
			t.Errorf("should not be a session ID: %q", s)
		}
	}
}

func TestIsValid(t *testing.T) {
	gen := NewGenerator()

	if !IsValid(gen.GenerateString()) {
		t.Error("Generated ULID should be valid")
	}

	for _, id := range []string{"", "invalid", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValid(id) {
			t.Errorf("ID should be invalid: %s", id)
		}
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan string, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.GenerateString()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[string]bool)
	for id := range idChan {
		if seen[id] {
			t.Errorf("Duplicate ID found in concurrent generation: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != goroutines*idsPerGoroutine {
		t.Errorf("Expected %d unique IDs, got %d", goroutines*idsPerGoroutine, len(seen))
	}
}

func TestMonotonicOrdering(t *testing.T) {
	gen := NewGenerator()

	// Same-millisecond IDs must still sort in generation order.
	prev := gen.GenerateString()
	for i := 0; i < 1000; i++ {
		next := gen.GenerateString()
		if next <= prev {
			t.Fatalf("IDs should be strictly increasing: %s should be > %s", next, prev)
		}
		prev = next
	}
}

func BenchmarkGenerateWithPrefix(b *testing.B) {
	gen := NewGenerator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.GenerateWithPrefix(SessionPrefix)
	}
}
