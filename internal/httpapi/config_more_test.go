package httpapi

import (
	"testing"
	"time"
)

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	SetMaxBodyBytes(1234)
	defer SetMaxBodyBytes(0)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetGenerateTimeoutSeconds_NormalizesNegativeToZero(t *testing.T) {
	SetGenerateTimeoutSeconds(-5)
	if generateTimeout != 0 || generateDeadline() != 0 {
		t.Fatalf("expected 0, got %d", generateTimeout)
	}
	SetGenerateTimeoutSeconds(3)
	defer SetGenerateTimeoutSeconds(0)
	if generateDeadline() != 3*time.Second {
		t.Fatalf("expected 3s, got %s", generateDeadline())
	}
}
