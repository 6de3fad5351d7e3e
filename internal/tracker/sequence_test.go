package tracker

import (
	"testing"

	"github.com/nmxmxh/asi-supervisor/internal/model"
)

func TestSequenceNumbersFirstObservationInOrder(t *testing.T) {
	s := NewSequenceNumbers()
	res := s.Observe(model.RoleActionRequest, 7)
	if !res.InOrder || res.Lost != 0 {
		t.Fatalf("Observe first = %+v, want InOrder=true Lost=0", res)
	}
}

func TestSequenceNumbersDetectsLoss(t *testing.T) {
	s := NewSequenceNumbers()
	s.Observe(model.RoleActionRequest, 1)
	res := s.Observe(model.RoleActionRequest, 4)
	if res.InOrder {
		t.Fatalf("Observe with gap: expected InOrder=false")
	}
	if res.Lost != 2 {
		t.Fatalf("Lost = %d, want 2 (seq 2 and 3 missing)", res.Lost)
	}
}

func TestSequenceNumbersWrapsModulo(t *testing.T) {
	s := NewSequenceNumbers()
	s.Observe(model.RoleActionRequest, 0xFFFF)
	res := s.Observe(model.RoleActionRequest, 0)
	if !res.InOrder {
		t.Fatalf("Observe wrap 0xFFFF->0: expected InOrder=true")
	}
}

func TestSequenceNumbersNextIsMonotone(t *testing.T) {
	s := NewSequenceNumbers()
	first := s.Next(model.RoleNotificationOut)
	second := s.Next(model.RoleNotificationOut)
	if second != first+1 {
		t.Fatalf("Next sequence = %d, %d; want consecutive", first, second)
	}
}

func TestSequenceNumbersResetAll(t *testing.T) {
	s := NewSequenceNumbers()
	s.Observe(model.RoleActionRequest, 5)
	s.ResetAll()
	res := s.Observe(model.RoleActionRequest, 5)
	if !res.InOrder {
		t.Fatalf("Observe after ResetAll: expected fresh baseline, InOrder=true")
	}
}
