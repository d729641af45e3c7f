package pikala

import "testing"

func TestSchedulerRunsStagesInOrder(t *testing.T) {
	s := newScheduler()
	var order []int

	s.enqueue(stageAttachBodies, func() error {
		order = append(order, int(stageAttachBodies))
		return nil
	})
	s.enqueue(stageCreateTypes, func() error {
		order = append(order, int(stageCreateTypes))
		return nil
	})
	s.enqueue(stageDeclareMembers, func() error {
		order = append(order, int(stageDeclareMembers))
		return nil
	})

	if err := s.run(); err != nil {
		t.Fatal(err)
	}
	want := []int{int(stageCreateTypes), int(stageDeclareMembers), int(stageAttachBodies)}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %d want %d", i, order[i], want[i])
		}
	}
	if err := s.assertDrained(); err != nil {
		t.Errorf("expected drained scheduler, got %v", err)
	}
}

func TestSchedulerForwardEnqueueFromWithinStage(t *testing.T) {
	s := newScheduler()
	ran := false
	s.enqueue(stageCreateTypes, func() error {
		return s.enqueue(stageFinalize, func() error {
			ran = true
			return nil
		})
	})
	if err := s.run(); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("expected forward-enqueued stage-4 work to have run")
	}
}

func TestSchedulerRejectsBackwardEnqueue(t *testing.T) {
	s := newScheduler()
	var gotErr error
	s.enqueue(stageDeclareMembers, func() error {
		gotErr = s.enqueue(stageCreateTypes, func() error { return nil })
		return nil
	})
	if err := s.run(); err != nil {
		t.Fatal(err)
	}
	if _, ok := gotErr.(*stageViolationError); !ok {
		t.Fatalf("expected *stageViolationError, got %T (%v)", gotErr, gotErr)
	}
}

func TestSchedulerPopStageLimitsCount(t *testing.T) {
	s := newScheduler()
	ran := 0
	for i := 0; i < 5; i++ {
		s.enqueue(stageCreateTypes, func() error { ran++; return nil })
	}
	s.active = true
	s.stage = stageCreateTypes
	n, err := s.popStage(stageCreateTypes, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || ran != 2 {
		t.Errorf("expected 2 run, got n=%d ran=%d", n, ran)
	}
}
