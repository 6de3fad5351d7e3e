package tracker

import "testing"

func TestCalibrationTrackerReadbackMatch(t *testing.T) {
	ct := NewCalibrationTracker()
	key := Key{MsgID: 1, Seq: 1}
	payload := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	ct.TrackCopy(key, payload, 100)
	ct.UpsertReadback(key, payload)

	results, timedOut := ct.Drive(0)
	if len(results) != 1 || !results[0].Matched || len(timedOut) != 0 {
		t.Fatalf("Drive = results %+v timedOut %+v, want one matched result", results, timedOut)
	}
	if ct.Len() != 0 {
		t.Fatalf("Len after Drive = %d, want 0", ct.Len())
	}
}

func TestCalibrationTrackerReadbackMismatch(t *testing.T) {
	ct := NewCalibrationTracker()
	key := Key{MsgID: 1, Seq: 1}
	ct.TrackCopy(key, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, 100)
	ct.UpsertReadback(key, [8]byte{9, 9, 9, 9, 9, 9, 9, 9})

	results, _ := ct.Drive(0)
	if len(results) != 1 || results[0].Matched {
		t.Fatalf("Drive mismatch = %+v, want one result with Matched=false", results)
	}
}

func TestCalibrationTrackerReadbackUnknownKey(t *testing.T) {
	ct := NewCalibrationTracker()
	ct.UpsertReadback(Key{MsgID: 9, Seq: 9}, [8]byte{})
	results, timedOut := ct.Drive(0)
	if len(results) != 0 || len(timedOut) != 0 {
		t.Fatalf("Drive with readback for untracked key = %+v %+v, want no results", results, timedOut)
	}
}

func TestCalibrationTrackerDriveVisitsMostRecentlyTrackedFirst(t *testing.T) {
	ct := NewCalibrationTracker()
	ct.TrackCopy(Key{MsgID: 1, Seq: 0}, [8]byte{1}, 10)
	ct.TrackCopy(Key{MsgID: 2, Seq: 0}, [8]byte{2}, 20)
	ct.UpsertReadback(Key{MsgID: 1, Seq: 0}, [8]byte{1})
	ct.UpsertReadback(Key{MsgID: 2, Seq: 0}, [8]byte{2})

	results, _ := ct.Drive(0)
	if len(results) != 2 || results[0].Copy.Key.MsgID != 2 {
		t.Fatalf("Drive = %+v; want msg_id 2 visited first", results)
	}
}

func TestCalibrationTrackerExpired(t *testing.T) {
	ct := NewCalibrationTracker()
	ct.TrackCopy(Key{MsgID: 1, Seq: 0}, [8]byte{1}, 10)
	ct.TrackCopy(Key{MsgID: 2, Seq: 0}, [8]byte{2}, 30)

	_, expired := ct.Drive(20)
	if len(expired) != 1 || expired[0].Key.MsgID != 1 {
		t.Fatalf("Drive(20) timedOut = %+v, want only msg_id 1", expired)
	}
	if ct.Len() != 1 {
		t.Fatalf("Len after Drive = %d, want 1", ct.Len())
	}
}
