package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(5, 10) {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset() // should not panic
}

func TestProgressSampler_FrameBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, 200) {
		t.Error("first frame should log")
	}
	if s.ShouldLog(19, 200) {
		t.Error("9.5% should not log (same bucket)")
	}
	if !s.ShouldLog(20, 200) {
		t.Error("10% should log (new bucket)")
	}
	if !s.ShouldLog(200, 200) {
		t.Error("100% should log")
	}
	if s.ShouldLog(210, 200) {
		t.Error("values over total should clamp to the 100% bucket")
	}
}

func TestProgressSampler_UnknownTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(1, 0) {
		t.Error("first event with unknown total should log")
	}
	if s.ShouldLog(50, 0) {
		t.Error("later events with unknown total should not log")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, 100)
	s.Reset()

	if s.lastBucket != -1 {
		t.Errorf("lastBucket = %d, want -1 after reset", s.lastBucket)
	}
	if !s.ShouldLog(50, 100) {
		t.Error("should log after reset")
	}
}
