package timecode

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  TimePoint
		isErr bool
	}{
		{"seconds", "90", FromSeconds(90), false},
		{"fractional", "90.25", FromSeconds(90.25), false},
		{"duration", "1m30s", FromSeconds(90), false},
		{"clock mm:ss", "1:30", FromSeconds(90), false},
		{"clock hh:mm:ss", "1:02:30.5", FromSeconds(3750.5), false},
		{"empty", "", 0, true},
		{"garbage", "abc", 0, true},
		{"too many colons", "1:2:3:4", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.isErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimePointString(t *testing.T) {
	if got := FromSeconds(1.5).String(); got != "1.5s" {
		t.Errorf("String() = %q, want %q", got, "1.5s")
	}
	if got := TimePoint(0).String(); got != "0s" {
		t.Errorf("String() = %q, want %q", got, "0s")
	}
}

func TestTimePointClamp(t *testing.T) {
	if got := TimePoint(5).Clamp(0, 10); got != 5 {
		t.Errorf("Clamp inside = %v, want 5", got)
	}
	if got := TimePoint(-3).Clamp(0, 10); got != 0 {
		t.Errorf("Clamp below = %v, want 0", got)
	}
	if got := TimePoint(20).Clamp(0, 10); got != 10 {
		t.Errorf("Clamp above = %v, want 10", got)
	}
}

func TestRangeContains(t *testing.T) {
	r := NewRange(10, 20)

	if !r.Contains(10) {
		t.Error("should contain start")
	}
	if r.Contains(20) {
		t.Error("should not contain end (half-open)")
	}
	if !r.Contains(15) {
		t.Error("should contain midpoint")
	}
	if r.Contains(9) {
		t.Error("should not contain point before start")
	}
}

func TestEmptyRangeContainsNothing(t *testing.T) {
	r := NewRange(5, 5)
	if !r.IsEmpty() {
		t.Error("range with start == end should be empty")
	}
	if r.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", r.Duration())
	}
	if r.Contains(5) {
		t.Error("empty range should contain nothing, not even its start")
	}
}

func TestRangeOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeRange
		want bool
	}{
		{"disjoint", NewRange(0, 10), NewRange(20, 30), false},
		{"touching", NewRange(0, 10), NewRange(10, 20), false},
		{"partial", NewRange(0, 10), NewRange(5, 15), true},
		{"contained", NewRange(0, 10), NewRange(3, 7), true},
		{"identical", NewRange(0, 10), NewRange(0, 10), true},
		{"empty vs full", NewRange(5, 5), NewRange(0, 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("%v.Overlaps(%v) = %v, want %v (not symmetric)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestRangeIntersect(t *testing.T) {
	a := NewRange(0, 10)
	b := NewRange(5, 15)

	got := a.Intersect(b)
	if got.Start != 5 || got.End != 10 {
		t.Errorf("Intersect = %v, want [5, 10)", got)
	}

	disjoint := a.Intersect(NewRange(20, 30))
	if !disjoint.IsEmpty() {
		t.Errorf("Intersect of disjoint ranges = %v, want empty", disjoint)
	}
}

func TestRangeUnion(t *testing.T) {
	a := NewRange(0, 10)
	b := NewRange(20, 30)

	got := a.Union(b)
	if got.Start != 0 || got.End != 30 {
		t.Errorf("Union = %v, want [0, 30)", got)
	}
}

func TestRangeShift(t *testing.T) {
	r := NewRange(10, 20).Shift(-10)
	if r.Start != 0 || r.End != 10 {
		t.Errorf("Shift = %v, want [0, 10)", r)
	}
}

func TestNewRangeSwapsEndpoints(t *testing.T) {
	r := NewRange(20, 10)
	if r.Start != 10 || r.End != 20 {
		t.Errorf("NewRange(20, 10) = %v, want [10, 20)", r)
	}
}
