package frame

import "testing"

func TestNewStandaloneAllocatesPlanes(t *testing.T) {
	f := NewStandalone(16, 8, FormatYUV420P)

	if len(f.Data[0]) == 0 || len(f.Data[1]) == 0 || len(f.Data[2]) == 0 {
		t.Fatalf("expected all three YUV420P planes allocated, got %v", f.Strides)
	}
	if f.Strides[0] < f.Width {
		t.Errorf("luma stride %d shorter than width %d", f.Strides[0], f.Width)
	}
	if f.Strides[0]%PlaneAlignment != 0 {
		t.Errorf("luma stride %d not aligned to %d", f.Strides[0], PlaneAlignment)
	}
}

func TestIsAliasedTracksRefcount(t *testing.T) {
	f := NewStandalone(4, 4, FormatYUV420P)
	if f.IsAliased() {
		t.Fatal("freshly allocated frame should not be aliased")
	}
	f.Retain()
	if !f.IsAliased() {
		t.Fatal("expected aliased after Retain")
	}
	f.Release()
	if f.IsAliased() {
		t.Fatal("expected not aliased after matching Release")
	}
}

func TestCloneCopiesPlaneData(t *testing.T) {
	src := NewStandalone(4, 4, FormatYUV420P)
	src.Data[0][0] = 42
	src.PTS = 1.5

	dst, err := src.Clone(func() (*Frame, error) {
		return NewStandalone(src.Width, src.Height, src.Format), nil
	})
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if dst.Data[0][0] != 42 {
		t.Errorf("expected cloned plane data to match source")
	}
	if dst.PTS != 1.5 {
		t.Errorf("expected PTS carried over, got %v", dst.PTS)
	}

	dst.Data[0][0] = 7
	if src.Data[0][0] != 42 {
		t.Errorf("mutating clone must not affect source, copy-on-write violated")
	}
}

func TestRGBAHasSinglePlane(t *testing.T) {
	f := NewStandalone(2, 2, FormatRGBA)
	if f.Format.NumPlanes() != 1 {
		t.Fatalf("expected RGBA to report 1 plane")
	}
	if len(f.Data[0]) != f.Strides[0]*f.Height {
		t.Errorf("unexpected plane 0 size %d, want %d", len(f.Data[0]), f.Strides[0]*f.Height)
	}
}
