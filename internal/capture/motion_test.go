package capture

import (
	"image"
	"testing"
)

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{name: "default threshold", threshold: 1.0, want: 1.0},
		{name: "high threshold", threshold: 5.0, want: 5.0},
		{name: "low threshold", threshold: 0.5, want: 0.5},
		{name: "zero falls back to default", threshold: 0, want: DefaultMotionThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			if got := md.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %f, want %f", got, tt.want)
			}
			if md.prev != nil {
				t.Error("motion detector should not have a baseline initially")
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	md := NewMotionDetector(1.0)

	detected, changePercent := md.Detect(uniform(64, 48, 0))
	if detected || changePercent != 0 {
		t.Errorf("first frame = (%v, %f), want (false, 0)", detected, changePercent)
	}

	detected, changePercent = md.Detect(uniform(64, 48, 0))
	if detected {
		t.Errorf("identical frames should not detect motion, changePercent = %f", changePercent)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	md := NewMotionDetector(1.0)

	md.Detect(uniform(64, 48, 0))
	detected, changePercent := md.Detect(uniform(64, 48, 255))
	if !detected {
		t.Errorf("black to white should detect motion, changePercent = %f", changePercent)
	}
	if changePercent < 50.0 {
		t.Errorf("changePercent = %f, expected > 50%% for black to white transition", changePercent)
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	md := NewMotionDetector(1.0)

	md.Detect(uniform(32, 32, 0))
	md.Reset()

	detected, changePercent := md.Detect(uniform(32, 32, 255))
	if detected || changePercent != 0 {
		t.Errorf("after Reset() = (%v, %f), want (false, 0)", detected, changePercent)
	}
}

func TestMotionDetector_SizeChange(t *testing.T) {
	md := NewMotionDetector(1.0)

	md.Detect(uniform(32, 32, 0))
	detected, _ := md.Detect(uniform(40, 32, 255))
	if detected {
		t.Error("a size change should reset the baseline")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)

	md.SetThreshold(3.0)
	if got := md.Threshold(); got != 3.0 {
		t.Errorf("Threshold() = %f, want 3.0", got)
	}

	md.SetThreshold(-1)
	if got := md.Threshold(); got != 3.0 {
		t.Errorf("negative threshold should be ignored, got %f", got)
	}
}
