package frame

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/e1z0/mediareader/internal/fraction"
)

func TestGetSamplesPerFrameConstantRate(t *testing.T) {
	fps := fraction.New(30, 1)
	for k := 1; k <= 10; k++ {
		if got := GetSamplesPerFrame(k, fps, 48000, 2); got != 1600 {
			t.Fatalf("GetSamplesPerFrame(%d) = %d, want 1600", k, got)
		}
	}
}

func TestGetSamplesPerFrameNTSCSumsCorrectly(t *testing.T) {
	fps := fraction.New(30000, 1001)
	sampleRate := 48000
	channels := 2

	var total int
	for k := 1; k <= 100; k++ {
		spf := GetSamplesPerFrame(k, fps, sampleRate, channels)
		if spf%channels != 0 {
			t.Fatalf("frame %d: samples %d not a multiple of channels %d", k, spf, channels)
		}
		total += spf
	}

	expected := float64(sampleRate) * fps.Reciprocal().ToFloat64() * 100
	if diff := float64(total) - expected; diff > float64(channels) || diff < -float64(channels) {
		t.Fatalf("cumulative samples %d too far from expected %v", total, expected)
	}
}

func TestAddColorAndGetImage(t *testing.T) {
	f := New(1)
	f.AddColor(4, 2, "#ff0000")
	if !f.HasImageData {
		t.Fatal("HasImageData should be true after AddColor")
	}
	img := f.GetImage()
	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 0xff || g>>8 != 0 || b>>8 != 0 || a>>8 != 0xff {
		t.Fatalf("unexpected fill color: %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestGetImageLazyFillsBlack(t *testing.T) {
	f := newFrame(1, 2, 2, 2)
	img := f.GetImage()
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("unexpected image size %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Fatalf("lazy fill color = %v, want opaque black", got)
	}
}

func TestAddAudioGrowsAndMixes(t *testing.T) {
	f := New(1)
	source := []float32{1, 1, 1}
	f.AddAudio(true, 0, 0, source, 3, 1.0)
	if !f.HasAudioData {
		t.Fatal("HasAudioData should be true after AddAudio")
	}
	if f.GetAudioSamplesCount() != 3 {
		t.Fatalf("GetAudioSamplesCount() = %d, want 3", f.GetAudioSamplesCount())
	}
	got := f.GetAudioSamples(0)
	for _, v := range got {
		if v != 1 {
			t.Fatalf("AddAudio mix: got %v, want all 1", got)
		}
	}
}

func TestAddAudioSilence(t *testing.T) {
	f := New(1)
	f.AddAudioSilence(100)
	if f.GetAudioSamplesCount() != 100 {
		t.Fatalf("GetAudioSamplesCount() = %d, want 100", f.GetAudioSamplesCount())
	}
	if !f.HasAudioData {
		t.Fatal("HasAudioData should be true after AddAudioSilence")
	}
}

func TestGetPlanarVsInterleaved(t *testing.T) {
	f := New(1)
	f.AddAudio(true, 0, 0, []float32{1, 2}, 2, 1.0)
	f.AddAudio(true, 1, 0, []float32{10, 20}, 2, 1.0)

	planar := f.GetPlanarAudioSamples()
	wantPlanar := []float32{1, 2, 10, 20}
	for i := range wantPlanar {
		if planar[i] != wantPlanar[i] {
			t.Fatalf("GetPlanarAudioSamples = %v, want %v", planar, wantPlanar)
		}
	}

	interleaved := f.GetInterleavedAudioSamples()
	wantInterleaved := []float32{1, 10, 2, 20}
	for i := range wantInterleaved {
		if interleaved[i] != wantInterleaved[i] {
			t.Fatalf("GetInterleavedAudioSamples = %v, want %v", interleaved, wantInterleaved)
		}
	}
}

func TestGetBytesEstimate(t *testing.T) {
	f := NewWithImage(1, 10, 10, "#000000")
	if got := f.GetBytes(); got <= 0 {
		t.Fatalf("GetBytes() = %d, want > 0", got)
	}
}

func TestSaveImageRoundTrips(t *testing.T) {
	f := NewWithImage(1, 4, 4, "#00ff00")
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	if err := f.SaveImage(path, 1.0); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved image: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("saved PNG is empty")
	}
}

func TestWaveformWithNoAudioIsBlank(t *testing.T) {
	f := New(1)
	img := f.Waveform(16, 16, color.RGBA{B: 255, A: 255})
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("unexpected waveform size %v", img.Bounds())
	}
	if got := img.RGBAAt(8, 8); got != (color.RGBA{A: 255}) {
		t.Fatalf("waveform pixel = %v, want opaque black", got)
	}
}

func TestWaveformWithAudio(t *testing.T) {
	f := New(1)
	f.AddAudio(true, 0, 0, []float32{0, 0.5, -0.5, 0}, 4, 1.0)
	img := f.Waveform(32, 32, color.RGBA{B: 255, A: 255})
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Fatalf("unexpected waveform size %v", img.Bounds())
	}
}
