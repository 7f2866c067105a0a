package raster

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"left.exr", FormatEXR},
		{"LEFT.TIF", FormatTIFF},
		{"a/b/c.tiff", FormatTIFF},
		{"scene.jp2", FormatJPEG2000},
		{"scene.j2k", FormatJPEG2000},
		{"mask.png", FormatPNG},
		{"disp.bin", FormatUnknown},
	}
	for _, tt := range tests {
		if got := FormatFromPath(tt.path); got != tt.want {
			t.Errorf("FormatFromPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestReadFileEXR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "left.exr")

	src, _ := FromSlice(2, 3, []float32{1, 2, -9999, 4, 5, 6})
	if err := src.WriteEXRFile(path); err != nil {
		t.Fatalf("WriteEXRFile() error = %v", err)
	}

	r, err := ReadFile(path, DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if r.Rows != 2 || r.Cols != 3 {
		t.Fatalf("ReadFile() size = %dx%d, want 2x3", r.Rows, r.Cols)
	}
	for i := range src.Data {
		if r.Data[i] != src.Data[i] {
			t.Errorf("Data[%d] = %v, want %v", i, r.Data[i], src.Data[i])
		}
	}
	if r.Mask == nil {
		t.Fatal("Mask = nil, want a mask for the no-data sample")
	}
	if r.Mask[2] != DefaultNoDataMask || r.Mask[0] != DefaultValidPixels {
		t.Errorf("Mask = %v, want no-data code at index 2 only", r.Mask)
	}
}

func TestReadFileWithoutNoData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "right.exr")
	src, _ := FromSlice(1, 2, []float32{3, 4})
	if err := src.WriteEXRFile(path); err != nil {
		t.Fatal(err)
	}

	opts := DefaultReadOptions()
	opts.NoData = math.NaN()
	r, err := ReadFile(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if r.Mask != nil {
		t.Errorf("Mask = %v, want nil without mask file or no-data samples", r.Mask)
	}
}

func TestReadFileMask(t *testing.T) {
	dir := t.TempDir()

	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	for i := 0; i < 6; i++ {
		img.SetGray16(i%3, i/3, color.Gray16{Y: uint16(10 * i)})
	}
	imgPath := filepath.Join(dir, "left.png")
	writePNG(t, imgPath, img)

	mask := image.NewGray(image.Rect(0, 0, 3, 2))
	mask.SetGray(1, 0, color.Gray{Y: 255})
	mask.SetGray(0, 1, color.Gray{Y: 1})
	maskPath := filepath.Join(dir, "left_mask.png")
	writePNG(t, maskPath, mask)

	opts := ReadOptions{NoData: 50, MaskPath: maskPath, ValidPixels: 0, NoDataCode: 1}
	r, err := ReadFile(imgPath, opts)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := r.At(1, 2); got != 50 {
		t.Errorf("At(1, 2) = %v, want 50", got)
	}
	want := []int16{0, 2, 0, 2, 0, 1}
	for i := range want {
		if r.Mask[i] != want[i] {
			t.Errorf("Mask[%d] = %d, want %d", i, r.Mask[i], want[i])
		}
	}
}

func TestReadFileMaskSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "img.png")
	writePNG(t, imgPath, image.NewGray(image.Rect(0, 0, 3, 3)))
	maskPath := filepath.Join(dir, "mask.png")
	writePNG(t, maskPath, image.NewGray(image.Rect(0, 0, 2, 3)))

	opts := DefaultReadOptions()
	opts.MaskPath = maskPath
	if _, err := ReadFile(imgPath, opts); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("ReadFile() error = %v, want ErrSizeMismatch", err)
	}
}

func TestReadFileUnsupported(t *testing.T) {
	if _, err := ReadFile("disparity.bin", DefaultReadOptions()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ReadFile(.bin) error = %v, want ErrUnsupportedFormat", err)
	}
}
