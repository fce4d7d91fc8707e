// Package mnist reads IDX-format image and label files and produces
// normalized single-sample tensors for the engine.
package mnist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/andresilva/gocnn/internal/tensor"
)

const (
	imageMagic = 0x00000803
	labelMagic = 0x00000801
)

// ReadImages reads an IDX image file and returns one [1,H,W,1] tensor
// per image, pixel bytes normalized to [0,1].
func ReadImages(path string) ([]*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()
	return readImages(bufio.NewReader(f))
}

func readImages(r io.Reader) ([]*tensor.Tensor, error) {
	var header [4]uint32
	for i := range header {
		if err := binary.Read(r, binary.BigEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("failed to read image header: %w", err)
		}
	}
	if header[0] != imageMagic {
		return nil, fmt.Errorf("bad image magic 0x%08x", header[0])
	}
	count := int(header[1])
	h := int(header[2])
	w := int(header[3])

	pixels := make([]byte, h*w)
	images := make([]*tensor.Tensor, 0, count)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, pixels); err != nil {
			return nil, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		t := tensor.New(1, h, w, 1)
		data := t.Data()
		for j, p := range pixels {
			data[j] = float64(p) / 255
		}
		images = append(images, t)
	}
	return images, nil
}

// ReadLabels reads an IDX label file.
func ReadLabels(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()
	return readLabels(bufio.NewReader(f))
}

func readLabels(r io.Reader) ([]int, error) {
	var magic, count uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}
	if magic != labelMagic {
		return nil, fmt.Errorf("bad label magic 0x%08x", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read label count: %w", err)
	}
	raw := make([]byte, count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	labels := make([]int, count)
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// OneHot returns a one-hot target vector for a class label.
func OneHot(label, classes int) []float64 {
	v := make([]float64, classes)
	v[label] = 1
	return v
}
