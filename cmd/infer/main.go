package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresilva/gocnn/gocnn"
	"github.com/andresilva/gocnn/internal/mnist"
)

func main() {
	checkpoint := flag.String("checkpoint", "mnist.json", "checkpoint path")
	dataDir := flag.String("data", "data", "directory with IDX test files")
	index := flag.Int("index", 0, "test sample index to classify")
	flag.Parse()

	network, err := gocnn.Load(*checkpoint, gocnn.Options{Loss: "categorical_crossentropy"})
	if err != nil {
		fatal(err)
	}

	images, err := mnist.ReadImages(filepath.Join(*dataDir, "t10k-images-idx3-ubyte"))
	if err != nil {
		fatal(err)
	}
	labels, err := mnist.ReadLabels(filepath.Join(*dataDir, "t10k-labels-idx1-ubyte"))
	if err != nil {
		fatal(err)
	}
	if *index < 0 || *index >= len(images) {
		fatal(fmt.Errorf("index %d out of range [0,%d)", *index, len(images)))
	}

	probs, err := network.Guess(gocnn.FromTensor(images[*index]))
	if err != nil {
		fatal(err)
	}

	best := 0
	for i, p := range probs {
		fmt.Printf("class %d: %.4f\n", i, p)
		if p > probs[best] {
			best = i
		}
	}
	fmt.Printf("predicted %d, actual %d\n", best, labels[*index])
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
