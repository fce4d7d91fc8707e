package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/andresilva/gocnn/gocnn"
	"github.com/andresilva/gocnn/internal/mnist"
)

func main() {
	dataDir := flag.String("data", "data", "directory with IDX training files")
	epochs := flag.Int("epochs", 3, "training epochs")
	lr := flag.Float64("lr", 0.01, "learning rate")
	limit := flag.Int("limit", 0, "cap on training samples (0 = all)")
	checkpoint := flag.String("checkpoint", "mnist.json", "checkpoint output path")
	seed := flag.Int64("seed", 42, "parameter initialization seed")
	flag.Parse()

	rand.Seed(*seed)

	images, err := mnist.ReadImages(filepath.Join(*dataDir, "train-images-idx3-ubyte"))
	if err != nil {
		fatal(err)
	}
	labels, err := mnist.ReadLabels(filepath.Join(*dataDir, "train-labels-idx1-ubyte"))
	if err != nil {
		fatal(err)
	}
	if len(images) != len(labels) {
		fatal(fmt.Errorf("%d images but %d labels", len(images), len(labels)))
	}
	if *limit > 0 && *limit < len(images) {
		images = images[:*limit]
		labels = labels[:*limit]
	}

	network, err := gocnn.New([]gocnn.Config{
		gocnn.Input(28, 28, 1),
		gocnn.Conv2D(8, 3, 3, 1, "same", "relu"),
		gocnn.MaxPool2D(2, 2, 0),
		gocnn.Conv2D(16, 3, 3, 1, "valid", "relu"),
		gocnn.MaxPool2D(2, 2, 0),
		gocnn.Flatten(),
		gocnn.Dense(64, "relu"),
		gocnn.Dense(10, "softmax"),
	}, gocnn.Options{LearningRate: *lr, Loss: "categorical_crossentropy"})
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Training on %d samples for %d epochs (lr=%g)\n", len(images), *epochs, *lr)

	order := make([]int, len(images))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < *epochs; epoch++ {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		correct := 0
		for n, i := range order {
			target := mnist.OneHot(labels[i], 10)
			if err := network.Train(gocnn.FromTensor(images[i]), target); err != nil {
				fatal(err)
			}

			pred, err := network.Guess(gocnn.FromTensor(images[i]))
			if err != nil {
				fatal(err)
			}
			if argmax(pred) == labels[i] {
				correct++
			}
			if (n+1)%1000 == 0 {
				fmt.Printf("epoch %d: %d/%d samples, accuracy %.2f%%\n",
					epoch, n+1, len(order), 100*float64(correct)/float64(n+1))
			}
		}
		fmt.Printf("epoch %d done, accuracy %.2f%%\n", epoch, 100*float64(correct)/float64(len(order)))

		if err := network.Save(*checkpoint); err != nil {
			fatal(err)
		}
		fmt.Println("checkpoint saved to", *checkpoint)
	}
}

func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
