package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/andresilva/gocnn/gocnn"
)

func main() {
	rand.Seed(42)

	fmt.Println("=== XOR Training Example ===")

	// 2 inputs -> 4 hidden -> 4 hidden -> 1 output, sigmoid throughout.
	// XOR cannot be solved by a single-layer perceptron.
	network, err := gocnn.New([]gocnn.Config{
		gocnn.Input(2),
		gocnn.Dense(4, "sigmoid"),
		gocnn.Dense(4, "sigmoid"),
		gocnn.Dense(1, "sigmoid"),
	}, gocnn.Options{LearningRate: 0.5})
	if err != nil {
		fmt.Println("Error building network:", err)
		os.Exit(1)
	}

	trainX := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	trainY := [][]float64{{0}, {1}, {1}, {0}}

	for epoch := 0; epoch < 20000; epoch++ {
		for i := range trainX {
			if err := network.Train(gocnn.Vec(trainX[i]), trainY[i]); err != nil {
				fmt.Println("Training error:", err)
				os.Exit(1)
			}
		}
		if epoch%2000 == 0 {
			fmt.Printf("Epoch %d\n", epoch)
		}
	}

	fmt.Println("\nTesting trained network:")
	for i := range trainX {
		pred, err := network.Guess(gocnn.Vec(trainX[i]))
		if err != nil {
			fmt.Println("Inference error:", err)
			os.Exit(1)
		}
		fmt.Printf("Input: %v, Predicted: %.4f, Target: %v\n", trainX[i], pred[0], trainY[i][0])
	}
}
