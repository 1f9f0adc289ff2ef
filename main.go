package main

import (
	"math/rand"
	"time"

	"github.com/luma/tiller/cmd"
)

func main() {
	rand.Seed(time.Now().UnixNano())

	cmd.Execute()
}
