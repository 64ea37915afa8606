package main

import "viego/internal/app"

func main() {
	app.Run()
}
