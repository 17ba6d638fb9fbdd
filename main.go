package main

import (
	"log"

	_ "velocity-playground/docs"
	"velocity-playground/internal/app"
)

// @title Velocity Playground API
// @version 1.0
// @description Renders Velocity templates against a JSON context for the playground editor.
// @license.name MIT
// @BasePath /
func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
