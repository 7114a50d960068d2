package main

import (
	"github.com/chartloop/backend/cmd/app"
)

func main() {
	app.Run()
}
