package main

import (
	"os"

	"horse.fit/news-coverage/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
