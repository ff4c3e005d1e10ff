package main

import (
	"log"
	"os"

	"dm_chat/internal/service/app"
)

func main() {
	// os.Args[0] is the program name, os.Args[1:] are arguments
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <username>")
	}

	username := os.Args[1]

	serverAddr := os.Getenv("CHAT_SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = "localhost:9090"
	}

	client := app.NewApp(serverAddr)
	client.Run(username)
	client.Stop()
}
