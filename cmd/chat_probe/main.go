package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"chat-relay-be/pkg/chatclient"

	"github.com/fatih/color"
)

// Smoke-tests a running relay end to end: connects, sends one message and
// prints the streamed reply frame by frame.
func main() {
	workerURL := flag.String("url", "http://localhost:8787", "relay base URL")
	userID := flag.String("user", "probe-user", "userId query parameter")
	projectID := flag.String("project", "", "projectId query parameter")
	message := flag.String("message", "What documents do you have?", "user message to send")
	timeout := flag.Duration("timeout", 30*time.Second, "max wait for the terminal frame")
	flag.Parse()

	color.Cyan("🚀 Chat relay probe\n")
	fmt.Printf("Target: %s (user=%s project=%s)\n", *workerURL, *userID, *projectID)

	done := make(chan struct{})
	frames := 0

	client, err := chatclient.New(chatclient.Config{
		WorkerURL: *workerURL,
		UserID:    *userID,
		ProjectID: *projectID,
		OnStateChange: func(s chatclient.State) {
			color.Yellow("[state] %s", s)
		},
		OnError: func(msg string) {
			color.Red("[error envelope] %s", msg)
		},
		OnMessage: func(m chatclient.Message) {
			frames++
			if m.IsComplete {
				color.Green("\n[terminal] %s: %s", m.Id, m.Content)
				close(done)
				return
			}
			fmt.Printf("[chunk %3d] %s: %q\n", frames, m.Id, m.Content)
		},
	})
	if err != nil {
		log.Fatalf("Failed to build client: %v", err)
	}
	defer client.Destroy()

	if err := client.Open(); err != nil {
		color.Red("Failed to connect: %v", err)
		os.Exit(1)
	}

	// The server acks the attach with a connection_status frame; give it a
	// beat before writing.
	time.Sleep(200 * time.Millisecond)

	color.Yellow("\nUSER: %s", *message)
	messageId, err := client.SendMessage(*message)
	if err != nil {
		color.Red("Send failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("Sent as %s (expecting reply id assistant_%s)\n\n", messageId, messageId)

	select {
	case <-done:
		color.Green("\n✅ Probe complete: %d assistant frames received", frames)
	case <-time.After(*timeout):
		color.Red("\n❌ Timed out after %v waiting for the terminal frame", *timeout)
		os.Exit(1)
	}
}
