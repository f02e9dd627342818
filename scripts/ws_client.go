// Package main runs a demo WebSocket client for run events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const demoInstance = `{"instance":{"name":"demo","capacity":10,"nodes":[
{"id":1,"x":0,"y":0},{"id":2,"x":0,"y":5,"demand":3},{"id":3,"x":4,"y":4,"demand":6},
{"id":4,"x":-3,"y":2,"demand":4},{"id":5,"x":6,"y":-1,"demand":5}]},"population":20,"seed":1}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so the run events are not missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger a run
	time.Sleep(200 * time.Millisecond)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader([]byte(demoInstance)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var solveResp struct {
		Run struct {
			ID       string  `json:"id"`
			BestCost float64 `json:"bestCost"`
		} `json:"run"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&solveResp); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s best=%.2f", solveResp.Run.ID, solveResp.Run.BestCost)

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
