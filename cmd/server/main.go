package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/ramu7700/secure-video-call/internal/relay"
	"github.com/ramu7700/secure-video-call/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	hub := relay.NewHub()

	http.HandleFunc("/health", server.HealthHandler)
	http.HandleFunc("/stats", server.StatsHandler(hub))
	http.HandleFunc("/ws", server.ServeWs(hub))

	log.Printf("Starting signaling relay on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
