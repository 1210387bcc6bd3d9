// ICE Candidate Interop Server
//
// This server parses ICE candidates gathered by a real browser and by a
// local pion PeerConnection, passing each one through the C record layout
// the shared library hands out. Use it to check that every candidate shape
// a browser emits survives the round trip.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/thesyncim/candidateparser/cmd/candidate-interop/server"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	fmt.Printf(`
ICE Candidate Interop Server
============================
1. Open http://localhost%s in a browser
2. Click "Gather Candidates"
3. Every gathered candidate is listed with its parsed fields
4. GET /local parses the candidates of a local pion offer

`, *addr)

	cfg := server.DefaultConfig()
	cfg.Addr = *addr
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	addrActual, err := srv.Start()
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Printf("Listening on %s", addrActual)

	// Block forever
	select {}
}
