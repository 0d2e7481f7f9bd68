// Command vknob-trace prints a CBOR trace written by vknob-sim.
//
// Usage:
//
//	go run ./cmd/vknob-trace [--session id-prefix] [--layer session|link] trace.cbor
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chaz8081/vknob/internal/trace"
)

func main() {
	sessionPrefix := flag.String("session", "", "only show records whose session id starts with this prefix")
	layer := flag.String("layer", "", "only show records from this layer: session or link")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: vknob-trace [flags] trace.cbor")
		os.Exit(2)
	}

	r, err := trace.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("open trace: %v", err)
	}
	defer r.Close()

	count := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("read trace: %v", err)
		}
		if *sessionPrefix != "" && !strings.HasPrefix(rec.Session, *sessionPrefix) {
			continue
		}
		if *layer != "" && !strings.EqualFold(rec.Layer.String(), *layer) {
			continue
		}
		fmt.Println(rec)
		count++
	}
	fmt.Fprintf(os.Stderr, "%d records\n", count)
}
