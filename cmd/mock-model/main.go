package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shpitdev/tabletalk/internal/mockmodel"
)

func main() {
	addr := defaultString("MOCK_MODEL_ADDR", ":8090")

	fs := flag.NewFlagSet("mock-model", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	_ = fs.Parse(os.Args[1:])

	srv := mockmodel.New()
	srv.Reply("how many", `{"op":"count"}`)
	srv.Reply("average", `{"op":"aggregate","aggregate":"avg","measure":"amount"}`)
	srv.Reply("show", `{"op":"select","limit":10}`)

	_, _ = fmt.Fprintf(os.Stdout, "mock-model listening on %s\n", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(varName, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		return v
	}
	return fallback
}
