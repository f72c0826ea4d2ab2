// Command mkconfig writes the default Ember configuration as TOML, or
// checks an existing file.
package main

import (
	"flag"
	"fmt"
	"os"

	"ember/config"
)

func main() {
	var (
		outPath = flag.String("out", "", "Output file (default: stdout).")
		check   = flag.String("check", "", "Validate this file instead of writing one.")
	)
	flag.Parse()

	if *check != "" {
		c, err := config.Load(*check)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s: ok (%d Hz, %d priorities, %d threads)\n", *check, c.Kernel.TickHz, c.Kernel.Priorities, c.Kernel.MaxThreads)
		return
	}

	data, err := config.Encode(config.Default())
	if err != nil {
		fatalf("%v", err)
	}
	if *outPath == "" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		fatalf("write: %v", err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
