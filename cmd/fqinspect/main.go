// fqinspect opens a filequeue file read-only and reports its geometry.
//
// Usage:
//
//	fqinspect [-o snapshot.json] <queue-file>
//
// With -o, the reported geometry is also written as a JSON document via an
// atomic rename, so a concurrently running process never observes a
// partially written snapshot.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/filequeue/pkg/filequeue"
)

// snapshot is the JSON shape written by -o.
type snapshot struct {
	Path         string `json:"path"`
	FileLength   uint32 `json:"file_length"`
	ElementCount int    `json:"element_count"`
	HeadLength   int    `json:"head_length,omitempty"`
	HeadPreview  string `json:"head_preview,omitempty"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fqinspect: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("fqinspect", flag.ContinueOnError)
	out := flags.StringP("out", "o", "", "write a JSON snapshot to this path atomically")
	previewLen := flags.IntP("preview", "p", 32, "max bytes of the head element to preview")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("usage: fqinspect [-o snapshot.json] <queue-file>")
	}

	path := flags.Arg(0)

	// filequeue.Open initialises a missing or empty file as a fresh queue;
	// refuse those paths so inspecting never writes a queue file.
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	if info.Size() == 0 {
		return fmt.Errorf("opening %s: file is empty, not a queue file", path)
	}

	q, err := filequeue.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer q.Close()

	snap := snapshot{
		Path:         path,
		FileLength:   q.FileLength(),
		ElementCount: q.Size(),
	}

	head, ok, err := q.Peek()
	if err != nil {
		return fmt.Errorf("peeking head element: %w", err)
	}

	if ok {
		snap.HeadLength = len(head)

		if n := *previewLen; n > 0 && len(head) > 0 {
			if n > len(head) {
				n = len(head)
			}

			snap.HeadPreview = fmt.Sprintf("%q", head[:n])
		}
	}

	fmt.Printf("%s: %d element(s), file length %d bytes\n", path, snap.ElementCount, snap.FileLength)

	if ok {
		fmt.Printf("head: %d bytes %s\n", snap.HeadLength, snap.HeadPreview)
	}

	if *out == "" {
		return nil
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	data = append(data, '\n')

	if err := atomic.WriteFile(*out, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", *out, err)
	}

	return nil
}
