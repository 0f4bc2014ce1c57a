// fqrepl is an interactive REPL for manually driving a filequeue file during
// development and incident response. It is a debug tool, not the production
// façade an application builds on top of [filequeue.Queue].
//
// Usage:
//
//	fqrepl <queue-file>
//
// Commands (in REPL):
//
//	add <bytes>      Append bytes (UTF-8 text, or 0x-prefixed hex) to the tail
//	peek             Show the head element without removing it
//	remove           Remove the head element
//	size             Show the live element count
//	clear            Empty the queue without shrinking the file
//	info             Show file length and geometry
//	help             Show this help
//	exit / quit / q  Exit
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/filequeue/pkg/filequeue"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fqrepl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: fqrepl <queue-file>")
	}

	q, err := filequeue.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer q.Close()

	r := &repl{path: args[0], q: q}

	return r.run()
}

type repl struct {
	path  string
	q     *filequeue.Queue
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".fqrepl_history")
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("fqrepl - filequeue CLI (%s)\n", r.path)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("fqrepl> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.SplitN(line, " ", 2)
		cmd := strings.ToLower(parts[0])

		var rest string
		if len(parts) == 2 {
			rest = parts[1]
		}

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "add":
			r.cmdAdd(rest)

		case "peek":
			r.cmdPeek()

		case "remove", "rm":
			r.cmdRemove()

		case "size", "len":
			fmt.Println(r.q.Size())

		case "clear":
			r.cmdClear()

		case "info":
			r.cmdInfo()

		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) printHelp() {
	fmt.Println("commands:")
	fmt.Println("  add <bytes>      append bytes (text, or 0x-prefixed hex) to the tail")
	fmt.Println("  peek             show the head element without removing it")
	fmt.Println("  remove           remove the head element")
	fmt.Println("  size             show the live element count")
	fmt.Println("  clear            empty the queue without shrinking the file")
	fmt.Println("  info             show file length and geometry")
	fmt.Println("  exit / quit / q  exit")
}

func (r *repl) cmdAdd(arg string) {
	if arg == "" {
		fmt.Println("usage: add <bytes>")

		return
	}

	payload, err := decodePayload(arg)
	if err != nil {
		fmt.Printf("error: %v\n", err)

		return
	}

	ok, err := r.q.Add(payload)
	if err != nil {
		fmt.Printf("error: %v\n", err)

		return
	}

	if !ok {
		fmt.Println("add rejected (device write failed)")

		return
	}

	fmt.Printf("added %d byte(s)\n", len(payload))
}

func (r *repl) cmdPeek() {
	data, ok, err := r.q.Peek()
	if err != nil {
		fmt.Printf("error: %v\n", err)

		return
	}

	if !ok {
		fmt.Println("(empty)")

		return
	}

	fmt.Printf("%d byte(s): %s\n", len(data), previewBytes(data))
}

func (r *repl) cmdRemove() {
	ok, err := r.q.Remove()
	if err != nil {
		fmt.Printf("error: %v\n", err)

		return
	}

	if !ok {
		if r.q.Size() == 0 {
			fmt.Println("(empty)")
		} else {
			fmt.Println("remove rejected (device write failed)")
		}

		return
	}

	fmt.Println("removed")
}

func (r *repl) cmdClear() {
	ok, err := r.q.Clear()
	if err != nil {
		fmt.Printf("error: %v\n", err)

		return
	}

	if !ok {
		fmt.Println("clear rejected (device write failed)")

		return
	}

	fmt.Println("cleared")
}

func (r *repl) cmdInfo() {
	fmt.Printf("file length: %d bytes\n", r.q.FileLength())
	fmt.Printf("elements:    %d\n", r.q.Size())
}

// decodePayload accepts either plain text or a 0x-prefixed hex string, so a
// REPL user can inject payload bytes that aren't valid UTF-8.
func decodePayload(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		b, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}

		return b, nil
	}

	return []byte(s), nil
}

func previewBytes(b []byte) string {
	const maxPreview = 64

	if len(b) > maxPreview {
		return fmt.Sprintf("%q...", b[:maxPreview])
	}

	return fmt.Sprintf("%q", b)
}
