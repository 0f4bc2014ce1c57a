// Fuzz test comparing the queue against an in-memory FIFO reference model.
// Failures mean a sequence of Add/Remove/Peek/Clear/reopen calls produced
// state that diverges from plain slice semantics.

package filequeue

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/filequeue/pkg/filequeue/internal/qtest"
)

// FuzzQueue_Matches_FIFOModel_When_Random_Ops_Applied drives a small queue
// file through a randomized sequence of Add/Remove/Peek/Clear/Close+reopen
// operations derived from the fuzz corpus entry and checks every observation
// against a [][]byte reference model.
func FuzzQueue_Matches_FIFOModel_When_Random_Ops_Applied(f *testing.F) {
	f.Add([]byte{0x00, 0x01, 0x02})
	f.Add([]byte{0xFF, 0xFE, 0xFD, 0xAA, 0x55})
	f.Add([]byte("filequeue-ops-seed"))
	f.Add(make([]byte, 96))

	f.Fuzz(func(t *testing.T, fuzzBytes []byte) {
		path := filepath.Join(t.TempDir(), "fuzz.bin")

		q, err := Open(path, WithMinFileSize(128))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}

		defer func() {
			_ = q.Close()
		}()

		var model [][]byte

		script := qtest.NewOpScript(fuzzBytes)

		const maxOps = 200

		for i := 0; i < maxOps && script.More(); i++ {
			switch script.Op(5) {
			case 0: // Add
				p := script.Payload(64)

				ok, err := q.Add(p)
				if err != nil {
					t.Fatalf("Add: %v", err)
				}

				if ok {
					model = append(model, p)
				}
			case 1: // Remove
				ok, err := q.Remove()
				if err != nil {
					t.Fatalf("Remove: %v", err)
				}

				if ok != (len(model) > 0) {
					t.Fatalf("Remove ok=%v, model has %d elements", ok, len(model))
				}

				if ok {
					model = model[1:]
				}
			case 2: // Peek
				got, ok, err := q.Peek()
				if err != nil {
					t.Fatalf("Peek: %v", err)
				}

				checkPeek(t, model, got, ok)
			case 3: // Clear
				if _, err := q.Clear(); err != nil {
					t.Fatalf("Clear: %v", err)
				}

				model = nil
			case 4: // Close + reopen, durability must survive it
				if err := q.Close(); err != nil {
					t.Fatalf("Close: %v", err)
				}

				q, err = Open(path, WithMinFileSize(128))
				if err != nil {
					t.Fatalf("reopen: %v", err)
				}
			}

			if got, want := q.Size(), len(model); got != want {
				t.Fatalf("Size() = %d, want %d", got, want)
			}
		}

		checkPeek(t, model, peekOrNil(t, q), len(model) > 0)
	})
}

func checkPeek(t *testing.T, model [][]byte, got []byte, ok bool) {
	t.Helper()

	if len(model) == 0 {
		if ok {
			t.Fatalf("Peek ok=true on empty model")
		}

		return
	}

	if !ok {
		t.Fatalf("Peek ok=false, model head is %v", model[0])
	}

	if !bytes.Equal(got, model[0]) {
		t.Fatalf("Peek = %v, want %v", got, model[0])
	}

	if diff := cmp.Diff(model[0], got); diff != "" {
		t.Fatalf("Peek mismatch (-want +got):\n%s", diff)
	}
}

func peekOrNil(t *testing.T, q *Queue) []byte {
	t.Helper()

	got, _, err := q.Peek()
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}

	return got
}
