package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/filequeue/pkg/filequeue"
)

func Test_Run_SnapshotMatchesQueueState(t *testing.T) {
	dir := t.TempDir()
	queuePath := filepath.Join(dir, "queue.bin")

	q, err := filequeue.Open(queuePath)
	require.NoError(t, err)

	ok, err := q.Add([]byte("hello filequeue"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.Add([]byte("second element"))
	require.NoError(t, err)
	require.True(t, ok)

	wantSize := q.Size()
	wantLength := q.FileLength()

	require.NoError(t, q.Close())

	snapPath := filepath.Join(dir, "snapshot.json")

	require.NoError(t, run([]string{"-o", snapPath, queuePath}))

	data, err := os.ReadFile(snapPath)
	require.NoError(t, err)

	var snap snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	require.Equal(t, queuePath, snap.Path)
	require.Equal(t, wantLength, snap.FileLength)
	require.Equal(t, wantSize, snap.ElementCount)
	require.Equal(t, len("hello filequeue"), snap.HeadLength)
}

func Test_Run_PreviewFlag_TruncatesHeadPreview(t *testing.T) {
	dir := t.TempDir()
	queuePath := filepath.Join(dir, "queue.bin")

	q, err := filequeue.Open(queuePath)
	require.NoError(t, err)

	ok, err := q.Add([]byte("0123456789"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, q.Close())

	snapPath := filepath.Join(dir, "snapshot.json")

	require.NoError(t, run([]string{"-o", snapPath, "-p", "4", queuePath}))

	data, err := os.ReadFile(snapPath)
	require.NoError(t, err)

	var snap snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	require.Equal(t, 10, snap.HeadLength)
	require.Equal(t, `"0123"`, snap.HeadPreview)
}

func Test_Run_EmptyQueue_OmitsHeadFields(t *testing.T) {
	dir := t.TempDir()
	queuePath := filepath.Join(dir, "queue.bin")

	q, err := filequeue.Open(queuePath)
	require.NoError(t, err)
	require.NoError(t, q.Close())

	snapPath := filepath.Join(dir, "snapshot.json")

	require.NoError(t, run([]string{"-o", snapPath, queuePath}))

	data, err := os.ReadFile(snapPath)
	require.NoError(t, err)

	var snap snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	require.Equal(t, 0, snap.ElementCount)
	require.Equal(t, 0, snap.HeadLength)
	require.Equal(t, "", snap.HeadPreview)
}

func Test_Run_RejectsWrongArgCount(t *testing.T) {
	require.Error(t, run(nil))
}
