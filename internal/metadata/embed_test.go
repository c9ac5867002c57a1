package metadata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeStubTool creates an executable script standing in for exiftool.
// It appends its arguments to a log file so tests can inspect the
// invocation, and exits with the given code.
func writeStubTool(t *testing.T, exitCode int, stderr string) (tool, argLog string) {
	t.Helper()
	dir := t.TempDir()
	tool = filepath.Join(dir, "exiftool-stub")
	argLog = filepath.Join(dir, "args.log")

	script := "#!/bin/sh\n" +
		"printf '%s\\n' \"$@\" >> " + argLog + "\n"
	if stderr != "" {
		script += "echo '" + stderr + "' >&2\n"
	}
	script += "exit " + itoa(exitCode) + "\n"

	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return tool, argLog
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	return string(rune('0' + n))
}

func sessionDirWith(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestEmbed_WritesDualSchemaFields(t *testing.T) {
	tool, argLog := writeStubTool(t, 0, "")
	dir := sessionDirWith(t, "a.jpg")

	rec := Record{
		Filename:    "a.jpg",
		Title:       "Misty lake",
		Description: "Fog over still water",
		Keywords:    "lake,fog,dawn",
		Category:    "Nature",
	}
	result := NewEmbedder(tool).Embed(context.Background(), dir, []Record{rec})

	if result.SuccessCount != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	logged, err := os.ReadFile(argLog)
	if err != nil {
		t.Fatal(err)
	}
	args := string(logged)
	for _, want := range []string{
		"-overwrite_original",
		"-Title=Misty lake",
		"-Description=Fog over still water",
		"-Keywords=lake,fog,dawn",
		"-Category=Nature",
		"-IPTC:Caption-Abstract=Fog over still water",
		"-IPTC:Keywords=lake,fog,dawn",
		"-XMP:Title=Misty lake",
		"-XMP:Description=Fog over still water",
		"-XMP:Subject=lake,fog,dawn",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("exiftool args missing %q\nargs:\n%s", want, args)
		}
	}
}

func TestEmbed_MissingFileRecordedAndContinues(t *testing.T) {
	tool, _ := writeStubTool(t, 0, "")
	dir := sessionDirWith(t, "a.jpg")

	records := []Record{
		{Filename: "missing.jpg", Title: "x"},
		{Filename: "a.jpg", Title: "y"},
	}
	result := NewEmbedder(tool).Embed(context.Background(), dir, records)

	if result.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", result.SuccessCount)
	}
	if len(result.Errors) != 1 || result.Errors[0].Name != "missing.jpg" {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if !strings.Contains(result.Errors[0].Message, "file not found") {
		t.Errorf("diagnostic %q should mention file not found", result.Errors[0].Message)
	}
}

func TestEmbed_EscapingFilenameRejected(t *testing.T) {
	tool, argLog := writeStubTool(t, 0, "")

	// Two session directories under one root; a record must never reach
	// the neighbour.
	root := t.TempDir()
	dir := filepath.Join(root, "session-a")
	other := filepath.Join(root, "session-b")
	for _, d := range []string{dir, other} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(other, "victim.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	records := []Record{{Filename: "../session-b/victim.jpg", Title: "x"}}
	result := NewEmbedder(tool).Embed(context.Background(), dir, records)

	if result.SuccessCount != 0 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(result.Errors[0].Message, "invalid filename") {
		t.Errorf("diagnostic %q should reject the filename", result.Errors[0].Message)
	}
	// The tool must never have been invoked.
	if _, err := os.Stat(argLog); !os.IsNotExist(err) {
		logged, _ := os.ReadFile(argLog)
		t.Errorf("tool ran for a name outside the session dir:\n%s", logged)
	}
}

func TestEmbed_ToolFailureCapturesStderr(t *testing.T) {
	tool, _ := writeStubTool(t, 1, "Error: Bad format (a.jpg)")
	dir := sessionDirWith(t, "a.jpg", "b.jpg")

	records := []Record{
		{Filename: "a.jpg", Title: "x"},
		{Filename: "b.jpg", Title: "y"},
	}
	result := NewEmbedder(tool).Embed(context.Background(), dir, records)

	// Both invocations fail, both are reported, neither aborts the other.
	if result.SuccessCount != 0 || len(result.Errors) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(result.Errors[0].Message, "Bad format") {
		t.Errorf("diagnostic %q should carry tool stderr", result.Errors[0].Message)
	}
}

func TestEmbed_IdempotentInvocations(t *testing.T) {
	tool, argLog := writeStubTool(t, 0, "")
	dir := sessionDirWith(t, "a.jpg")
	rec := Record{Filename: "a.jpg", Title: "Same", Description: "Same", Keywords: "k", Category: "c"}
	embedder := NewEmbedder(tool)

	embedder.Embed(context.Background(), dir, []Record{rec})
	first, err := os.ReadFile(argLog)
	if err != nil {
		t.Fatal(err)
	}
	embedder.Embed(context.Background(), dir, []Record{rec})
	second, err := os.ReadFile(argLog)
	if err != nil {
		t.Fatal(err)
	}

	// Same record, same invocation: the second run repeats the first run's
	// arguments exactly, so embedded values cannot drift.
	if string(second) != string(first)+string(first) {
		t.Errorf("second invocation differs from first:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestEmbed_EmptyBatch(t *testing.T) {
	tool, _ := writeStubTool(t, 0, "")
	result := NewEmbedder(tool).Embed(context.Background(), t.TempDir(), nil)
	if result.SuccessCount != 0 || len(result.Errors) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}
