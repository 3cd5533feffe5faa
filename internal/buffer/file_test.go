package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/aq-logger/internal/reading"
)

func openFileBuffer(t *testing.T) *FileBuffer {
	t.Helper()
	b, err := OpenFile(filepath.Join(t.TempDir(), "unsent.jsonl"), nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	return b
}

func encodeLine(t *testing.T, r reading.Reading) string {
	t.Helper()
	data, err := reading.EncodeRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(data) + "\n"
}

func TestFileBuffer_KeepsRecordsFromPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unsent.jsonl")
	if err := os.WriteFile(path, []byte(encodeLine(t, sampleReading(0))), 0600); err != nil {
		t.Fatal(err)
	}

	b, err := OpenFile(path, nil)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if err := b.Append(sampleReading(1)); err != nil {
		t.Fatal(err)
	}

	got, err := b.DrainAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("DrainAll() = %d records, want 2 (old record must survive reopen)", len(got))
	}
	if got[0].Temperature != sampleReading(0).Temperature {
		t.Errorf("first record = %+v, want the pre-existing one", got[0])
	}
}

func TestFileBuffer_AppendWritesOneLinePerRecord(t *testing.T) {
	b := openFileBuffer(t)
	for i := 0; i < 3; i++ {
		if err := b.Append(sampleReading(i)); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(b.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("file has %d lines, want 3", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, `{"v":1,`) {
			t.Errorf("line %q lacks version field", l)
		}
	}

	info, err := os.Stat(b.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != filePermissions {
		t.Errorf("file mode = %o, want %o", perm, filePermissions)
	}
}

func TestFileBuffer_RecoversInterruptedDrain(t *testing.T) {
	b := openFileBuffer(t)

	// Simulate a crash after the rename: older records sit in the drain file.
	drain := b.Path() + drainSuffix
	old := encodeLine(t, sampleReading(0)) + encodeLine(t, sampleReading(1))
	if err := os.WriteFile(drain, []byte(old), 0600); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(sampleReading(2)); err != nil {
		t.Fatal(err)
	}

	exists, err := b.Exists()
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v; want true", exists, err)
	}

	got, err := b.DrainAll()
	if err != nil {
		t.Fatalf("DrainAll() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("DrainAll() = %d records, want 3", len(got))
	}
	for i, r := range got {
		if r.Temperature != sampleReading(i).Temperature {
			t.Errorf("record %d temperature = %v, want %v", i, r.Temperature, sampleReading(i).Temperature)
		}
	}
	if _, err := os.Stat(drain); err != nil {
		t.Errorf("drain file gone before Commit: %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := os.Stat(drain); !os.IsNotExist(err) {
		t.Errorf("drain file still present after Commit: %v", err)
	}
}

func TestFileBuffer_CommitWithoutDrainKeepsLeftover(t *testing.T) {
	b := openFileBuffer(t)
	drain := b.Path() + drainSuffix
	if err := os.WriteFile(drain, []byte(encodeLine(t, sampleReading(0))), 0600); err != nil {
		t.Fatal(err)
	}

	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := os.Stat(drain); err != nil {
		t.Errorf("leftover drain file removed without a drain: %v", err)
	}
}

func TestFileBuffer_OnlyDrainFileLeft(t *testing.T) {
	b := openFileBuffer(t)
	if err := os.WriteFile(b.Path()+drainSuffix, []byte(encodeLine(t, sampleReading(4))), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := b.DrainAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Temperature != sampleReading(4).Temperature {
		t.Errorf("DrainAll() = %+v, want the leftover record", got)
	}
}

func readQuarantine(t *testing.T, b *FileBuffer) []quarantined {
	t.Helper()
	data, err := os.ReadFile(b.RejectedPath())
	if err != nil {
		t.Fatalf("reading quarantine: %v", err)
	}
	var out []quarantined
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		var q quarantined
		if err := json.Unmarshal([]byte(line), &q); err != nil {
			t.Fatalf("quarantine line %q: %v", line, err)
		}
		out = append(out, q)
	}
	return out
}

func TestFileBuffer_QuarantinesTornAndForeignLines(t *testing.T) {
	b := openFileBuffer(t)

	foreign := `{"v":7,"ts":"2024-05-01T10:00:00Z"}`
	torn := `{"v":1,"ts":"2024-05-0`
	content := encodeLine(t, sampleReading(0)) + "\n" + foreign + "\n" + torn
	if err := os.WriteFile(b.Path(), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	// The torn tail must not swallow the next record.
	if err := b.Append(sampleReading(1)); err != nil {
		t.Fatal(err)
	}

	got, err := b.DrainAll()
	if err != nil {
		t.Fatalf("DrainAll() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("DrainAll() = %d records, want 2", len(got))
	}
	if got[0].Temperature != sampleReading(0).Temperature || got[1].Temperature != sampleReading(1).Temperature {
		t.Errorf("DrainAll() = %+v", got)
	}
	if _, err := os.Stat(b.RejectedPath()); !os.IsNotExist(err) {
		t.Errorf("quarantine written before Commit: %v", err)
	}

	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	q := readQuarantine(t, b)
	if len(q) != 2 || q[0].Record != foreign || q[1].Record != torn {
		t.Fatalf("quarantine = %+v, want the foreign and the torn line", q)
	}
	if !strings.Contains(q[0].Reason, "version") {
		t.Errorf("reason = %q, want a version error", q[0].Reason)
	}
}

func TestFileBuffer_NewerRecordVersionIsKept(t *testing.T) {
	b := openFileBuffer(t)
	newer := `{"v":2,"ts":"2024-05-01T10:00:00Z","temperature":21,"humidity":40,"pressure":1013,"gas":1,"quality":80,"co2":410}`
	if err := os.WriteFile(b.Path(), []byte(newer+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := b.DrainAll()
	if err != nil || len(got) != 0 {
		t.Fatalf("DrainAll() = %d records, %v; want 0", len(got), err)
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	q := readQuarantine(t, b)
	if len(q) != 1 || q[0].Record != newer {
		t.Errorf("quarantine = %+v, want the newer record verbatim", q)
	}
}

func TestFileBuffer_Reject(t *testing.T) {
	b := openFileBuffer(t)
	r := sampleReading(3)
	r.Temperature = math.Inf(1)

	if err := b.Reject(r, errTest); err != nil {
		t.Fatal(err)
	}
	q := readQuarantine(t, b)
	if len(q) != 1 || q[0].Reason != errTest.Error() || !strings.Contains(q[0].Record, "Inf") {
		t.Errorf("quarantine = %+v", q)
	}
}

func TestFileBuffer_HealthFailsWhenDirectoryVanishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "buf")
	b, err := OpenFile(filepath.Join(dir, "unsent.jsonl"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := b.Health(context.Background()); !errors.Is(err, ErrIO) {
		t.Errorf("Health() error = %v, want ErrIO", err)
	}
}

func TestFileBuffer_AppendFailsWhenDirectoryVanishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "buf")
	b, err := OpenFile(filepath.Join(dir, "unsent.jsonl"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if err := b.Append(sampleReading(0)); err == nil {
		t.Error("Append() expected error when directory is gone")
	}
}
