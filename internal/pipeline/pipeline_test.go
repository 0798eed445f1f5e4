package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nserrors "github.com/dkrall/noteseek/internal/errors"
	"github.com/dkrall/noteseek/internal/record"
	"github.com/dkrall/noteseek/internal/stream"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// zipEncrypt mirrors the cipher's forward direction for fixtures.
func zipEncrypt(plain []byte, password string) []byte {
	crcTable := func() [256]uint32 {
		var table [256]uint32
		for b := uint32(0); b < 256; b++ {
			v := b
			for i := 0; i < 8; i++ {
				if v&1 != 0 {
					v = (v >> 1) ^ 0xEDB88320
				} else {
					v >>= 1
				}
			}
			table[b] = v
		}
		return table
	}()
	crc := func(c uint32, b byte) uint32 { return crcTable[(c^uint32(b))&0xFF] ^ (c >> 8) }

	k0, k1, k2 := uint32(0x12345678), uint32(0x23456789), uint32(0x34567890)
	update := func(b byte) {
		k0 = crc(k0, b)
		k1 = (k1+(k0&0xFF))*134775813 + 1
		k2 = crc(k2, byte(k1>>24))
	}
	for i := 0; i < len(password); i++ {
		update(password[i])
	}

	out := append([]byte(nil), []byte("VimCrypt~01!")...)
	for _, p := range plain {
		x := (k2 | 2) & 0xFFFF
		out = append(out, p^byte((x*(x^1))>>8))
		update(p)
	}
	return out
}

func drain(t *testing.T, run *Run) ([]record.Item, []FileError) {
	t.Helper()
	var failures []FileError
	done := make(chan struct{})
	go func() {
		defer close(done)
		for f := range run.Failures {
			failures = append(failures, f)
		}
	}()

	var items []record.Item
	for it := range run.Items {
		items = append(items, it)
	}
	<-done
	return items, failures
}

func texts(items []record.Item) []string {
	var out []string
	for _, it := range items {
		if li, ok := it.(record.LineItem); ok {
			out = append(out, li.Text)
		}
	}
	sort.Strings(out)
	return out
}

func TestStart_IndexesPlainFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", []byte("A\n"))
	writeFile(t, dir, "b.md", []byte("B\n"))
	writeFile(t, dir, "c.txt", []byte("C\n"))

	run := New(Config{Roots: []string{dir}}).Start(context.Background())
	items, failures := drain(t, run)

	assert.Empty(t, failures)
	assert.Equal(t, []string{"A", "B", "C"}, texts(items))
}

func TestStart_SameFileLinesKeepOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "multi.md", []byte("first\nsecond\nthird\n"))

	run := New(Config{Roots: []string{dir}, Workers: 4}).Start(context.Background())
	items, _ := drain(t, run)

	require.Len(t, items, 3)
	for i, want := range []string{"first", "second", "third"} {
		li, ok := items[i].(record.LineItem)
		require.True(t, ok)
		assert.Equal(t, want, li.Text)
		assert.Equal(t, i, li.Line)
	}
}

func TestStart_OpaqueFilesBecomeFileItems(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "doc.pdf", []byte("%PDF"))

	run := New(Config{Roots: []string{dir}}).Start(context.Background())
	items, failures := drain(t, run)

	assert.Empty(t, failures)
	require.Len(t, items, 1)
	assert.Equal(t, record.FileItem{Path: pdf}, items[0])
}

func TestStart_EncryptedRoundTripMatchesPlaintext(t *testing.T) {
	plaintext := []byte("secret one\n\nsecret two\n")
	password := "hunter2"

	plainDir := t.TempDir()
	writeFile(t, plainDir, "note.md", plaintext)
	encDir := t.TempDir()
	writeFile(t, encDir, "note.md", zipEncrypt(plaintext, password))

	plainRun := New(Config{Roots: []string{plainDir}}).Start(context.Background())
	plainItems, _ := drain(t, plainRun)

	encRun := New(Config{Roots: []string{encDir}, Password: password}).Start(context.Background())
	encItems, failures := drain(t, encRun)

	assert.Empty(t, failures)
	require.Len(t, encItems, len(plainItems))
	for i := range plainItems {
		p := plainItems[i].(record.LineItem)
		e := encItems[i].(record.LineItem)
		assert.Equal(t, p.Text, e.Text)
		assert.Equal(t, p.Line, e.Line)
		assert.True(t, e.Origin.Encrypted)
		assert.Equal(t, password, e.Origin.Password)
	}
}

func TestStart_EncryptedWithoutPasswordIsReportedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "enc.md", zipEncrypt([]byte("hidden\n"), "pw"))
	writeFile(t, dir, "plain.md", []byte("visible\n"))

	run := New(Config{Roots: []string{dir}}).Start(context.Background())
	items, failures := drain(t, run)

	assert.Equal(t, []string{"visible"}, texts(items))
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err,
		nserrors.New(nserrors.ErrCodeMissingPassword, "", nil))
}

func TestStart_UnsupportedMethodSurfacesAsFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bf.md", append([]byte("VimCrypt~02!"), []byte("saltandbytes")...))

	run := New(Config{Roots: []string{dir}, Password: "pw"}).Start(context.Background())
	items, failures := drain(t, run)

	assert.Empty(t, items)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Err.Error(), "unsupported")
}

func TestStart_UnreadableFileFailsThatTaskOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission bits are not enforced")
	}
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.md", []byte("nope\n"))
	require.NoError(t, os.Chmod(bad, 0o000))
	writeFile(t, dir, "good.md", []byte("fine\n"))

	run := New(Config{Roots: []string{dir}}).Start(context.Background())
	items, failures := drain(t, run)

	assert.Equal(t, []string{"fine"}, texts(items))
	require.Len(t, failures, 1)
	assert.Equal(t, bad, failures[0].Path)
}

func TestStart_EndToEndSelectionScenario(t *testing.T) {
	// Three files, one line each. Whatever order the workers produce,
	// resolving index 1 must return the item whose text is shown at
	// stream position 1.
	dir := t.TempDir()
	writeFile(t, dir, "a.md", []byte("A\n"))
	writeFile(t, dir, "b.md", []byte("B\n"))
	writeFile(t, dir, "c.md", []byte("C\n"))

	run := New(Config{Roots: []string{dir}, Workers: 3}).Start(context.Background())
	go func() {
		for range run.Failures {
		}
	}()

	adaptor := stream.NewAdaptor(run.Items)
	data, err := io.ReadAll(adaptor)
	require.NoError(t, err)

	wires := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, wires, 3)

	selected, err := adaptor.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, wires[1], record.WireLine(selected))

	li, ok := selected.(record.LineItem)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(wires[1], ":"+li.Text))
}

func TestStart_CancellationStopsWorkers(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, dir, filepath.Join("sub", string(rune('a'+i))+".md"), []byte("line\n"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := New(Config{Roots: []string{dir}, Workers: 2}).Start(ctx)
	cancel()

	// Channels must still close after cancellation; drain must not hang.
	items, _ := drain(t, run)
	assert.LessOrEqual(t, len(items), 20)
}
