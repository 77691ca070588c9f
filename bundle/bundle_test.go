package bundle

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	hostPath := filepath.Join(dir, "host")
	require.NoError(t, os.WriteFile(hostPath, []byte("#!/fake/host\n"), 0o755))

	w := NewWriter(1, "main.lus", []string{"--flag", "value"})
	w.AddFile("main.lus", []byte("bytecode-main"))
	w.AddFile("lib/util.lus", []byte("bytecode-util"))

	host, err := os.Open(hostPath)
	require.NoError(t, err)
	defer host.Close()

	var out bytes.Buffer
	require.NoError(t, w.WriteTo(&out, host))

	outPath := filepath.Join(dir, "bundled")
	require.NoError(t, os.WriteFile(outPath, out.Bytes(), 0o755))

	ok, err := Detect(outPath)
	require.NoError(t, err)
	require.True(t, ok)

	idx, err := Load(outPath)
	require.NoError(t, err)
	require.Equal(t, "main.lus", idx.Entrypoint)
	require.Equal(t, []string{"--flag", "value"}, idx.Args)
	require.Len(t, idx.Files, 2)

	data, err := idx.GetFile("main.lus")
	require.NoError(t, err)
	require.Equal(t, "bytecode-main", string(data))

	data, err = idx.GetFile("lib/util.lus")
	require.NoError(t, err)
	require.Equal(t, "bytecode-util", string(data))
}

func TestDetectFalseOnPlainBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(path, []byte("just a normal binary, no footer"), 0o755))

	ok, err := Detect(path)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = Load(path)
	require.ErrorIs(t, err, ErrNoBundle)
}

func TestSynthesizeArgv(t *testing.T) {
	idx := &Index{Entrypoint: "main.lus", Args: []string{"-W"}}
	argv := idx.SynthesizeArgv("/usr/bin/lus", []string{"a", "b"})
	require.Equal(t, []string{"/usr/bin/lus", "-W", "--", "main.lus", "a", "b"}, argv)
}
