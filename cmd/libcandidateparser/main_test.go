package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/candidateparser/pkg/ffi"
	"github.com/thesyncim/candidateparser/pkg/testutil"
)

const exampleLine = "candidate:842163049 1 udp 1686052607 1.2.3.4 46154 typ srflx raddr 10.0.0.17 rport 46154 generation 0 ufrag EEtu network-id 3 network-cost 10"

func TestLayoutMatchesHeader(t *testing.T) {
	require.NoError(t, checkLayout())
}

func TestParseICECandidateSDP(t *testing.T) {
	rec := parseCString(exampleLine)
	require.NotNil(t, rec)
	defer freeRecord(rec)

	c := ffi.Decode(rec)
	assert.Equal(t, "842163049", c.Foundation)
	assert.Equal(t, uint32(1), c.ComponentID)
	assert.Equal(t, "udp", c.Transport)
	assert.Equal(t, uint64(1686052607), c.Priority)
	assert.Equal(t, "1.2.3.4", c.ConnectionAddress)
	assert.Equal(t, uint16(46154), c.Port)
	assert.Equal(t, "srflx", c.Type)
	assert.Equal(t, "10.0.0.17", c.RelAddr)
	assert.Equal(t, uint16(46154), c.RelPort)
	assert.Equal(t, uintptr(4), rec.Extensions.Len)
}

func TestParseICECandidateSDP_Corpus(t *testing.T) {
	for _, tc := range testutil.Candidates {
		rec := parseCString(tc.Line)
		require.NotNil(t, rec, tc.Name)

		c := ffi.Decode(rec)
		assert.Equal(t, tc.Priority, c.Priority, tc.Name)
		assert.Equal(t, tc.ComponentID, c.ComponentID, tc.Name)
		assert.Equal(t, tc.RelAddr != "", rec.RelAddr != nil, tc.Name)
		freeRecord(rec)
	}
}

func TestParseICECandidateSDP_Null(t *testing.T) {
	assert.Nil(t, parseNull())
	assert.Nil(t, parseBuffer(nil, 10))

	assert.NotPanics(t, func() { freeRecord(nil) })
}

func TestParseICECandidateSDP_Malformed(t *testing.T) {
	for _, line := range testutil.MalformedCandidates {
		assert.Nil(t, parseCString(line), "line %q", line)
	}
}

func TestParseICECandidateSDPLen_Unterminated(t *testing.T) {
	line := "candidate:1 1 udp 2130706431 192.168.1.10 54321 typ host"

	// The buffer carries no NUL and continues past the candidate with bytes
	// that would not parse.
	buf := []byte(line + " \x00garbage")
	rec := parseBuffer(buf, len(line))
	require.NotNil(t, rec)
	defer freeRecord(rec)

	want := parseCString(line)
	require.NotNil(t, want)
	defer freeRecord(want)

	assert.True(t, ffi.Decode(want).Equal(ffi.Decode(rec)))
	assert.Nil(t, rec.RelAddr)
	assert.Zero(t, rec.Extensions.Len)
}

func TestParseICECandidateSDPLen_Empty(t *testing.T) {
	assert.Nil(t, parseBuffer([]byte("candidate:"), 0))
}

// TestExampleProgram builds the shared library and runs testdata/example.c
// against it.
func TestExampleProgram(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the shared library")
	}
	if runtime.GOOS != "linux" {
		t.Skip("example linking is set up for linux")
	}
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler")
	}
	goBin := filepath.Join(runtime.GOROOT(), "bin", "go")
	if _, err := os.Stat(goBin); err != nil {
		t.Skip("go command not found")
	}

	dir := t.TempDir()
	build := exec.Command(goBin, "build", "-buildmode=c-shared",
		"-o", filepath.Join(dir, "libcandidateparser.so"), ".")
	build.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := build.CombinedOutput()
	require.NoError(t, err, string(out))

	example := filepath.Join(dir, "example")
	compile := exec.Command(cc, "-I", dir, "-I", ".", "-o", example,
		filepath.Join("testdata", "example.c"), "-L", dir, "-lcandidateparser")
	out, err = compile.CombinedOutput()
	require.NoError(t, err, string(out))

	run := exec.Command(example)
	run.Env = append(os.Environ(), "LD_LIBRARY_PATH="+dir)
	out, err = run.CombinedOutput()
	require.NoError(t, err, string(out))

	got := string(out)
	for _, want := range []string{
		"foundation:         842163049",
		"priority:           1686052607",
		"rel_addr:           10.0.0.17",
		"extension:          ufrag=EEtu",
	} {
		assert.True(t, strings.Contains(got, want), "missing %q in:\n%s", want, got)
	}
}
