package controller

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgsOrder(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	opts := ArgOptions{BasePath: base, DefaultArgs: DefaultArgs, NumCPU: func() int { return 12 }}

	got, err := BuildArgs(RunArgs{
		Model:       "a.gguf",
		ContextSize: intPtr(12288),
		GPULayers:   intPtr(99),
		TensorSplit: []float64{1, 0.5, 2},
	}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--quiet", "--flashattention", "--usemlock", "--usecublas", "all",
		"--model", filepath.Join(base, "a.gguf"),
		"--threads", "12",
		"--contextsize", "12288",
		"--gpulayers", "99",
		"--tensor_split", "1", "0.5", "2",
	}, got)
}

func TestBuildArgsThreads(t *testing.T) {
	t.Parallel()
	opts := ArgOptions{NumCPU: func() int { return 8 }}
	cases := []struct {
		name    string
		threads *int
		want    string
	}{
		{"unset", nil, "8"},
		{"zero", intPtr(0), "8"},
		{"explicit", intPtr(3), "3"},
	}
	for _, tc := range cases {
		got, err := BuildArgs(RunArgs{Model: "m.gguf", Threads: tc.threads}, opts)
		require.NoError(t, err, tc.name)
		assert.Equal(t, []string{"--model", "m.gguf", "--threads", tc.want}, got, tc.name)
	}

	_, err := BuildArgs(RunArgs{Model: "m.gguf", Threads: intPtr(-1)}, opts)
	assert.True(t, IsInvalidArgument(err))
}

func TestBuildArgsContextSizeRange(t *testing.T) {
	t.Parallel()
	opts := ArgOptions{NumCPU: func() int { return 1 }}

	for _, ok := range []int{256, 12288, 262144} {
		got, err := BuildArgs(RunArgs{Model: "m.gguf", ContextSize: intPtr(ok)}, opts)
		require.NoError(t, err, ok)
		assert.Contains(t, got, "--contextsize")
	}
	for _, bad := range []int{0, 200, 255, 262145} {
		_, err := BuildArgs(RunArgs{Model: "m.gguf", ContextSize: intPtr(bad)}, opts)
		assert.True(t, IsInvalidArgument(err), "context size %d: %v", bad, err)
	}

	narrow := ArgOptions{ContextSizeMin: 1024, ContextSizeMax: 4096}
	_, err := BuildArgs(RunArgs{Model: "m.gguf", ContextSize: intPtr(8192)}, narrow)
	assert.True(t, IsInvalidArgument(err))
}

func TestBuildArgsOmitsUnsetOptionals(t *testing.T) {
	t.Parallel()
	got, err := BuildArgs(RunArgs{Model: "m.gguf"}, ArgOptions{NumCPU: func() int { return 2 }})
	require.NoError(t, err)
	assert.NotContains(t, got, "--contextsize")
	assert.NotContains(t, got, "--gpulayers")
	assert.NotContains(t, got, "--tensor_split")

	got, err = BuildArgs(RunArgs{Model: "m.gguf", GPULayers: intPtr(-1)}, ArgOptions{NumCPU: func() int { return 2 }})
	require.NoError(t, err)
	assert.Equal(t, []string{"--model", "m.gguf", "--threads", "2", "--gpulayers", "-1"}, got)

	_, err = BuildArgs(RunArgs{Model: "m.gguf", GPULayers: intPtr(-2)}, ArgOptions{})
	assert.True(t, IsInvalidArgument(err))
}

func TestBuildArgsRejectsWhitespace(t *testing.T) {
	t.Parallel()
	_, err := BuildArgs(RunArgs{Model: "my model.gguf"}, ArgOptions{})
	assert.True(t, IsInvalidArgument(err), "got %v", err)

	_, err = BuildArgs(RunArgs{Model: "m.gguf"}, ArgOptions{DefaultArgs: []string{"--usecublas all"}})
	assert.True(t, IsInvalidArgument(err), "got %v", err)

	_, err = BuildArgs(RunArgs{Model: "m\t.gguf"}, ArgOptions{})
	require.NoError(t, err, "control characters are stripped, not rejected")
}

func TestBuildArgsModelPathSafety(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	opts := ArgOptions{BasePath: base, NumCPU: func() int { return 1 }}

	cases := []struct {
		in   string
		want string
	}{
		{"a.gguf", filepath.Join(base, "a.gguf")},
		{"../../etc/passwd", filepath.Join(base, "etc", "passwd")},
		{"sub/./b.gguf", filepath.Join(base, "sub", "b.gguf")},
		{`a<b>:c|d?e*f".gguf`, filepath.Join(base, "abcdef.gguf")},
		{filepath.Join(base, "in", "c.gguf"), filepath.Join(base, "in", "c.gguf")},
	}
	for _, tc := range cases {
		got, err := BuildArgs(RunArgs{Model: tc.in}, opts)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got[1], tc.in)
	}

	for _, bad := range []string{"", "  ", "..", "../..", "<>", filepath.Join(filepath.Dir(base), "outside.gguf")} {
		_, err := BuildArgs(RunArgs{Model: bad}, opts)
		assert.True(t, IsInvalidArgument(err), "model %q: %v", bad, err)
	}
}

func TestModelName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"a.gguf":                  "a",
		"dir/sub/mistral.Q4.gguf": "mistral.Q4",
		"noext":                   "noext",
		"../x.gguf":               "x",
		"":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ModelName(in), in)
	}
}
