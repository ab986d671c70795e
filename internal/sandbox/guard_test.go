package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidatePath_Extension tests the extension requirement.
func TestValidatePath_Extension(t *testing.T) {
	g, err := NewGuard("")
	require.NoError(t, err)

	_, err = g.ValidatePath("app.txt")
	require.Error(t, err)
	assert.Equal(t, ErrCodePathRejected, SandboxErrorCodeOf(err))

	_, err = g.ValidatePath("app")
	require.Error(t, err)
	assert.Equal(t, ErrCodePathRejected, SandboxErrorCodeOf(err))

	_, err = g.ValidatePath("app.prism")
	assert.NoError(t, err)
}

// TestValidatePath_Traversal tests parent traversal rejection.
func TestValidatePath_Traversal(t *testing.T) {
	g, err := NewGuard("")
	require.NoError(t, err)

	for _, path := range []string{
		"../app.prism",
		"sub/../../app.prism",
		"..",
	} {
		_, err := g.ValidatePath(path)
		require.Error(t, err, "path %q should be rejected", path)
		assert.Equal(t, ErrCodePathRejected, SandboxErrorCodeOf(err))
	}
}

// TestValidatePath_RootConfinement tests directory confinement.
func TestValidatePath_RootConfinement(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root)
	require.NoError(t, err)

	inside := filepath.Join(root, "app.prism")
	abs, err := g.ValidatePath(inside)
	require.NoError(t, err)
	assert.Equal(t, inside, abs)

	nested := filepath.Join(root, "examples", "counter.prism")
	_, err = g.ValidatePath(nested)
	assert.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "app.prism")
	_, err = g.ValidatePath(outside)
	require.Error(t, err)
	assert.Equal(t, ErrCodePathRejected, SandboxErrorCodeOf(err))
}

// TestCheckFileSize_Boundary tests the exact limit boundary: the limit
// itself is accepted, one byte over is rejected.
func TestCheckFileSize_Boundary(t *testing.T) {
	g, err := NewGuard("")
	require.NoError(t, err)

	assert.NoError(t, g.CheckFileSize("app.prism", DefaultMaxFileSize))

	err = g.CheckFileSize("app.prism", DefaultMaxFileSize+1)
	require.Error(t, err)
	assert.Equal(t, ErrCodeFileTooLarge, SandboxErrorCodeOf(err))

	var se *SandboxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(1048577), se.Size)
	assert.Equal(t, int64(1048576), se.Limit)
}

// TestReadProgram tests the full read path against real files.
func TestReadProgram(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root)
	require.NoError(t, err)

	path := filepath.Join(root, "app.prism")
	require.NoError(t, os.WriteFile(path, []byte(`@app "X"`), 0o644))

	data, err := g.ReadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, `@app "X"`, string(data))
	assert.Equal(t, int64(len(data)), g.Charged())
}

// TestReadProgram_TooLarge tests the size check against a real oversized file.
func TestReadProgram_TooLarge(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root, WithMaxFileSize(64))
	require.NoError(t, err)

	path := filepath.Join(root, "big.prism")
	require.NoError(t, os.WriteFile(path, make([]byte, 65), 0o644))

	_, err = g.ReadProgram(path)
	require.Error(t, err)
	assert.Equal(t, ErrCodeFileTooLarge, SandboxErrorCodeOf(err))
}

// TestCharge_HighWater tests the monotonic footprint charge.
func TestCharge_HighWater(t *testing.T) {
	g, err := NewGuard("", WithMaxMemory(1000))
	require.NoError(t, err)

	require.NoError(t, g.Charge(400))
	assert.Equal(t, int64(400), g.Charged())

	// A lower report never decreases the mark.
	require.NoError(t, g.Charge(100))
	assert.Equal(t, int64(400), g.Charged())

	require.NoError(t, g.Charge(1000))
	assert.Equal(t, int64(1000), g.Charged())

	err = g.Charge(1001)
	require.Error(t, err)
	assert.Equal(t, ErrCodeMemoryExceeded, SandboxErrorCodeOf(err))

	// Once over, it stays over.
	err = g.Charge(1)
	require.Error(t, err)
	assert.True(t, IsSandboxError(err))
}

// TestGuard_Defaults tests the default limits.
func TestGuard_Defaults(t *testing.T) {
	g, err := NewGuard("")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), g.MaxFileSize())
	assert.Equal(t, int64(16<<20), g.MaxMemory())
}

// TestIsSandboxError tests error type checking.
func TestIsSandboxError(t *testing.T) {
	assert.True(t, IsSandboxError(&SandboxError{Code: ErrCodePathRejected}))
	assert.False(t, IsSandboxError(nil))
	assert.False(t, IsSandboxError(assert.AnError))
	assert.Equal(t, SandboxErrorCode(""), SandboxErrorCodeOf(assert.AnError))
}
