package camview

import (
	"os"
	"os/exec"
	"testing"
)

// TestBuildWithoutCgo builds every package for linux with cgo disabled.
// The Vulkan backend's FFI layer refuses to build with cgo, so every
// dependency, the V4L2 binding included, must be pure Go.
func TestBuildWithoutCgo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping build in short mode")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not found")
	}

	cmd := exec.Command(goBin, "build", "./...")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS=linux", "GOARCH=amd64")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("CGO_ENABLED=0 GOOS=linux go build ./... failed: %v\n%s", err, out)
	}
}
