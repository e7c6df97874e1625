package operator

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openFile starts viewer on path, or the platform's default opener when
// viewer is empty. It does not wait for the viewer to exit.
func openFile(viewer, path string) error {
	var cmd *exec.Cmd
	switch {
	case viewer != "":
		cmd = exec.Command(viewer, path)
	case runtime.GOOS == "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	case runtime.GOOS == "darwin":
		cmd = exec.Command("open", path)
	case runtime.GOOS == "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	go cmd.Wait()
	return nil
}
