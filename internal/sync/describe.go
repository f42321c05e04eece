package sync

import (
	"fmt"
	"strings"
)

// Describe explains an rsync exit code in plain words, with a suggestion
// for the dashboard's error envelope. stderr refines a few cases.
// See https://download.samba.org/pub/rsync/rsync.1 for the code list.
func Describe(exitCode int, stderr string) (msg, suggestion string) {
	if exitCode == 0 {
		return "", ""
	}

	if strings.Contains(stderr, "No such file or directory") && exitCode != 255 {
		return "Remote file or directory not found",
			"Check IMAGE_SAMPLES_PATH and MAIN_THREAD_OUTPUT point at existing paths."
	}

	switch exitCode {
	case 1:
		return "rsync syntax or usage error",
			"Check the rsync flags and that rsync could start at all"
	case 2:
		return "rsync protocol incompatibility",
			"Ensure rsync versions are compatible on local and remote"
	case 3:
		return "File selection error",
			"Check that the source paths exist and are readable"
	case 5:
		return "Error starting client-server protocol",
			"Check the SSH connection and that rsync is installed on the remote"
	case 10:
		return "Error in socket I/O",
			"Check network connectivity to the remote host"
	case 11:
		return "Error in file I/O",
			"Check disk space and file permissions locally"
	case 12:
		return "Error in rsync protocol data stream",
			"This may indicate a corrupted transfer, try again"
	case 23:
		return "Partial transfer due to error",
			"Some files may not exist or have permission issues"
	case 24:
		return "Partial transfer due to vanished source files",
			"Files changed during the sync, this is usually harmless"
	case 127:
		return "rsync not found on the remote host",
			"Install it on the remote: apt install rsync"
	case 255:
		return "SSH connection failed",
			"Check SSH_HOST, SSH_PORT and SSH_KEY_PATH"
	default:
		return fmt.Sprintf("rsync exited with code %d", exitCode),
			"Check the command output for details"
	}
}

// Message returns the one-line failure text for res, preferring what
// rsync printed to stderr.
func Message(res Result) string {
	if res.ExitCode == 0 {
		return ""
	}
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	msg, _ := Describe(res.ExitCode, res.Stderr)
	return msg
}
