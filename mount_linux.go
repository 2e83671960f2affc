package fuse

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// ErrExternallyManagedMountPoint is returned by Unmount when dir is of the
// form /dev/fd/N, indicating a mount point whose fusermount invocation
// (and therefore whose lifetime) is owned by some other process.
var ErrExternallyManagedMountPoint = errors.New("mount point is externally managed")

// findFusermount locates the fusermount (or fusermount3, on distributions
// that ship fuse3 exclusively) binary used to both mount and unmount.
func findFusermount() (string, error) {
	for _, name := range []string{"fusermount3", "fusermount"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/bin/fusermount3", "/bin/fusermount", "/usr/bin/fusermount3", "/usr/bin/fusermount"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", errors.New("fusermount executable not found")
}

// parseFuseFd extracts the file descriptor number from a /dev/fd/N path, as
// produced by fusermount's stdout-free, fd-passing invocation convention.
func parseFuseFd(path string) (int, error) {
	const prefix = "/dev/fd/"
	if !strings.HasPrefix(path, prefix) {
		return -1, fmt.Errorf("not a /dev/fd path: %q", path)
	}

	n, err := strconv.Atoi(path[len(prefix):])
	if err != nil {
		return -1, fmt.Errorf("parsing fd from %q: %v", path, err)
	}
	if n < 0 {
		return -1, fmt.Errorf("negative fd in %q", path)
	}

	return n, nil
}

// callFusermount execs fusermount to mount dir, communicating the kernel
// connection's file descriptor back over a socket pair via SCM_RIGHTS, as
// required for non-root callers (the fusermount binary is normally setuid
// root and does the actual mount(2) syscall on the caller's behalf).
func callFusermount(dir string, conf *MountConfig) (*os.File, error) {
	fusermount, err := findFusermount()
	if err != nil {
		return nil, err
	}

	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socketpair: %v", err)
	}
	writeFile := os.NewFile(uintptr(fds[0]), "fusermount-child")
	readFile := os.NewFile(uintptr(fds[1]), "fusermount-parent")
	defer writeFile.Close()

	cmd := exec.Command(fusermount, "-o", conf.getOptions(), "--", dir)
	cmd.Env = append(os.Environ(), fmt.Sprintf("_FUSE_COMMFD=%d", 3))
	cmd.ExtraFiles = []*os.File{writeFile}

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		readFile.Close()
		msg := strings.TrimRight(stderr.String(), "\n")
		if msg != "" {
			return nil, fmt.Errorf("fusermount: %v: %s", err, msg)
		}
		return nil, fmt.Errorf("fusermount: %v", err)
	}

	fd, err := receiveFuseFd(readFile)
	readFile.Close()
	if err != nil {
		return nil, err
	}

	return os.NewFile(uintptr(fd), "/dev/fuse"), nil
}

// receiveFuseFd reads the ancillary-data message fusermount sends back over
// sock, extracting the single file descriptor it carries via SCM_RIGHTS.
func receiveFuseFd(sock *os.File) (int, error) {
	buf := make([]byte, 32)
	oob := make([]byte, syscall.CmsgSpace(4))

	raw, err := sock.SyscallConn()
	if err != nil {
		return -1, err
	}

	var n, oobn int
	var rerr error
	err = raw.Read(func(fd uintptr) bool {
		n, oobn, _, _, rerr = syscall.Recvmsg(int(fd), buf, oob, 0)
		return true
	})
	if err != nil {
		return -1, err
	}
	if rerr != nil {
		return -1, fmt.Errorf("recvmsg: %v", rerr)
	}
	if n == 0 && oobn == 0 {
		return -1, errors.New("fusermount did not send a device fd")
	}

	msgs, err := syscall.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, fmt.Errorf("parsing control message: %v", err)
	}
	if len(msgs) != 1 {
		return -1, fmt.Errorf("expected exactly one control message, got %d", len(msgs))
	}

	fds, err := syscall.ParseUnixRights(&msgs[0])
	if err != nil {
		return -1, fmt.Errorf("parsing unix rights: %v", err)
	}
	if len(fds) != 1 {
		return -1, fmt.Errorf("expected exactly one fd, got %d", len(fds))
	}

	return fds[0], nil
}

// mountDirect opens /dev/fuse and calls mount(2) directly, the path
// available only to a caller with CAP_SYS_ADMIN (typically root). It avoids
// the fusermount round trip entirely.
func mountDirect(dir string, conf *MountConfig) (*os.File, error) {
	dev, err := os.OpenFile("/dev/fuse", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/fuse: %v", err)
	}

	opts := fmt.Sprintf(
		"fd=%d,rootmode=40000,user_id=%d,group_id=%d,%s",
		dev.Fd(), os.Getuid(), os.Getgid(), conf.getOptions())

	var flags uintptr = syscall.MS_NOSUID | syscall.MS_NODEV
	if conf.ReadOnly {
		flags |= syscall.MS_RDONLY
	}

	if err := syscall.Mount("fuse", dir, "fuse", flags, opts); err != nil {
		dev.Close()
		return nil, fmt.Errorf("mount(2): %v", err)
	}

	return dev, nil
}

// mount begins mounting dir, returning the kernel connection's device file.
// ready receives a single value once the external mount helper (if any) has
// finished or failed; Mount blocks on it before returning to the caller.
func mount(dir string, conf *MountConfig, ready chan<- error) (dev *os.File, err error) {
	if os.Getuid() == 0 {
		dev, err = mountDirect(dir, conf)
	} else {
		dev, err = callFusermount(dir, conf)
	}

	if err != nil {
		ready <- err
		return nil, err
	}

	ready <- nil
	return dev, nil
}
