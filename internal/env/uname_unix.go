//go:build linux || darwin || freebsd || netbsd || openbsd

package env

import "golang.org/x/sys/unix"

func unameMachine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Machine[:])
}
