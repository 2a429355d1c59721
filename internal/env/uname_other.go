//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package env

func unameMachine() string {
	return ""
}
