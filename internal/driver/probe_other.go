//go:build !linux

package driver

func probeLinux() Features {
	return Features{Opcodes: map[OpCode]bool{}}
}
