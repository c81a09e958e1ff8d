package httpx

import (
	"errors"
	"net"
	"os"
	"runtime"
	"strconv"
	"syscall"

	"github.com/voicehub/roomcall/pkg/logger"
)

const maxPortRollAttempts = 42

type Listener struct {
	net.Listener
}

// NewListener listens on the address. With rollPorts it tries the next
// ports while the one asked for is taken.
func NewListener(address string, rollPorts bool, log *logger.Logger) (*Listener, error) {
	ls, err := net.Listen("tcp", address)
	if err == nil {
		return &Listener{ls}, nil
	}
	if !rollPorts || !isErrorAddressAlreadyInUse(err) {
		return nil, err
	}
	host, p, err2 := net.SplitHostPort(address)
	if err2 != nil {
		return nil, err
	}
	port, err2 := strconv.Atoi(p)
	if err2 != nil {
		return nil, err
	}
	for i := port + 1; i < port+maxPortRollAttempts; i++ {
		addr := net.JoinHostPort(host, strconv.Itoa(i))
		log.Debug().Msgf("Port roll %v", addr)
		if ls, err = net.Listen("tcp", addr); err == nil {
			return &Listener{ls}, nil
		}
	}
	return nil, err
}

func (l Listener) GetPort() int {
	if tcp, ok := l.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

func isErrorAddressAlreadyInUse(err error) bool {
	var eOsSyscall *os.SyscallError
	if !errors.As(err, &eOsSyscall) {
		return false
	}
	var errErrno syscall.Errno
	if !errors.As(eOsSyscall, &errErrno) {
		return false
	}
	if errErrno == syscall.EADDRINUSE {
		return true
	}
	const WSAEADDRINUSE = 10048
	return runtime.GOOS == "windows" && errErrno == WSAEADDRINUSE
}
