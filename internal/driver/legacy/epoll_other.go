//go:build !linux

package legacy

import (
	"errors"
	"time"

	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/lifecycle"
)

// ErrUnsupported is returned by New on platforms this module doesn't wire a
// readiness poller for yet (see DESIGN.md: kqueue/IOCP are structurally
// identical to this epoll backend behind the same Driver interface, but
// neither had a reference implementation in the retrieved example pack to
// ground against, so only the epoll path is implemented).
var ErrUnsupported = errors.New("legacy: no readiness backend wired for this platform")

type Epoll struct{}

func New() (*Epoll, error) { return nil, ErrUnsupported }

func (e *Epoll) Submit(driver.Op) (int, error)                  { return 0, ErrUnsupported }
func (e *Epoll) Poll(int, lifecycle.Waker) lifecycle.PollResult { return lifecycle.PollResult{} }
func (e *Epoll) Drop(int, any)                                  {}
func (e *Epoll) Flush() error                                   { return ErrUnsupported }
func (e *Epoll) Park(time.Duration) error                       { return ErrUnsupported }
func (e *Epoll) Close() error                                   { return nil }

var _ driver.Driver = (*Epoll)(nil)
