package agent

import (
	"io"
	"os"
	"time"
)

// capture feeds one of the agent's output streams into dst through an OS
// pipe. The child gets the write end as a file, so cmd.Wait returns when
// the agent exits even if a descendant still holds the stream open.
type capture struct {
	r, w *os.File
	done chan struct{}
}

func newCapture(dst io.Writer) (*capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	c := &capture{r: r, w: w, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		_, _ = io.Copy(dst, r)
	}()
	return c, nil
}

// closeWriter drops the parent's copy of the write end once the child has
// inherited it.
func (c *capture) closeWriter() {
	_ = c.w.Close()
}

// wait blocks until every writer is gone or grace elapses, then releases
// the read end. It reports whether the stream reached EOF in time.
func (c *capture) wait(grace time.Duration) bool {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	drained := true
	select {
	case <-c.done:
	case <-timer.C:
		drained = false
	}
	_ = c.r.Close()
	<-c.done
	return drained
}

// abort releases both ends when the child never started.
func (c *capture) abort() {
	_ = c.w.Close()
	_ = c.r.Close()
	<-c.done
}
