package chat

import "bufio"

// StartOutboundWriter drains the session's Out channel onto its connection.
// The goroutine exits when the channel is closed during teardown or when a
// write fails; either way delivery is best-effort.
func StartOutboundWriter(s *Session) {
	go func() {
		w := bufio.NewWriter(s.Conn)
		for line := range s.Out {
			if _, err := w.WriteString(line + "\n"); err != nil {
				return
			}
			// Fold in lines already queued before paying for one flush.
			for n := len(s.Out); n > 0; n-- {
				extra, ok := <-s.Out
				if !ok {
					w.Flush()
					return
				}
				if _, err := w.WriteString(extra + "\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}()
}
