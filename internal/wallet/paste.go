package wallet

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// DeliverPasted reads callback URLs, one per line, and delivers each parsed response.
// It covers wallets that cannot reach the callback server; the user pastes the URL
// the wallet redirected to. It returns the number of responses delivered when r ends.
func (l *Linker) DeliverPasted(r io.Reader) (int, error) {
	delivered := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp, err := ParseResponseURL(line)
		if err != nil {
			l.logger.Warn("ignore pasted response", zap.Error(err))
			continue
		}
		l.Deliver(resp)
		delivered++
		l.logger.Info("pasted response delivered",
			zap.String("request_id", resp.RequestID),
			zap.String("status", resp.Status),
		)
	}
	if err := scanner.Err(); err != nil {
		return delivered, fmt.Errorf("read pasted responses: %w", err)
	}
	return delivered, nil
}
