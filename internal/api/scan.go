package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

var errMaliciousFile = errors.New("malicious file detected")

type virusScanner interface {
	Scan(r io.Reader) error
}

// clamdScanner 通过 clamd INSTREAM 扫描上传内容。
type clamdScanner struct {
	addr string
}

// NewClamdScanner 返回连接 addr 上 clamd 的扫描器。
func NewClamdScanner(addr string) *clamdScanner {
	return &clamdScanner{addr: addr}
}

func (s *clamdScanner) Scan(r io.Reader) error {
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamd.NewClamd(s.addr).ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}

	var scanErr error
	for result := range scanChan {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			scanErr = errMaliciousFile
		default:
			if scanErr == nil {
				scanErr = fmt.Errorf("clamd: %s %s", result.Status, result.Description)
			}
		}
	}
	return scanErr
}
