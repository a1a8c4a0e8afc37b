package api

import (
	"io"

	"github.com/ledongthuc/pdf"
)

// countPDFPages 尽力读取页数；解析失败或文件损坏时返回 0。
func countPDFPages(r io.ReaderAt, size int64) (pages int) {
	defer func() {
		// ledongthuc/pdf 遇到畸形文件会 panic。
		if recover() != nil {
			pages = 0
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
