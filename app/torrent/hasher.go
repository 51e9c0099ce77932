package torrent

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"os"

	"torrent-factory/app/apperr"
	"torrent-factory/app/scanner"
)

// HashSize 每个分块 SHA-1 摘要的长度
const HashSize = sha1.Size

// ErrCancelled 构建被取消，不属于失败
var ErrCancelled = errors.New("任务已取消")

// hashPieces 将文件按顺序拼接为一个字节流，按 pieceLength 切块并计算 SHA-1。
// 每个分块结束后检查取消并回报已处理字节数
func hashPieces(ctx context.Context, files []scanner.FileEntry, pieceLength int64, onPiece func(hashed int64)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrCancelled
	}

	total := scanner.TotalSize(files)
	pieces := make([]byte, 0, PieceCount(total, pieceLength)*HashSize)
	buf := make([]byte, pieceLength)
	hasher := sha1.New()

	var filled int64 // 当前分块已填充的字节数
	var hashed int64

	flush := func() error {
		hasher.Reset()
		hasher.Write(buf[:filled])
		pieces = hasher.Sum(pieces)
		hashed += filled
		filled = 0
		if onPiece != nil {
			onPiece(hashed)
		}
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return nil
	}

	for _, f := range files {
		if err := readInto(f, buf, &filled, flush); err != nil {
			return nil, err
		}
	}
	if filled > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return pieces, nil
}

// readInto 把单个文件的内容读入分块缓冲区，缓冲区满时调用 flush
func readInto(f scanner.FileEntry, buf []byte, filled *int64, flush func() error) error {
	file, err := os.Open(f.FullPath)
	if err != nil {
		return apperr.IO("hash", err)
	}
	defer file.Close()

	var read int64
	for {
		n, err := io.ReadFull(file, buf[*filled:])
		*filled += int64(n)
		read += int64(n)

		if *filled == int64(len(buf)) {
			if ferr := flush(); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return apperr.IO("hash", fmt.Errorf("读取 %s 失败: %w", f.RelPath, err))
		}
	}

	if read != f.Size {
		return apperr.IO("hash", fmt.Errorf("%s 大小在构建过程中发生变化: 期望 %d 字节，实际 %d 字节", f.RelPath, f.Size, read))
	}
	return nil
}
