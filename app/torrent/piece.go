package torrent

// 自动选择分块大小时的范围与目标分块数
const (
	MinPieceExp     = 18   // 256 KiB
	MaxPieceExp     = 26   // 64 MiB
	TargetMaxPieces = 2000 // 分块数上限，结果通常落在 1000-2000 之间
)

// PieceExponent 返回分块大小的 2 的指数。override 非 0 时直接使用，
// 否则选择使分块数不超过 TargetMaxPieces 的最小指数，只取决于总大小
func PieceExponent(totalSize int64, override int) int {
	if override != 0 {
		return override
	}
	for exp := MinPieceExp; exp < MaxPieceExp; exp++ {
		if PieceCount(totalSize, int64(1)<<exp) <= TargetMaxPieces {
			return exp
		}
	}
	return MaxPieceExp
}

// PieceCount 计算分块数量，最后一块可以不满
func PieceCount(totalSize, pieceLength int64) int64 {
	if totalSize <= 0 || pieceLength <= 0 {
		return 0
	}
	return (totalSize + pieceLength - 1) / pieceLength
}
