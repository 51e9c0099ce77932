package torrent

import (
	"strings"
	"time"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"golang.org/x/text/unicode/norm"
)

// encodeInput 生成种子所需的全部字段
type encodeInput struct {
	Unit        Unit
	PieceLength int64
	Pieces      []byte
	Private     bool
	Announce    string
	Comment     string
	CreatedBy   string
	CreatedAt   time.Time
}

// encodeInfo 生成 info 字典的 bencode 字节，相同输入得到相同结果
func encodeInfo(in encodeInput) ([]byte, error) {
	private := in.Private
	info := metainfo.Info{
		Name:        norm.NFC.String(in.Unit.InfoName),
		PieceLength: in.PieceLength,
		Pieces:      in.Pieces,
		Private:     &private,
	}

	if in.Unit.Single {
		info.Length = in.Unit.Size
	} else {
		info.Files = make([]metainfo.FileInfo, 0, len(in.Unit.Files))
		for _, f := range in.Unit.Files {
			info.Files = append(info.Files, metainfo.FileInfo{
				Length: f.Size,
				Path:   strings.Split(norm.NFC.String(f.RelPath), "/"),
			})
		}
	}
	return bencode.Marshal(info)
}

// encodeTorrent 生成完整的 .torrent 内容，返回文件字节和 info hash
func encodeTorrent(in encodeInput) ([]byte, string, error) {
	infoBytes, err := encodeInfo(in)
	if err != nil {
		return nil, "", err
	}

	mi := metainfo.MetaInfo{
		InfoBytes:    infoBytes,
		Announce:     in.Announce,
		Comment:      in.Comment,
		CreatedBy:    in.CreatedBy,
		CreationDate: in.CreatedAt.Unix(),
	}
	data, err := bencode.Marshal(mi)
	if err != nil {
		return nil, "", err
	}
	return data, mi.HashInfoBytes().HexString(), nil
}
