// Package prober 通过 ffprobe 读取音轨语言，用于修正文件名推断的语言标签
package prober

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"torrent-factory/app/apperr"
	"torrent-factory/app/utils/langtag"
)

// 未设置超时时的默认值
const defaultTimeout = 30 * time.Second

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober ffprobe 封装
type Prober struct {
	binary string
	run    runFunc
}

// New 创建探测器，binary 为空时使用 PATH 中的 ffprobe
func New(binary string) *Prober {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{binary: bin, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// 部分损坏的文件返回非零退出码但仍输出了流信息
		if stdout.Len() > 0 {
			return stdout.Bytes(), nil
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("ffprobe 执行失败: %w", err)
		}
		return nil, fmt.Errorf("ffprobe 执行失败: %w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

// Probe 探测单个文件的音轨语言。超时或失败时返回 Unknown 和原因，调用方应回退到文件名推断
func (p *Prober) Probe(ctx context.Context, filePath string, timeout time.Duration) (langtag.Tag, error) {
	if strings.TrimSpace(filePath) == "" {
		return langtag.Unknown, apperr.Validation("probe", "文件路径为空")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := p.run(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		filePath,
	)
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return langtag.Unknown, &apperr.Error{Kind: apperr.ErrProbeTimeout, Op: "probe", Err: fmt.Errorf("%s 超过 %v", filepath.Base(filePath), timeout)}
	}
	if err != nil {
		return langtag.Unknown, err
	}

	audio, subtitles, err := parseStreams(out)
	if err != nil {
		return langtag.Unknown, fmt.Errorf("解析 ffprobe 输出失败: %w", err)
	}
	return langtag.FromStreams(audio, subtitles), nil
}

// Resolve 对多文件条目按目录抽样探测，多数表决得出标签；
// 平票或全部未知时使用文件名推断的 fallback
func (p *Prober) Resolve(ctx context.Context, files []string, fallback langtag.Tag, timeout time.Duration, onError func(path string, err error)) langtag.Tag {
	samples := SampleFiles(files)
	results := make([]langtag.Tag, 0, len(samples))
	for _, f := range samples {
		if ctx.Err() != nil {
			break
		}
		tag, err := p.Probe(ctx, f, timeout)
		if err != nil && onError != nil {
			onError(f, err)
		}
		results = append(results, tag)
	}
	return Vote(results, fallback)
}

// SampleFiles 每个目录取字典序第一个文件作为代表，例如每季的第一集
func SampleFiles(files []string) []string {
	first := make(map[string]string)
	for _, f := range files {
		dir := filepath.Dir(f)
		if cur, ok := first[dir]; !ok || f < cur {
			first[dir] = f
		}
	}
	samples := make([]string, 0, len(first))
	for _, f := range first {
		samples = append(samples, f)
	}
	sort.Strings(samples)
	return samples
}

// Vote 忽略未知结果后多数表决，平票时优先 fallback
func Vote(results []langtag.Tag, fallback langtag.Tag) langtag.Tag {
	counts := make(map[langtag.Tag]int)
	for _, r := range results {
		if r != langtag.Unknown {
			counts[r]++
		}
	}
	if len(counts) == 0 {
		return fallback
	}

	best, bestCount, tie := langtag.Unknown, 0, false
	for tag, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tie = tag, n, false
		case n == bestCount:
			tie = true
		}
	}
	if tie {
		return fallback
	}
	return best
}

type probePayload struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType string            `json:"codec_type"`
	Tags      map[string]string `json:"tags"`
}

func parseStreams(data []byte) (audio, subtitles []string, err error) {
	var payload probePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, err
	}
	for _, s := range payload.Streams {
		lang := getTag(s.Tags, "language")
		switch s.CodecType {
		case "audio":
			audio = append(audio, lang)
		case "subtitle":
			subtitles = append(subtitles, lang)
		}
	}
	return audio, subtitles, nil
}

func getTag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return strings.TrimSpace(v)
	}
	if v, ok := tags[strings.ToUpper(key)]; ok {
		return strings.TrimSpace(v)
	}
	return ""
}
