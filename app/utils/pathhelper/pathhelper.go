package pathhelper

import (
	"path/filepath"
	"regexp"
	"strings"
)

// 视频文件扩展名
var videoExtensions = []string{
	".mkv", ".mp4", ".avi", ".m4v", ".mov", ".wmv", ".ts", ".m2ts", ".webm", ".mpg", ".mpeg", ".iso",
}

// 文件名中不允许出现的字符
var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// IsVideoFile 根据扩展名判断是否为视频文件
func IsVideoFile(name string) bool {
	return checkFileAgainstRules(name, videoExtensions)
}

// TrimVideoExt 去掉视频扩展名，非视频文件原样返回
func TrimVideoExt(name string) string {
	if IsVideoFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// IsHidden 是否为隐藏文件或目录
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// MatchAny 检查名称或相对路径是否命中任一排除规则
// relPath 使用 / 分隔，为空时只匹配名称
func MatchAny(patterns []string, name, relPath string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
		if relPath != "" {
			if ok, _ := filepath.Match(p, relPath); ok {
				return true
			}
		}
	}
	return false
}

// IsSubPath 检查 path 是否位于 prefix 目录之内（不含 prefix 本身）
func IsSubPath(path, prefix string) bool {
	if path == "" || prefix == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(prefix), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SafeFileName 替换文件名中的非法字符
func SafeFileName(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" {
		return "_"
	}
	return name
}

// checkFileAgainstRules 检查文件扩展名是否在列表中
func checkFileAgainstRules(filePath string, rules []string) bool {
	fileExt := strings.ToLower(filepath.Ext(filePath))
	for _, rule := range rules {
		if rule == fileExt {
			return true
		}
	}
	return false
}
