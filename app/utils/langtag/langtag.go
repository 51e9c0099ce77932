// Package langtag 根据文件名或音轨语言推断发布语言标签（MULTI/VOSTFR/FRENCH/VO）
package langtag

import (
	"strings"
	"unicode"
)

// Tag 语言标签
type Tag string

const (
	Multi   Tag = "MULTI"
	VOSTFR  Tag = "VOSTFR"
	French  Tag = "FRENCH"
	VO      Tag = "VO"
	Unknown Tag = ""
)

// Default 文件名中没有任何标记时使用的标签
const Default = VO

type rule struct {
	tag    Tag
	tokens []string
}

// 按优先级排列，先命中的规则生效
var rules = []rule{
	{Multi, []string{"MULTI", "MULTI2", "MULTI3", "MULTIVF", "MULTIVFF", "MULTIVFQ", "DUAL"}},
	{VOSTFR, []string{"VOSTFR", "VOST", "STFR", "SUBFRENCH", "SUBFR"}},
	{French, []string{"FRENCH", "TRUEFRENCH", "VFF", "VFQ", "VFI", "VF", "VF2", "VOF"}},
	{VO, []string{"VO", "VOA", "ENG", "ENGLISH"}},
}

var tokenIndex = func() map[string]Tag {
	idx := make(map[string]Tag)
	for _, r := range rules {
		for _, t := range r.tokens {
			idx[t] = r.tag
		}
	}
	return idx
}()

var priority = map[Tag]int{Multi: 0, VOSTFR: 1, French: 2, VO: 3}

// Tokens 将名称按非字母数字字符切分并转为大写
func Tokens(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToUpper(f)
	}
	return fields
}

// Detect 从名称中识别语言标签，没有任何标记时返回 Default
func Detect(name string) Tag {
	if tag, ok := Match(name); ok {
		return tag
	}
	return Default
}

// Match 从名称中识别语言标签，第二个返回值表示是否命中
func Match(name string) (Tag, bool) {
	best := Unknown
	for _, tok := range Tokens(name) {
		tag, ok := tokenIndex[tok]
		if !ok {
			continue
		}
		if best == Unknown || priority[tag] < priority[best] {
			best = tag
		}
	}
	return best, best != Unknown
}

// Normalize 规范化用户输入的标签，无法识别或 AUTO 时返回 Unknown
func Normalize(s string) Tag {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "AUTO" {
		return Unknown
	}
	switch Tag(s) {
	case Multi, VOSTFR, French, VO:
		return Tag(s)
	}
	if tag, ok := tokenIndex[s]; ok {
		return tag
	}
	return Unknown
}

// HasSuffix 判断名称是否已经以该标签结尾，避免输出文件名重复
func HasSuffix(name string, tag Tag) bool {
	if tag == Unknown {
		return false
	}
	toks := Tokens(name)
	return len(toks) > 0 && toks[len(toks)-1] == string(tag)
}

var frenchCodes = map[string]bool{"fr": true, "fre": true, "fra": true, "french": true, "fr-fr": true, "fr-ca": true}

var undefinedCodes = map[string]bool{"": true, "und": true, "unk": true, "mis": true, "zxx": true, "mul": true}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// FromStreams 根据音轨和字幕语言推断标签：
// 至少两种音轨语言且包含法语为 MULTI，只有法语为 FRENCH，
// 没有法语音轨但有法语字幕为 VOSTFR，其余有效语言为 VO，没有任何语言信息为 Unknown
func FromStreams(audio, subtitles []string) Tag {
	langs := make(map[string]bool)
	hasFrench := false
	for _, a := range audio {
		code := normalizeCode(a)
		if undefinedCodes[code] {
			continue
		}
		if frenchCodes[code] {
			hasFrench = true
			code = "fr"
		}
		langs[code] = true
	}
	if len(langs) == 0 {
		return Unknown
	}
	if hasFrench {
		if len(langs) >= 2 {
			return Multi
		}
		return French
	}
	for _, s := range subtitles {
		if frenchCodes[normalizeCode(s)] {
			return VOSTFR
		}
	}
	return VO
}
