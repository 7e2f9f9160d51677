package engine

// Language 文本语言类型
type Language string

const (
	LanguageKorean   Language = "korean"
	LanguageEnglish  Language = "english"
	LanguageJapanese Language = "japanese"
	LanguageChinese  Language = "chinese"
	LanguageMixed    Language = "mixed"
)

// 各语言每token的平均字符数（GPT系经验值）
var languageTokenRatios = map[Language]float64{
	LanguageKorean:   2.5,
	LanguageEnglish:  4.0,
	LanguageJapanese: 2.0,
	LanguageChinese:  1.5,
	LanguageMixed:    3.0,
}

// 单一语言判定阈值：某文字系统占比超过70%
const dominantScriptRatio = 0.7

// DetectLanguage 检测文本语言
// 按文字系统统计字符数，占比超过阈值判定为单一语言，否则为混合
func DetectLanguage(text string) Language {
	var korean, english, japanese, chinese, total int

	for _, r := range text {
		total++
		switch {
		case r >= 0xAC00 && r <= 0xD7A3:
			korean++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			english++
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			japanese++
		case r >= 0x4E00 && r <= 0x9FA5:
			chinese++
		}
	}

	if total == 0 {
		return LanguageKorean
	}

	ratio := func(count int) float64 {
		return float64(count) / float64(total)
	}

	switch {
	case ratio(korean) > dominantScriptRatio:
		return LanguageKorean
	case ratio(english) > dominantScriptRatio:
		return LanguageEnglish
	case ratio(japanese) > dominantScriptRatio:
		return LanguageJapanese
	case ratio(chinese) > dominantScriptRatio:
		return LanguageChinese
	}

	return LanguageMixed
}

// EstimateTokens 估算文本token数 = floor(字符数 / 每token字符数)
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	language := DetectLanguage(text)
	ratio := languageTokenRatios[language]

	runeCount := 0
	for range text {
		runeCount++
	}

	tokens := int(float64(runeCount) / ratio)
	if tokens < 1 {
		// 非空文本至少计一个token
		tokens = 1
	}
	return tokens
}

// TokenRatio 返回指定语言的每token字符数
func TokenRatio(language Language) float64 {
	if ratio, ok := languageTokenRatios[language]; ok {
		return ratio
	}
	return languageTokenRatios[LanguageMixed]
}
