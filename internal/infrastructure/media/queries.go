package media

import (
	"strings"
	"unicode"
)

// visualQueries maps common Korean news keywords to stock-footage searches
// that actually return usable vertical clips.
var visualQueries = []struct{ keyword, query string }{
	{"경제", "stock market screen"},
	{"금융", "financial charts"},
	{"금리", "financial charts data"},
	{"환율", "currency exchange"},
	{"물가", "grocery store shopping"},
	{"무역", "shipping containers port"},
	{"수출", "cargo ship ocean"},
	{"주식", "stock market trading screen"},
	{"코인", "crypto trading screen"},
	{"비트코인", "bitcoin cryptocurrency"},
	{"투자", "business meeting office"},
	{"부동산", "apartment building aerial"},
	{"반도체", "microchip circuit board"},
	{"스타트업", "modern office workspace"},
	{"기업", "corporate office building"},
	{"자동차", "cars driving highway"},
	{"배터리", "electric car charging"},
	{"에너지", "wind turbines aerial"},
	{"AI", "robot artificial intelligence"},
	{"인공지능", "robot artificial intelligence"},
	{"기술", "technology abstract lights"},
	{"데이터", "server room lights"},
	{"로봇", "robot arm factory"},
	{"클라우드", "data center"},
	{"소프트웨어", "computer code programming"},
	{"한국", "seoul city night aerial"},
	{"미국", "new york skyline night"},
	{"일본", "tokyo city night"},
	{"중국", "shanghai skyline night"},
	{"정책", "government building"},
}

// visualQuery picks the first keyword with a known mapping, else the first
// ASCII keyword, else fallback.
func visualQuery(keywords []string, fallback string) string {
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		for _, vq := range visualQueries {
			if strings.EqualFold(vq.keyword, kw) {
				return vq.query
			}
		}
	}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if len([]rune(kw)) > 1 && isASCII(kw) {
			return strings.ToLower(kw)
		}
	}
	return fallback
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
