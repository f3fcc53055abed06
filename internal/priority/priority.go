// Package priority はタスク内容のキーワード解析による優先度推定を提供する。
package priority

import (
	"strings"

	"github.com/hitoshi/propman/internal/model"
)

// highKeywords は高優先度を示すキーワード。lowより先に評価される。
var highKeywords = []string{
	"emergency", "urgent", "immediately", "critical", "danger",
	"safety", "hazard", "fire", "flood", "leak", "gas", "smoke",
	"burning", "electrical", "shock", "not working", "broken",
	"outage", "no water", "no electricity", "no heat", "no cooling",
	"security", "breach", "exposure", "injury", "damage", "severe",
	"failed", "collapsed",
}

// lowKeywords は低優先度を示すキーワード。
var lowKeywords = []string{
	"minor", "cosmetic", "small", "eventually", "when possible",
	"sometime", "update", "replace", "upgrade", "improvement",
	"enhance", "convenience", "paint", "touch up", "aesthetic",
	"appearance", "not urgent", "can wait", "would like", "prefer",
	"consider", "suggest", "recommend", "nice to have",
}

// Suggestion は優先度推定の結果。
type Suggestion struct {
	Priority   model.TaskPriority `json:"priority"`
	Confidence float64            `json:"confidence"`
}

// Suggest はタイトルと説明文から優先度と信頼度を推定する。
// 高優先度キーワードが1つでも含まれればhigh、なければ低優先度キーワードでlow、
// どちらにも一致しなければmediumを返す。判定は大文字小文字を区別しない。
func Suggest(title, description string) Suggestion {
	text := strings.ToLower(strings.TrimSpace(title + " " + description))

	priority := model.PriorityMedium
	if containsAny(text, highKeywords) {
		priority = model.PriorityHigh
	} else if containsAny(text, lowKeywords) {
		priority = model.PriorityLow
	}

	return Suggestion{
		Priority:   priority,
		Confidence: confidence(text),
	}
}

// confidence は入力テキスト長に基づく信頼度を返す。
// 10文字未満は0.5固定。それ以上は0.6から始まり、100文字で上限の0.9に達する。
// 最大値は0.95でクランプされる。
func confidence(text string) float64 {
	n := len(text)
	if n < 10 {
		return 0.5
	}

	ratio := float64(n) / 100
	if ratio > 1 {
		ratio = 1
	}

	c := 0.6 + ratio*0.3
	if c > 0.95 {
		c = 0.95
	}
	return c
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
