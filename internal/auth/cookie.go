package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignSessionID はセッションIDにHMAC-SHA256署名を付与したクッキー値を返す。
// 形式は "<sessionID>.<hex署名>"。署名鍵が漏れない限りクッキー値の偽造はできない。
func SignSessionID(sessionID, secret string) string {
	return sessionID + "." + signature(sessionID, secret)
}

// VerifySignedValue は署名付きクッキー値を検証し、セッションIDを取り出す。
// 署名が一致しない、または形式が不正な場合はok=falseを返す。
func VerifySignedValue(value, secret string) (sessionID string, ok bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(signature(id, secret))) {
		return "", false
	}
	return id, true
}

func signature(sessionID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}
