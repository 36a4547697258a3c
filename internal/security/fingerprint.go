package security

import (
	"crypto/sha256"
	"encoding/hex"
	"restaurant-auth/internal/model"
	"strings"
	"unicode/utf8"
)

const maxUserAgentSummary = 128

// Fingerprint : необратимый идентификатор устройства.
// IP учитывается только при includeIP, иначе смена сети у мобильного клиента меняла бы отпечаток.
// Пустые метаданные дают один и тот же вырожденный отпечаток, он означает "неизвестное устройство".
func Fingerprint(client model.ClientInfo, includeIP bool) string {
	parts := []string{
		normalize(client.UserAgent),
		normalize(client.AcceptLanguage),
		normalize(client.AcceptEncoding),
	}
	if includeIP {
		parts = append(parts, normalize(client.IPAddress))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalize(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

var browsers = []struct{ marker, name string }{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"yabrowser/", "Yandex Browser"},
	{"firefox/", "Firefox"},
	{"chrome/", "Chrome"},
	{"safari/", "Safari"},
	{"postmanruntime/", "Postman"},
	{"okhttp/", "okhttp"},
	{"curl/", "curl"},
}

var platforms = []struct{ marker, name string }{
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"android", "Android"},
	{"windows", "Windows"},
	{"mac os x", "macOS"},
	{"linux", "Linux"},
}

// SummarizeUserAgent : короткое описание клиента для списка сессий, например "Chrome on Android"
func SummarizeUserAgent(userAgent string) string {
	lower := strings.ToLower(userAgent)

	browser := ""
	for _, b := range browsers {
		if strings.Contains(lower, b.marker) {
			browser = b.name
			break
		}
	}
	platform := ""
	for _, p := range platforms {
		if strings.Contains(lower, p.marker) {
			platform = p.name
			break
		}
	}

	switch {
	case browser != "" && platform != "":
		return browser + " on " + platform
	case browser != "":
		return browser
	case platform != "":
		return "Unknown browser on " + platform
	}

	trimmed := strings.TrimSpace(strings.ToValidUTF8(userAgent, "\uFFFD"))
	if trimmed == "" {
		return "unknown"
	}
	return truncate(trimmed, maxUserAgentSummary)
}

// truncate : не длиннее limit байт, без разрезания руны
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
