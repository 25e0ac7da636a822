package session

import "strings"

// Messages are the generic user-facing texts used when the server gives no detail.
type Messages struct {
	RegisterFailed   string
	LoginFailed      string
	GithubLinkFailed string
	GoogleLinkFailed string
	UnknownProvider  string
	InvalidEmail     string
	PasswordRequired string
	SessionExpired   string
}

var catalog = map[string]Messages{
	"en": {
		RegisterFailed:   "Registration failed",
		LoginFailed:      "Login failed",
		GithubLinkFailed: "GitHub linking failed",
		GoogleLinkFailed: "Google linking failed",
		UnknownProvider:  "Unsupported provider",
		InvalidEmail:     "A valid email address is required",
		PasswordRequired: "Password is required",
		SessionExpired:   "Your session has expired. Please log in again",
	},
	"ko": {
		RegisterFailed:   "회원가입 실패",
		LoginFailed:      "로그인 실패",
		GithubLinkFailed: "GitHub 연동 실패",
		GoogleLinkFailed: "Google 연동 실패",
		UnknownProvider:  "지원하지 않는 연동입니다",
		InvalidEmail:     "올바른 이메일 주소를 입력하세요",
		PasswordRequired: "비밀번호를 입력하세요",
		SessionExpired:   "세션이 만료되었습니다. 다시 로그인하세요",
	},
}

// DefaultLocale is used for unknown or empty locales.
const DefaultLocale = "en"

// MessagesFor returns the catalog for locale ("ko", "ko-KR", "en_US", ...).
func MessagesFor(locale string) Messages {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_."); i >= 0 {
		lang = lang[:i]
	}
	if m, ok := catalog[lang]; ok {
		return m
	}
	return catalog[DefaultLocale]
}

// linkFailed returns the provider-specific fallback.
func (m Messages) linkFailed(p Provider) string {
	if p == ProviderGoogle {
		return m.GoogleLinkFailed
	}
	return m.GithubLinkFailed
}
