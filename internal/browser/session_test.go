package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func naverLikeParams() LoginParams {
	return LoginParams{
		URL:            "https://nid.naver.com/nidlogin.login",
		FailureURLPart: "nidlogin",
		SuccessURLPart: "naver.com",
	}
}

func TestLoginResultRejectedCredentialsStayOnLoginPage(t *testing.T) {
	// The login page URL contains the success marker's domain, so the
	// failure marker must win.
	err := loginResult("", "https://nid.naver.com/nidlogin.login", naverLikeParams())
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestLoginResultAcceptedCredentials(t *testing.T) {
	err := loginResult("", "https://www.naver.com/", naverLikeParams())
	assert.NoError(t, err)
}

func TestLoginResultRedirectedOffSite(t *testing.T) {
	err := loginResult("", "https://example.com/blocked", naverLikeParams())
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestLoginResultCaptchaChallenge(t *testing.T) {
	err := loginResult("자동입력 방지 문자를 입력해 주세요", "https://www.naver.com/", naverLikeParams())
	assert.ErrorIs(t, err, ErrCaptcha)
}
