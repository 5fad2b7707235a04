package usecase

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSystemPrompt is the built-in instruction used when no override is stored.
const DefaultSystemPrompt = `너는 사용자의 취향, 예산, 위치(대략적) 정보를 바탕으로 저녁 메뉴를 3가지로 추천하는 도우미야.
- 각 추천은 간단한 이유와 예상 가격대, 대체 옵션 1개를 포함해.
- 너무 장문으로 쓰지 말고 목록으로 간결하게 답해.
- 항목 앞에 가벼운 이모지(🍜, 🥗, 🍣 등)를 붙여 친근하게.`

// Transcript texts.
const (
	GreetingText     = "안녕하세요! 저녁 메뉴 추천을 도와드릴게요 😊\n취향/예산/위치를 알려주시면 맞춤 추천 드릴게요."
	PendingText      = "🤔 생각 중…"
	MissingKeyText   = "환경변수 OPENAI_API_KEY가 설정되지 않았습니다. .env 또는 SSM 파라미터를 설정해주세요."
	failurePrefix    = "문제가 발생했어요: "
	apiFailureFormat = "API 오류: %d %s"
	panicFailureText = "알 수 없는 오류"
)

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type responseBodier interface {
	ResponseBody() string
}

// failureMessage renders err the way it is shown in the transcript. Upstream
// HTTP failures become "API 오류: <status> <body>".
func failureMessage(err error) string {
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		body := ""
		var bodyErr responseBodier
		if errors.As(err, &bodyErr) {
			body = bodyErr.ResponseBody()
		}
		return strings.TrimSpace(fmt.Sprintf(apiFailureFormat, statusErr.HTTPStatusCode(), body))
	}
	return err.Error()
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
