package utils

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"casalink/config"

	"github.com/valyala/fasthttp"
)

var whatsappClient = &fasthttp.Client{
	ReadTimeout:  5 * time.Second,
	WriteTimeout: 5 * time.Second,
}

// SendWhatsApp delivers a text message through the Z-API gateway. It is
// best-effort and off the critical path: any failure reports false and is
// otherwise swallowed.
func SendWhatsApp(phone, message string) bool {
	if config.AppConfig.ZAPI.Instance == "" || config.AppConfig.ZAPI.Token == "" {
		return false
	}

	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return false
	}

	body, err := json.Marshal(map[string]string{
		"phone":   digits.String(),
		"message": message,
	})
	if err != nil {
		return false
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf(
		"https://api.z-api.io/instances/%s/token/%s/send-text",
		config.AppConfig.ZAPI.Instance,
		config.AppConfig.ZAPI.Token,
	))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := whatsappClient.DoTimeout(req, resp, 5*time.Second); err != nil {
		return false
	}
	return resp.StatusCode() == fasthttp.StatusOK
}
