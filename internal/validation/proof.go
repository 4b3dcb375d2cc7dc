// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/url"
	"strings"
)

// IsImageProof проверяет, что подтверждение отметки — это вложение-изображение
// с корректной http(s)-ссылкой.
func IsImageProof(proofURL, contentType string) bool {
	if !strings.HasPrefix(contentType, "image/") {
		return false
	}

	proofURL = strings.TrimSpace(proofURL)
	if proofURL == "" {
		return false
	}

	u, err := url.Parse(proofURL)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
