package tfl

import (
	"errors"
	"net/url"
	"strings"
)

const redacted = "REDACTED"

// redact strips the access key from errors that embed the request URL,
// as *url.Error does, so it never reaches logs or clients.
func redact(err error, key string) error {
	if err == nil || key == "" {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, url.QueryEscape(key), redacted)
		ue.URL = strings.ReplaceAll(ue.URL, key, redacted)
		return err
	}
	if strings.Contains(err.Error(), key) {
		return errors.New(strings.ReplaceAll(err.Error(), key, redacted))
	}
	return err
}
