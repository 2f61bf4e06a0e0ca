package telegram

import (
	"net/http"
	"time"
)

// httpClient returns the client telebot uses for Bot API calls.
// Uploads of multi-photo albums can legitimately take a while on slow links,
// so the timeout is generous.
func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
