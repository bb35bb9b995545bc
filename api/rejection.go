package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/tidwall/gjson"
)

// BackendRejection is returned when the backend answers with a non-2xx status
// or an envelope carrying errors. Messages are meant for the user.
type BackendRejection struct {
	Status   int
	Messages []string
}

func (e *BackendRejection) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("backend rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("backend rejected request: status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

func (e *BackendRejection) Unwrap() error {
	return errors.ErrBackendRejected
}

// UserMessages returns the messages to show for err, or nil when err is not a rejection.
func UserMessages(err error) []string {
	var rejection *BackendRejection
	if errors.As(err, &rejection) {
		return rejection.Messages
	}
	return nil
}

// rejectionFrom inspects a response and returns a rejection, or nil when the
// response is a success.
func rejectionFrom(status int, body []byte) *BackendRejection {
	errs := gjson.GetBytes(body, "errors")
	failed := status < 200 || status > 299
	if !failed && (!errs.IsArray() || len(errs.Array()) == 0) {
		return nil
	}

	messages := messagesOf(errs)
	if len(messages) == 0 {
		messages = messagesOf(gjson.GetBytes(body, "messages"))
	}
	if len(messages) == 0 && failed {
		messages = []string{http.StatusText(status)}
	}
	return &BackendRejection{Status: status, Messages: messages}
}

// messagesOf flattens an array whose items are either strings or objects with
// a message field.
func messagesOf(list gjson.Result) []string {
	if !list.IsArray() {
		return nil
	}
	var out []string
	list.ForEach(func(_, item gjson.Result) bool {
		var msg string
		if item.Type == gjson.String {
			msg = item.String()
		} else {
			msg = item.Get("message").String()
		}
		if msg != "" {
			out = append(out, msg)
		}
		return true
	})
	return out
}
